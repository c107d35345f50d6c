package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/voxdub/internal/logging"
	"github.com/forPelevin/voxdub/internal/pipeline"
)

func newTranslatorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "translators",
		Aliases: []string{"engines"},
		Short:   "List translation, transcription and speech engines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, logging.Discard())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEngines(p.Engines()))
			return nil
		},
	}
}

func renderEngines(rows []pipeline.EngineInfo) string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		status := "ready"
		if !r.Available {
			status = "unavailable"
		}
		out = append(out, []string{r.Kind, r.Name, status, yesNo(r.Selected), r.Reason})
	}
	return renderTable(
		[]string{"Kind", "Engine", "Status", "Selected", "Note"},
		out,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
