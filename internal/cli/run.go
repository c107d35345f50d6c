package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/voxdub/internal/logging"
	"github.com/forPelevin/voxdub/internal/pipeline"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/usecase"
)

type runOptions struct {
	source     string
	target     string
	speaker    string
	subs       string
	translator string
	out        string
	output     string
	debugDir   string
	noDub      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Transcribe, translate, dub and re-encode a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			interactive := isTerminal(stderr)
			req.RunID = pipeline.NewRunID()
			log, logPath, err := logging.NewFromConfig(cfg, req.RunID, interactive)
			if err != nil {
				return err
			}
			var popts []pipeline.Option
			if opts.debugDir != "" {
				popts = append(popts, pipeline.WithDebugDir(opts.debugDir))
			}
			p, err := pipeline.New(cfg, log, popts...)
			if err != nil {
				return err
			}

			runCtx, stop := withInterrupts(cmd.Context(), cfg.Timeout(), p.Cancel, stderr)
			defer stop()

			view := newProgressView(stderr, interactive)
			out, err := p.Run(runCtx, req, func(ev progress.Event[usecase.Result]) {
				view.update(ev.Fraction, ev.Message)
			})
			view.finish()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprint(stdout, renderRunSummary(out, logPath, shouldColorize(stdout)))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.source, "source", "", `Source language code, or "auto" (default from config)`)
	flags.StringVar(&opts.target, "target", "", "Target language code (default from config)")
	flags.StringVar(&opts.speaker, "speaker", "", "Voice used for the dubbed track")
	flags.StringVar(&opts.subs, "subs", "", "Subtitle mode: hard or soft (default from config)")
	flags.StringVar(&opts.translator, "translator", "", "Translation engine (see `voxdub translators`)")
	flags.BoolVar(&opts.noDub, "no-dub", false, "Keep the original audio and only add subtitles")
	flags.StringVar(&opts.out, "out", "", "Output root directory (default from config)")
	flags.StringVar(&opts.output, "output", "", "Output video path (default <run dir>/<name>.dubbed.mp4)")
	flags.StringVar(&opts.debugDir, "debug-dir", "", "Write every synthesized line as a WAV into this directory")
	return cmd
}

func (o *runOptions) request(input string) (pipeline.Request, error) {
	if strings.TrimSpace(input) == "" {
		return pipeline.Request{}, fmt.Errorf("%w: input video is required", runctl.ErrValidation)
	}
	subs := strings.ToLower(strings.TrimSpace(o.subs))
	switch subs {
	case "", "hard", "soft":
	default:
		return pipeline.Request{}, fmt.Errorf("%w: subtitle mode must be hard or soft, got %q", runctl.ErrValidation, o.subs)
	}
	return pipeline.Request{
		Input:        input,
		SourceLang:   strings.TrimSpace(o.source),
		TargetLang:   strings.TrimSpace(o.target),
		Speaker:      strings.TrimSpace(o.speaker),
		SubtitleMode: subs,
		Translator:   strings.TrimSpace(o.translator),
		OutDir:       strings.TrimSpace(o.out),
		OutputVideo:  strings.TrimSpace(o.output),
		Dubbing:      !o.noDub,
	}, nil
}
