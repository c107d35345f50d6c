package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/voxdub/internal/logging"
	"github.com/forPelevin/voxdub/internal/pipeline"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/usecase"
)

type synthOptions struct {
	script   string
	output   string
	format   string
	speaker  string
	language string
	duration float64
	video    string
	videoOut string
	debugDir string
}

func newSynthCommand(ctx *commandContext) *cobra.Command {
	opts := &synthOptions{}
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Render a timed JSON script into an audio track",
		Long: "Render a timed JSON script (a list of {start, text} objects) into one audio track.\n" +
			"With --video the track replaces the video's audio in a re-muxed copy.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			interactive := isTerminal(stderr)
			log, _, err := logging.NewFromConfig(cfg, pipeline.NewRunID(), interactive)
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
			res, err := p.Synth(runCtx, req, func(ev progress.Event[usecase.ScriptResult]) {
				view.update(ev.Fraction, ev.Message)
			})
			view.finish()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprint(stdout, renderSynthSummary(res, shouldColorize(stdout)))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.script, "script", "", "Script file: a JSON list of {start, text, speaker, language, instruct}")
	flags.StringVar(&opts.output, "output", "", "Audio track to write")
	flags.StringVar(&opts.format, "format", "", "Track format (default from the output extension)")
	flags.StringVar(&opts.speaker, "speaker", "", "Default voice for lines without a speaker")
	flags.StringVar(&opts.language, "language", "", "Default language for lines without one")
	flags.Float64Var(&opts.duration, "duration", 0, "Exact track length in seconds (default: content length, or the video length)")
	flags.StringVar(&opts.video, "video", "", "Video to re-mux with the new track")
	flags.StringVar(&opts.videoOut, "video-out", "", "Re-muxed video path (default <output dir>/<video name>.dubbed.mp4)")
	flags.StringVar(&opts.debugDir, "debug-dir", "", "Write every synthesized line as a WAV into this directory")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (o *synthOptions) request() (pipeline.SynthRequest, error) {
	if o.duration < 0 {
		return pipeline.SynthRequest{}, fmt.Errorf("%w: duration must not be negative", runctl.ErrValidation)
	}
	if o.videoOut != "" && o.video == "" {
		return pipeline.SynthRequest{}, fmt.Errorf("%w: --video-out needs --video", runctl.ErrValidation)
	}
	return pipeline.SynthRequest{
		Script:   o.script,
		Output:   o.output,
		Format:   o.format,
		Speaker:  o.speaker,
		Language: o.language,
		Duration: time.Duration(o.duration * float64(time.Second)),
		Video:    o.video,
		VideoOut: o.videoOut,
	}, nil
}
