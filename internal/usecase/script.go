package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/domain/script"
	"github.com/forPelevin/voxdub/internal/dubbing"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

var (
	scriptSynth = progress.Range{Name: "synthesize", Start: 0, End: 0.90}
	scriptMux   = progress.Range{Name: "mux", Start: 0.90, End: 0.99}
)

// ScriptInput dubs an existing script without transcription or translation.
type ScriptInput struct {
	// Lines wins over ScriptPath when both are set.
	Lines      []types.ScriptLine
	ScriptPath string
	OutputPath string
	// Format defaults to the OutputPath extension.
	Format   string
	Speaker  string
	Language string
	// Duration pads or truncates the track. When zero and Video is set, the
	// video length is used.
	Duration time.Duration
	// Video, when set, gets the track muxed in place of its audio.
	Video    string
	VideoOut string
}

type ScriptResult struct {
	Track       dubbing.Track
	OutputVideo string
}

func (u *Usecase) StreamScript(ctx context.Context, in ScriptInput) progress.Stream[ScriptResult] {
	return func(yield func(progress.Event[ScriptResult], error) bool) {
		defer u.cancel.Reset()
		log := u.d.Log.With(slog.String("component", "script"))
		var mono progress.Monotonic
		emit := func(rng progress.Range, f float64, msg string) error {
			if !yield(progress.Update[ScriptResult](mono.Next(rng.Map(f)), msg), nil) {
				return errStopped
			}
			return nil
		}

		res, err := u.dubScript(ctx, in, log, emit)
		if errors.Is(err, errStopped) {
			return
		}
		if err != nil {
			yield(progress.Event[ScriptResult]{}, err)
			return
		}
		yield(progress.Done(res, "Done"), nil)
	}
}

// DubScript drives StreamScript to completion.
func (u *Usecase) DubScript(ctx context.Context, in ScriptInput, onProgress func(progress.Event[ScriptResult])) (ScriptResult, error) {
	return progress.Drain(u.StreamScript(ctx, in), onProgress)
}

func (u *Usecase) dubScript(ctx context.Context, in ScriptInput, log *slog.Logger, emit func(progress.Range, float64, string) error) (ScriptResult, error) {
	if u.d.TTS == nil {
		return ScriptResult{}, fmt.Errorf("%w: a speech synthesizer is required", runctl.ErrConfiguration)
	}
	if strings.TrimSpace(in.OutputPath) == "" {
		return ScriptResult{}, fmt.Errorf("%w: output path is required", runctl.ErrValidation)
	}
	lines := in.Lines
	if lines == nil {
		if in.ScriptPath == "" {
			return ScriptResult{}, fmt.Errorf("%w: script is required", runctl.ErrValidation)
		}
		loaded, err := script.Load(in.ScriptPath)
		if err != nil {
			return ScriptResult{}, err
		}
		lines = loaded
	}
	if in.Video != "" && u.d.Video == nil {
		return ScriptResult{}, fmt.Errorf("%w: muxing needs a video tool", runctl.ErrConfiguration)
	}

	target := in.Duration
	var videoDur time.Duration
	if in.Video != "" {
		d, err := u.d.Video.ProbeDuration(ctx, in.Video)
		if err != nil {
			if cerr := runctl.Check(ctx, &u.cancel); cerr != nil {
				return ScriptResult{}, cerr
			}
			return ScriptResult{}, runctl.Wrap(runctl.ErrStageFailed, "synthesize", "probe duration", "", err)
		}
		videoDur = d
		if target == 0 {
			target = d
		}
	}

	req := dubbing.Request{
		Lines:          script.SortByStart(lines),
		OutputPath:     in.OutputPath,
		Format:         in.Format,
		Speaker:        in.Speaker,
		Language:       in.Language,
		TargetDuration: target,
		Cancel:         &u.cancel,
	}
	track, err := runSynthesis(ctx, u.driver(u.d.Log), req, func(f float64, msg string) error {
		return emit(scriptSynth, f, msg)
	})
	if err != nil {
		if errors.Is(err, errStopped) || runctl.IsCancelled(err) || errors.Is(err, runctl.ErrStageFailed) {
			return ScriptResult{}, err
		}
		return ScriptResult{}, runctl.Wrap(runctl.ErrStageFailed, "synthesize", "synthesize script", "", err)
	}
	if !track.Written {
		return ScriptResult{}, fmt.Errorf("%w: script has no speakable lines and no duration", runctl.ErrValidation)
	}
	log.Info("script synthesized",
		slog.String("output", track.Path),
		slog.Int("lines", len(track.Lines)),
		slog.Int("failed", len(track.Failed)),
	)
	res := ScriptResult{Track: track}
	if in.Video == "" {
		return res, nil
	}

	out := in.VideoOut
	if out == "" {
		dir := filepath.Dir(in.OutputPath)
		stem := strings.TrimSuffix(filepath.Base(in.Video), filepath.Ext(in.Video))
		out = filepath.Join(dir, stem+".dubbed.mp4")
	}
	err = encode(ctx, encodeJob{
		video:  u.d.Video,
		req:    ports.MuxRequest{Video: in.Video, Audio: track.Path, Output: out, Mode: ports.SubtitlesSoft},
		total:  videoDur,
		cancel: &u.cancel,
		now:    u.d.Clock,
		log:    log,
		report: func(f float64, msg string) error { return emit(scriptMux, f, msg) },
	})
	if err != nil {
		return ScriptResult{}, err
	}
	res.OutputVideo = out
	return res, nil
}
