// Package usecase runs the dubbing pipeline as one observable, cancellable
// unit of work.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/dubbing"
	"github.com/forPelevin/voxdub/internal/langs"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/translation"
	"github.com/forPelevin/voxdub/internal/types"
)

// Artifact names inside Input.WorkDir and Input.OutDir.
const (
	ExtractedAudio  = "extracted.wav"
	SpeechAudio     = "asr.wav"
	DubbedAudio     = "dubbed.wav"
	ScriptFile      = "translated_script.json"
	OriginalSRT     = "original.srt"
	TranslatedSRT   = "translated.srt"
	TranslatedASS   = "translated.ass"
	encoderTailSize = 20
)

type Deps struct {
	Video       ports.VideoTool
	ASR         ports.ASR
	Translators *translation.Registry
	TTS         ports.Synthesizer
	Log         *slog.Logger
	Clock       func() time.Time
	// DebugDir, when set, receives one WAV per synthesized line.
	DebugDir string
}

type Usecase struct {
	d      Deps
	cancel runctl.Flag
}

func New(d Deps) *Usecase {
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Usecase{d: d}
}

// Cancel asks the running stream to stop at its next checkpoint. It is safe
// to call from another goroutine.
func (u *Usecase) Cancel() { u.cancel.Set() }

type Input struct {
	VideoPath string
	// SourceLang may be "auto" to let the transcription engine detect it.
	SourceLang   string
	TargetLang   string
	Speaker      string
	SubtitleMode ports.SubtitleMode
	// Translator names a registered engine; empty picks the default.
	Translator string
	// Dubbing disabled keeps the original audio and only adds subtitles.
	Dubbing bool
	WorkDir string
	OutDir  string
	// OutputVideo defaults to <OutDir>/<input name>.dubbed.mp4.
	OutputVideo string
}

type Result struct {
	OutputVideo   string
	AudioTrack    string
	OriginalSRT   string
	TranslatedSRT string
	ScriptPath    string
	SourceLang    string
	Translator    string
	Lines         []types.ScriptLine
	Placements    []timeline.Placement
	Failed        []int
	VideoDuration time.Duration
	Warnings      []string
}

type Stream = progress.Stream[Result]

// Stream runs Extract, Transcribe, Translate, Synthesize and Mux in order,
// reporting a single non-decreasing fraction that ends at 1. A Cancel that
// arrives before the stream starts stops it at the first checkpoint. The
// cancel flag is cleared once the stream ends.
func (u *Usecase) Stream(ctx context.Context, in Input) Stream {
	return func(yield func(progress.Event[Result], error) bool) {
		defer u.cancel.Reset()
		r := &run{
			u:       u,
			in:      in,
			yield:   yield,
			sampler: progress.NewSampler(10),
			log:     u.d.Log.With(slog.String("component", "orchestrator")),
		}
		res, err := r.execute(ctx)
		if errors.Is(err, errStopped) {
			return
		}
		if runctl.IsCancelled(err) {
			r.log.Info("run cancelled")
		} else if err != nil {
			r.log.Error("run failed", slog.String("error", err.Error()))
		}
		if err != nil {
			yield(progress.Event[Result]{}, err)
			return
		}
		yield(progress.Done(res, "Done"), nil)
	}
}

// Run drives Stream to completion.
func (u *Usecase) Run(ctx context.Context, in Input, onProgress func(progress.Event[Result])) (Result, error) {
	return progress.Drain(u.Stream(ctx, in), onProgress)
}

func (u *Usecase) validate(in *Input) error {
	if u.d.Video == nil || u.d.ASR == nil {
		return fmt.Errorf("%w: video tool and transcription engine are required", runctl.ErrConfiguration)
	}
	if strings.TrimSpace(in.VideoPath) == "" {
		return fmt.Errorf("%w: input video is required", runctl.ErrValidation)
	}
	st, err := os.Stat(in.VideoPath)
	if err != nil {
		return fmt.Errorf("%w: stat input: %w", runctl.ErrValidation, err)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: input %s is a directory", runctl.ErrValidation, in.VideoPath)
	}
	if langs.IsAuto(in.TargetLang) {
		return fmt.Errorf("%w: target language is required", runctl.ErrValidation)
	}
	switch in.SubtitleMode {
	case "":
		in.SubtitleMode = ports.SubtitlesHard
	case ports.SubtitlesHard, ports.SubtitlesSoft:
	default:
		return fmt.Errorf("%w: subtitle mode must be hard or soft, got %q", runctl.ErrValidation, in.SubtitleMode)
	}
	if in.Dubbing && u.d.TTS == nil {
		return fmt.Errorf("%w: dubbing needs a speech synthesizer", runctl.ErrConfiguration)
	}
	if in.OutDir == "" {
		return fmt.Errorf("%w: output directory is required", runctl.ErrValidation)
	}
	if in.WorkDir == "" {
		in.WorkDir = filepath.Join(in.OutDir, "work")
	}
	if in.OutputVideo == "" {
		stem := strings.TrimSuffix(filepath.Base(in.VideoPath), filepath.Ext(in.VideoPath))
		in.OutputVideo = filepath.Join(in.OutDir, stem+".dubbed.mp4")
	}
	for _, dir := range []string{in.OutDir, in.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %w", runctl.ErrValidation, dir, err)
		}
	}
	return nil
}

func (u *Usecase) driver(log *slog.Logger) *dubbing.Driver {
	return dubbing.New(u.d.TTS,
		dubbing.WithLogger(log.With(slog.String("component", "dubbing"))),
		dubbing.WithTranscoder(u.d.Video),
		dubbing.WithDebugDir(u.d.DebugDir),
	)
}

var errStopped = errors.New("consumer stopped")

// run carries the state of one Stream invocation.
type run struct {
	u       *Usecase
	in      Input
	yield   func(progress.Event[Result], error) bool
	log     *slog.Logger
	mono    progress.Monotonic
	sampler *progress.Sampler
	res     Result
}

// emit forwards a stage-local fraction mapped into the stage's range.
func (r *run) emit(rng progress.Range, f float64, msg string) error {
	frac := r.mono.Next(rng.Map(f))
	if r.sampler.ShouldLog(frac*100, rng.Name) {
		r.log.Info("progress",
			slog.String("stage", rng.Name),
			slog.Int("percent", int(frac*100)),
			slog.String("message", msg),
		)
	}
	if !r.yield(progress.Update[Result](frac, msg), nil) {
		return errStopped
	}
	return nil
}

// fail classifies err: a cancelled run stays a cancellation, a missing binary
// is an external tool error, anything else becomes a stage failure.
func (r *run) fail(ctx context.Context, stage, op string, err error) error {
	if cerr := runctl.Check(ctx, &r.u.cancel); cerr != nil {
		return cerr
	}
	if errors.Is(err, runctl.ErrCancelled) || errors.Is(err, errStopped) || errors.Is(err, runctl.ErrStageFailed) {
		return err
	}
	if errors.Is(err, exec.ErrNotFound) {
		return runctl.Wrap(runctl.ErrExternalTool, stage, op, "", err)
	}
	return runctl.Wrap(runctl.ErrStageFailed, stage, op, "", err)
}

func (r *run) checkpoint(ctx context.Context) error {
	return runctl.Check(ctx, &r.u.cancel)
}
