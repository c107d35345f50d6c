// Package dubbing synthesizes a script line by line and composes the clips
// into one audio track.
package dubbing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/domain/script"
	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

const previewRunes = 40

type Option func(*Driver)

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithTranscoder enables non-WAV output formats.
func WithTranscoder(t timeline.Transcoder) Option {
	return func(d *Driver) { d.transcoder = t }
}

// WithDebugDir dumps every synthesized clip as seg_NNN_<start>s.wav.
func WithDebugDir(dir string) Option {
	return func(d *Driver) { d.debugDir = dir }
}

type Driver struct {
	tts        ports.Synthesizer
	log        *slog.Logger
	transcoder timeline.Transcoder
	debugDir   string
}

func New(tts ports.Synthesizer, opts ...Option) *Driver {
	d := &Driver{
		tts: tts,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type Request struct {
	Lines      []types.ScriptLine
	OutputPath string
	// Format overrides the output encoding; empty follows the extension.
	Format string
	// Speaker and Language, when set, replace the per-line values.
	Speaker  string
	Language string
	// TargetDuration forces the track length. Zero uses the content length.
	TargetDuration time.Duration
	Cancel         *runctl.Flag
}

type Track struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
	// Content is where the last placed clip ends, before padding or cropping.
	Content    time.Duration        `json:"content"`
	Written    bool                 `json:"written"`
	Placements []timeline.Placement `json:"placements"`
	// Lines holds the script index of each placement.
	Lines       []int `json:"lines"`
	Failed      []int `json:"failed,omitempty"`
	Synthesized int   `json:"synthesized"`
}

type Stream = progress.Stream[Track]

// Stream synthesizes lines in order and places each clip at its start time.
// A line that fails to synthesize is logged and left out of the track.
// Cancellation is checked before each line.
func (d *Driver) Stream(ctx context.Context, req Request) Stream {
	return func(yield func(progress.Event[Track], error) bool) {
		var zero progress.Event[Track]
		if d.tts == nil {
			yield(zero, fmt.Errorf("%w: no speech synthesizer configured", runctl.ErrConfiguration))
			return
		}

		tl := timeline.New(timeline.WithTranscoder(d.transcoder), timeline.WithLogger(d.log))
		total := len(req.Lines)
		var track Track

		for i, line := range req.Lines {
			if err := runctl.Check(ctx, req.Cancel); err != nil {
				yield(zero, err)
				return
			}
			msg := fmt.Sprintf("[%d/%d] Generating at %.2fs: %s", i+1, total, line.Start, preview(line.Text))
			if !yield(progress.Update[Track](progress.Fraction(i, total), msg), nil) {
				return
			}
			if !script.Speakable(line) {
				continue
			}

			audio, err := d.tts.Synthesize(ctx,
				strings.TrimSpace(line.Text),
				firstNonEmpty(req.Speaker, line.Speaker),
				firstNonEmpty(req.Language, line.Language),
				line.Instruct,
			)
			if err == nil && len(audio.Samples) == 0 {
				err = fmt.Errorf("synthesizer returned no audio")
			}
			if err != nil {
				if cerr := runctl.Check(ctx, req.Cancel); cerr != nil {
					yield(zero, cerr)
					return
				}
				d.log.Warn("segment synthesis failed, skipping",
					slog.Int("segment", i),
					slog.Float64("start", line.Start),
					slog.String("error", err.Error()),
				)
				track.Failed = append(track.Failed, i)
				continue
			}

			d.dump(i, line.Start, audio)
			p, err := tl.Add(line.Start, audio)
			if err != nil {
				d.log.Warn("segment placement failed, skipping",
					slog.Int("segment", i),
					slog.String("error", err.Error()),
				)
				track.Failed = append(track.Failed, i)
				continue
			}
			track.Lines = append(track.Lines, i)
			track.Synthesized++
			if p.ResolvedStartMS != p.IntendedStartMS {
				d.log.Info("segment shifted to avoid overlap",
					slog.Int("segment", i),
					slog.Duration("shift", p.Shift()),
				)
			}
		}

		if err := runctl.Check(ctx, req.Cancel); err != nil {
			yield(zero, err)
			return
		}
		track.Content = tl.ContentDuration()
		d.log.Debug("composing dubbed track",
			slog.Int("clips", tl.Len()),
			slog.Duration("content", track.Content),
			slog.Duration("target", req.TargetDuration),
		)
		rendered, err := tl.Export(ctx, req.OutputPath, timeline.ExportOptions{
			Format:         req.Format,
			TargetDuration: req.TargetDuration,
		})
		if err != nil {
			yield(zero, runctl.Wrap(runctl.ErrStageFailed, "synthesize", "export", "compose audio track", err))
			return
		}

		track.Path = rendered.Path
		track.Duration = rendered.Duration
		track.Written = rendered.Written
		track.Placements = tl.Placements()
		d.log.Info("dubbed track ready",
			slog.String("path", track.Path),
			slog.Int("synthesized", track.Synthesized),
			slog.Int("failed", len(track.Failed)),
			slog.Duration("duration", track.Duration),
		)
		yield(progress.Done(track, fmt.Sprintf("Synthesized %d/%d lines", track.Synthesized, total)), nil)
	}
}

// Synthesize runs Stream to completion.
func (d *Driver) Synthesize(ctx context.Context, req Request, onProgress func(progress.Event[Track])) (Track, error) {
	return progress.Drain(d.Stream(ctx, req), onProgress)
}

func (d *Driver) dump(i int, start float64, a types.Audio) {
	if d.debugDir == "" {
		return
	}
	path := filepath.Join(d.debugDir, fmt.Sprintf("seg_%03d_%.2fs.wav", i, start))
	if err := timeline.WriteWAV(path, a); err != nil {
		d.log.Warn("debug dump failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
