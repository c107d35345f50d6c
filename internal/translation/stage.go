// Package translation turns transcript segments into a translated dubbing
// script, one segment at a time.
package translation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

// DefaultInstruct is the delivery hint attached to every translated line.
const DefaultInstruct = "neutral"

type Option func(*Stage)

func WithLogger(l *slog.Logger) Option {
	return func(s *Stage) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Stage) {
		if now != nil {
			s.now = now
		}
	}
}

type Stage struct {
	log *slog.Logger
	now func() time.Time
}

func New(opts ...Option) *Stage {
	s := &Stage{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Request struct {
	Segments   []types.Segment
	SourceLang string
	TargetLang string
	Translator ports.Translator
	Cancel     *runctl.Flag
}

type Stream = progress.Stream[[]types.ScriptLine]

// Stream translates segments in order. Segments with empty text are skipped
// and segments whose translation fails are dropped, so the result may be
// shorter than the input. Cancellation is checked before each segment.
func (s *Stage) Stream(ctx context.Context, req Request) Stream {
	return func(yield func(progress.Event[[]types.ScriptLine], error) bool) {
		var zero progress.Event[[]types.ScriptLine]
		if req.Translator == nil {
			yield(zero, fmt.Errorf("%w: no translator configured", runctl.ErrConfiguration))
			return
		}

		total := len(req.Segments)
		est := progress.NewEstimator(s.now)
		lines := make([]types.ScriptLine, 0, total)
		failed := 0

		for i, seg := range req.Segments {
			if err := runctl.Check(ctx, req.Cancel); err != nil {
				yield(zero, err)
				return
			}

			msg := fmt.Sprintf("Translating %d/%d", i+1, total)
			if etr, ok := est.Remaining(i, total); ok {
				msg += ", ETR " + progress.FormatETR(etr)
			}
			if !yield(progress.Update[[]types.ScriptLine](progress.Fraction(i, total), msg), nil) {
				return
			}

			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			out, err := req.Translator.Translate(ctx, text, req.SourceLang, req.TargetLang)
			if err == nil && strings.TrimSpace(out) == "" {
				err = fmt.Errorf("empty translation")
			}
			if err != nil {
				if cerr := runctl.Check(ctx, req.Cancel); cerr != nil {
					yield(zero, cerr)
					return
				}
				failed++
				s.log.Warn("segment translation failed, dropping segment",
					slog.Int("segment", i),
					slog.Float64("start", seg.Start),
					slog.String("translator", req.Translator.Name()),
					slog.String("error", err.Error()),
				)
				continue
			}

			lines = append(lines, types.ScriptLine{
				Start:    seg.Start,
				End:      seg.End,
				Text:     strings.TrimSpace(out),
				Instruct: DefaultInstruct,
			})
		}

		s.log.Info("translation finished",
			slog.Int("segments", total),
			slog.Int("translated", len(lines)),
			slog.Int("failed", failed),
			slog.Duration("elapsed", est.Elapsed()),
		)
		yield(progress.Done(lines, fmt.Sprintf("Translated %d/%d segments", len(lines), total)), nil)
	}
}

// Translate runs Stream to completion.
func (s *Stage) Translate(ctx context.Context, req Request, onProgress func(progress.Event[[]types.ScriptLine])) ([]types.ScriptLine, error) {
	return progress.Drain(s.Stream(ctx, req), onProgress)
}
