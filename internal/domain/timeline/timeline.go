// Package timeline composes independently generated speech clips onto a single
// output track anchored to their intended start times.
//
// Clips must be added in chronological order of intended start: overlap
// resolution only compares a new clip with the one added immediately before
// it, and clips are never re-sorted.
package timeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

const (
	// MinGapMS is the silence kept between an auto-shifted clip and the clip
	// before it.
	MinGapMS = 50

	// DefaultSampleRate is used when a track has no clips to take a rate from.
	DefaultSampleRate = 24000

	// MaxStartSeconds is the latest accepted clip start and the longest
	// accepted target duration.
	MaxStartSeconds = 24 * 60 * 60

	minExportMS = 1000
)

// Placement records where a clip landed on the track.
type Placement struct {
	Index           int   `json:"index"`
	IntendedStartMS int64 `json:"intended_start_ms"`
	ResolvedStartMS int64 `json:"resolved_start_ms"`
	DurationMS      int64 `json:"duration_ms"`
}

func (p Placement) EndMS() int64 { return p.ResolvedStartMS + p.DurationMS }

// Shift is how far auto-shift pushed the clip past its intended start.
func (p Placement) Shift() time.Duration {
	return time.Duration(p.ResolvedStartMS-p.IntendedStartMS) * time.Millisecond
}

// Transcoder converts a rendered WAV file into another container/codec.
type Transcoder interface {
	TranscodeAudio(ctx context.Context, inPath, outPath string) error
}

type Option func(*Timeline)

func WithTranscoder(tr Transcoder) Option {
	return func(t *Timeline) { t.transcoder = tr }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Timeline) {
		if l != nil {
			t.log = l
		}
	}
}

// WithSampleRate sets the output rate used when the track has no clips.
func WithSampleRate(rate int) Option {
	return func(t *Timeline) {
		if rate > 0 {
			t.emptyRate = rate
		}
	}
}

type clip struct {
	Placement
	audio types.Audio
}

type Timeline struct {
	clips      []clip
	emptyRate  int
	transcoder Transcoder
	log        *slog.Logger
}

func New(opts ...Option) *Timeline {
	t := &Timeline{
		emptyRate: DefaultSampleRate,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add places a clip with auto-shift enabled.
func (t *Timeline) Add(start float64, a types.Audio) (Placement, error) {
	return t.Place(start, a, true)
}

// Place appends a clip intended to start at start seconds. With autoShift the
// clip is moved later, never earlier, so it starts at least MinGapMS after the
// previous clip ends.
func (t *Timeline) Place(start float64, a types.Audio, autoShift bool) (Placement, error) {
	if a.SampleRate <= 0 {
		return Placement{}, fmt.Errorf("%w: sample rate must be > 0, got %d", runctl.ErrValidation, a.SampleRate)
	}
	if math.IsNaN(start) || math.IsInf(start, 0) || start < 0 {
		return Placement{}, fmt.Errorf("%w: start must be a non-negative number of seconds, got %v", runctl.ErrValidation, start)
	}
	if start > MaxStartSeconds {
		return Placement{}, fmt.Errorf("%w: start %v is past the %ds track limit", runctl.ErrValidation, start, MaxStartSeconds)
	}

	startMS := int64(math.Round(start * 1000))
	p := Placement{
		Index:           len(t.clips),
		IntendedStartMS: startMS,
		ResolvedStartMS: startMS,
		DurationMS:      a.DurationMS(),
	}
	if autoShift && len(t.clips) > 0 {
		prev := t.clips[len(t.clips)-1]
		if minStart := prev.EndMS() + MinGapMS; p.ResolvedStartMS < minStart {
			t.log.Debug("auto-shift",
				slog.Int("clip", p.Index),
				slog.Int64("from_ms", startMS),
				slog.Int64("to_ms", minStart),
				slog.Int64("shift_ms", minStart-startMS),
			)
			p.ResolvedStartMS = minStart
		}
	}

	samples := make([]float32, len(a.Samples))
	copy(samples, a.Samples)
	t.clips = append(t.clips, clip{Placement: p, audio: types.Audio{Samples: samples, SampleRate: a.SampleRate}})
	return p, nil
}

func (t *Timeline) Len() int { return len(t.clips) }

func (t *Timeline) Placements() []Placement {
	out := make([]Placement, len(t.clips))
	for i, c := range t.clips {
		out[i] = c.Placement
	}
	return out
}

// ContentDuration is the end of the latest-ending clip.
func (t *Timeline) ContentDuration() time.Duration {
	return time.Duration(t.contentMS()) * time.Millisecond
}

func (t *Timeline) contentMS() int64 {
	var end int64
	for _, c := range t.clips {
		if e := c.EndMS(); e > end {
			end = e
		}
	}
	return end
}

type ExportOptions struct {
	// Format is the output encoding; empty means the path's extension, or wav.
	Format string
	// TargetDuration forces the exact track length. Zero means "content
	// length".
	TargetDuration time.Duration
}

type Rendered struct {
	Path       string
	Format     string
	Duration   time.Duration
	SampleRate int
	// Written is false when the track had no clips and no target duration.
	Written bool
}

// Export renders the track and writes it to path. With a target duration the
// output is exactly that long: later clips are cropped or dropped and the
// remainder is padded with silence.
func (t *Timeline) Export(ctx context.Context, path string, opts ExportOptions) (Rendered, error) {
	if opts.TargetDuration > MaxStartSeconds*time.Second {
		return Rendered{}, fmt.Errorf("%w: target duration %s is past the %ds track limit", runctl.ErrValidation, opts.TargetDuration, MaxStartSeconds)
	}
	format := resolveFormat(path, opts.Format)
	targetMS := durationMS(opts.TargetDuration)
	res := Rendered{Path: path, Format: format}

	if len(t.clips) == 0 && targetMS <= 0 {
		t.log.Info("no clips to export", slog.String("path", path))
		return res, nil
	}

	finalMS := targetMS
	if finalMS <= 0 {
		finalMS = t.contentMS()
	}
	if finalMS <= 0 {
		finalMS = minExportMS
	}

	rate := t.outputRate()
	track := types.Audio{Samples: t.render(finalMS, rate), SampleRate: rate}
	t.log.Info("composing track",
		slog.Int("clips", len(t.clips)),
		slog.Int64("duration_ms", finalMS),
		slog.Int("sample_rate", rate),
	)

	if err := t.write(ctx, path, format, track); err != nil {
		return res, err
	}
	res.Duration = time.Duration(finalMS) * time.Millisecond
	res.SampleRate = rate
	res.Written = true
	return res, nil
}

func (t *Timeline) render(finalMS int64, rate int) []float32 {
	n := samplesFor(finalMS, rate)
	out := make([]float32, n)
	for _, c := range t.clips {
		if c.ResolvedStartMS >= finalMS {
			continue
		}
		off := samplesFor(c.ResolvedStartMS, rate)
		if off >= n {
			continue
		}
		src := resample(c.audio, rate)
		if room := n - off; len(src) > room {
			src = src[:room]
		}
		for i, v := range src {
			out[off+i] = clampSample(out[off+i] + v)
		}
	}
	return out
}

func (t *Timeline) outputRate() int {
	rate := 0
	for _, c := range t.clips {
		if c.audio.SampleRate > rate {
			rate = c.audio.SampleRate
		}
	}
	if rate == 0 {
		rate = t.emptyRate
	}
	return rate
}

func (t *Timeline) write(ctx context.Context, path, format string, track types.Audio) error {
	if format == "wav" {
		return WriteWAV(path, track)
	}
	if t.transcoder == nil {
		return fmt.Errorf("%w: export format %q needs a transcoder", runctl.ErrConfiguration, format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".track-*.wav")
	if err != nil {
		return fmt.Errorf("create temp track: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := WriteWAV(tmpPath, track); err != nil {
		return err
	}
	if err := t.transcoder.TranscodeAudio(ctx, tmpPath, path); err != nil {
		return fmt.Errorf("encode %s track: %w", format, err)
	}
	return nil
}

func resolveFormat(path, format string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format != "" {
		return format
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext != "" {
		return ext
	}
	return "wav"
}

// resample converts a clip to rate by linear interpolation.
func resample(a types.Audio, rate int) []float32 {
	if a.SampleRate == rate || len(a.Samples) == 0 {
		return a.Samples
	}
	n := int(math.Round(float64(len(a.Samples)) * float64(rate) / float64(a.SampleRate)))
	out := make([]float32, n)
	ratio := float64(a.SampleRate) / float64(rate)
	last := len(a.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = a.Samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = a.Samples[j]*(1-frac) + a.Samples[j+1]*frac
	}
	return out
}

func samplesFor(ms int64, rate int) int {
	return int((ms*int64(rate) + 500) / 1000)
}

func durationMS(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d.Round(time.Millisecond) / time.Millisecond)
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
