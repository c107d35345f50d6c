package translation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

type fakeTranslator struct {
	name   string
	fail   map[string]bool
	calls  []string
	onCall func(text string)
}

func (f *fakeTranslator) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	f.calls = append(f.calls, text)
	if f.onCall != nil {
		f.onCall(text)
	}
	if f.fail[text] {
		return "", errors.New("engine down")
	}
	return strings.ToUpper(text) + "@" + target, nil
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func segs(texts ...string) []types.Segment {
	out := make([]types.Segment, len(texts))
	for i, s := range texts {
		out[i] = types.Segment{Start: float64(i), End: float64(i) + 0.9, Text: s}
	}
	return out
}

func TestTranslateDropsFailuresAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	tr := &fakeTranslator{fail: map[string]bool{"b": true}}
	lines, err := New().Translate(context.Background(), Request{
		Segments:   segs("a", "b", "  ", "c"),
		SourceLang: "en",
		TargetLang: "es",
		Translator: tr,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %+v", len(lines), lines)
	}
	if lines[0].Text != "A@es" || lines[1].Text != "C@es" || lines[1].Start != 3 || lines[1].End != 3.9 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if lines[0].Instruct != DefaultInstruct {
		t.Fatalf("instruct: got %q", lines[0].Instruct)
	}
	if len(tr.calls) != 3 {
		t.Fatalf("empty segment must not reach the engine, calls=%v", tr.calls)
	}
}

func TestStreamProgressMessages(t *testing.T) {
	t.Parallel()

	s := New(WithClock(stepClock(time.Second)))
	var events []progress.Event[[]types.ScriptLine]
	_, err := s.Translate(context.Background(), Request{
		Segments:   segs("a", "b", "c"),
		Translator: &fakeTranslator{},
	}, func(ev progress.Event[[]types.ScriptLine]) { events = append(events, ev) })
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Message != "Translating 1/3" {
		t.Fatalf("first message %q should carry no ETR", events[0].Message)
	}
	if !strings.HasPrefix(events[1].Message, "Translating 2/3, ETR ") {
		t.Fatalf("second message %q", events[1].Message)
	}
	last := 0.0
	for _, ev := range events {
		if ev.Fraction < last {
			t.Fatalf("fraction went backwards: %v", events)
		}
		last = ev.Fraction
	}
	if events[3].Kind != progress.KindResult || events[3].Fraction != 1 {
		t.Fatalf("last event %+v", events[3])
	}
}

func TestStreamCancellationBeforeNextSegment(t *testing.T) {
	t.Parallel()

	flag := &runctl.Flag{}
	tr := &fakeTranslator{}
	tr.onCall = func(text string) {
		if text == "b" {
			flag.Set()
		}
	}
	_, err := New().Translate(context.Background(), Request{
		Segments:   segs("a", "b", "c", "d"),
		Translator: tr,
		Cancel:     flag,
	}, nil)
	if !errors.Is(err, runctl.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(tr.calls) != 2 {
		t.Fatalf("expected no work after cancel, calls=%v", tr.calls)
	}
}

func TestStreamContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Translate(ctx, Request{Segments: segs("a"), Translator: &fakeTranslator{}}, nil)
	if !errors.Is(err, runctl.ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestStreamWithoutTranslator(t *testing.T) {
	t.Parallel()

	_, err := New().Translate(context.Background(), Request{Segments: segs("a")}, nil)
	if !errors.Is(err, runctl.ErrConfiguration) {
		t.Fatalf("got %v", err)
	}
}

func TestStreamStopsWhenConsumerBreaks(t *testing.T) {
	t.Parallel()

	tr := &fakeTranslator{}
	for range New().Stream(context.Background(), Request{Segments: segs("a", "b"), Translator: tr}) {
		break
	}
	if len(tr.calls) != 0 {
		t.Fatalf("no segment should be translated, calls=%v", tr.calls)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(&fakeTranslator{name: "openrouter"}, &fakeTranslator{name: "DeepL"})
	if got := strings.Join(r.Names(), ","); got != "deepl,openrouter" {
		t.Fatalf("names: %s", got)
	}
	def, err := r.Get("")
	if err != nil || def.Name() != "openrouter" {
		t.Fatalf("default: %v %v", def, err)
	}
	if tr, err := r.Get("DEEPL"); err != nil || tr.Name() != "DeepL" {
		t.Fatalf("get deepl: %v %v", tr, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, runctl.ErrValidation) {
		t.Fatalf("unknown: %v", err)
	}
	if _, err := NewRegistry().Get(""); !errors.Is(err, runctl.ErrConfiguration) {
		t.Fatalf("empty registry: %v", err)
	}
}
