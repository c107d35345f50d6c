package dubbing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

const rate = 8000

type call struct {
	text, speaker, language, instruct string
}

type fakeTTS struct {
	durMS  map[string]int
	fail   map[string]bool
	calls  []call
	onCall func(text string)
}

func (f *fakeTTS) Synthesize(_ context.Context, text, speaker, language, instruct string) (types.Audio, error) {
	f.calls = append(f.calls, call{text, speaker, language, instruct})
	if f.onCall != nil {
		f.onCall(text)
	}
	if f.fail[text] {
		return types.Audio{}, errors.New("voice crashed")
	}
	ms := 500
	if v, ok := f.durMS[text]; ok {
		ms = v
	}
	s := make([]float32, ms*rate/1000)
	for i := range s {
		s[i] = 0.25
	}
	return types.Audio{Samples: s, SampleRate: rate}, nil
}

func TestSynthesizePlacesClipsWithAutoShift(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{durMS: map[string]int{"A": 2000}}
	out := filepath.Join(t.TempDir(), "dub.wav")
	track, err := New(tts).Synthesize(context.Background(), Request{
		Lines:      []types.ScriptLine{{Start: 0, Text: "A"}, {Start: 0.01, Text: "B"}},
		OutputPath: out,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(track.Placements) != 2 {
		t.Fatalf("placements: %+v", track.Placements)
	}
	if got := track.Placements[1].ResolvedStartMS; got < 2050 {
		t.Fatalf("B placed at %dms, want >= 2050", got)
	}
	if !track.Written || track.Duration != 2550*time.Millisecond || track.Content != 2550*time.Millisecond {
		t.Fatalf("unexpected track %+v", track)
	}
}

func TestSynthesizeReportsContentBeforeCropping(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{durMS: map[string]int{"A": 2000}}
	track, err := New(tts).Synthesize(context.Background(), Request{
		Lines:          []types.ScriptLine{{Start: 0.5, Text: "A"}},
		OutputPath:     filepath.Join(t.TempDir(), "dub.wav"),
		TargetDuration: time.Second,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if track.Duration != time.Second || track.Content != 2500*time.Millisecond {
		t.Fatalf("duration %v content %v, want 1s and 2.5s", track.Duration, track.Content)
	}
}

func TestSynthesizeToleratesFailures(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{fail: map[string]bool{"two": true}}
	out := filepath.Join(t.TempDir(), "dub.wav")
	track, err := New(tts).Synthesize(context.Background(), Request{
		Lines: []types.ScriptLine{
			{Start: 0, Text: "one"},
			{Start: 1, Text: "two"},
			{Start: 2, Text: "   "},
			{Start: 3, Text: "four"},
		},
		OutputPath:     out,
		TargetDuration: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if track.Synthesized != 2 || len(track.Failed) != 1 || track.Failed[0] != 1 {
		t.Fatalf("unexpected track %+v", track)
	}
	if len(track.Lines) != 2 || track.Lines[1] != 3 {
		t.Fatalf("line indexes %v", track.Lines)
	}
	if len(tts.calls) != 3 {
		t.Fatalf("blank line must not be synthesized, calls=%+v", tts.calls)
	}

	got, err := timeline.ReadWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.DurationMS() != 5000 {
		t.Fatalf("duration %dms", got.DurationMS())
	}
}

func TestSynthesizeRunOverridesVoice(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{}
	_, err := New(tts).Synthesize(context.Background(), Request{
		Lines: []types.ScriptLine{
			{Start: 0, Text: "a", Speaker: "Vivian", Language: "French", Instruct: "happy"},
			{Start: 1, Text: "b"},
		},
		OutputPath: filepath.Join(t.TempDir(), "dub.wav"),
		Speaker:    "Ryan",
		Language:   "Chinese",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range tts.calls {
		if c.speaker != "Ryan" || c.language != "Chinese" {
			t.Fatalf("run voice must win: %+v", c)
		}
	}
	if tts.calls[0].instruct != "happy" {
		t.Fatalf("instruct should pass through: %+v", tts.calls[0])
	}
}

func TestSynthesizeKeepsLineVoiceWithoutOverride(t *testing.T) {
	t.Parallel()

	tts := &fakeTTS{}
	_, err := New(tts).Synthesize(context.Background(), Request{
		Lines:      []types.ScriptLine{{Start: 0, Text: "a", Speaker: "Vivian", Language: "French"}},
		OutputPath: filepath.Join(t.TempDir(), "dub.wav"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c := tts.calls[0]; c.speaker != "Vivian" || c.language != "French" {
		t.Fatalf("got %+v", c)
	}
}

func TestStreamCancellation(t *testing.T) {
	t.Parallel()

	flag := &runctl.Flag{}
	tts := &fakeTTS{}
	tts.onCall = func(text string) {
		if text == "b" {
			flag.Set()
		}
	}
	out := filepath.Join(t.TempDir(), "dub.wav")
	_, err := New(tts).Synthesize(context.Background(), Request{
		Lines:      []types.ScriptLine{{Start: 0, Text: "a"}, {Start: 1, Text: "b"}, {Start: 2, Text: "c"}},
		OutputPath: out,
		Cancel:     flag,
	}, nil)
	if !errors.Is(err, runctl.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(tts.calls) != 2 {
		t.Fatalf("no synthesis after cancel, calls=%+v", tts.calls)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("cancelled run must not export a track")
	}
}

func TestStreamProgress(t *testing.T) {
	t.Parallel()

	var msgs []string
	var fracs []float64
	_, err := New(&fakeTTS{}).Synthesize(context.Background(), Request{
		Lines:      []types.ScriptLine{{Start: 1.2, Text: "hello there"}, {Start: 3, Text: "bye"}},
		OutputPath: filepath.Join(t.TempDir(), "dub.wav"),
	}, func(ev progress.Event[Track]) {
		msgs = append(msgs, ev.Message)
		fracs = append(fracs, ev.Fraction)
	})
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0] != "[1/2] Generating at 1.20s: hello there" {
		t.Fatalf("message %q", msgs[0])
	}
	if fracs[0] != 0 || fracs[1] != 0.5 || fracs[len(fracs)-1] != 1 {
		t.Fatalf("fractions %v", fracs)
	}
}

func TestDebugDumps(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "debug")
	_, err := New(&fakeTTS{}, WithDebugDir(dir)).Synthesize(context.Background(), Request{
		Lines:      []types.ScriptLine{{Start: 0, Text: "a"}, {Start: 1.5, Text: "b"}},
		OutputPath: filepath.Join(t.TempDir(), "dub.wav"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"seg_000_0.00s.wav", "seg_001_1.50s.wav"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing dump %s: %v", name, err)
		}
	}
}

func TestSynthesizeEmptyScript(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "dub.wav")
	track, err := New(&fakeTTS{}).Synthesize(context.Background(), Request{OutputPath: out}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if track.Written {
		t.Fatal("empty script without target should write nothing")
	}

	track, err = New(&fakeTTS{}).Synthesize(context.Background(), Request{OutputPath: out, TargetDuration: time.Second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !track.Written || track.Duration != time.Second {
		t.Fatalf("unexpected track %+v", track)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 60)
	if got := preview(long); got != strings.Repeat("x", previewRunes)+"..." {
		t.Fatalf("got %q", got)
	}
	if got := preview(" a \n b "); got != "a b" {
		t.Fatalf("got %q", got)
	}
}
