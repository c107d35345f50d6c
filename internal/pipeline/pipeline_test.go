package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/forPelevin/voxdub/internal/config"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/translation"
	"github.com/forPelevin/voxdub/internal/types"
	"github.com/forPelevin/voxdub/internal/usecase"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Video.mp4", now, "3f2a9c1e-0000-4000-8000-000000000000")
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if base := filepath.Base(got); base != "my-cool-video-20260212-103045Z-3f2a9c" {
		t.Fatalf("unexpected run dir format: %s", base)
	}

	fallback := filepath.Base(buildRunOutDir("out", "/tmp/___.mp4", now, ""))
	if !strings.HasPrefix(fallback, "input-20260212-103045Z-") || len(fallback) != len("input-20260212-103045Z-")+6 {
		t.Fatalf("unexpected fallback run dir: %s", fallback)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
		"Интервью 1":        "интервью-1",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestRelTo(t *testing.T) {
	dir := filepath.Join("/runs", "a")
	if got := relTo(dir, filepath.Join(dir, "sub", "x.srt")); got != "sub/x.srt" {
		t.Fatalf("unexpected rel path %q", got)
	}
	outside := filepath.Join("/cache", "dubbed.wav")
	if got := relTo(dir, outside); got != outside {
		t.Fatalf("paths outside the run dir stay absolute, got %q", got)
	}
	if got := relTo(dir, ""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
}

func TestRunWritesManifest(t *testing.T) {
	p, cfg, input := newTestPipeline(t)

	out, err := p.Run(context.Background(), Request{
		RunID:      "11111111-2222-3333-4444-555555555555",
		Input:      input,
		SourceLang: "en",
		TargetLang: "fr",
		Dubbing:    true,
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Dir(out.RunDir) != cfg.Paths.OutDir {
		t.Fatalf("run dir %s not under %s", out.RunDir, cfg.Paths.OutDir)
	}
	if !strings.HasSuffix(out.RunDir, "-111111") {
		t.Fatalf("run dir should end in the run id prefix: %s", out.RunDir)
	}

	b, err := os.ReadFile(out.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.RunID != "11111111-2222-3333-4444-555555555555" || m.TargetLang != "fr" || m.SourceLang != "en" {
		t.Fatalf("unexpected manifest header: %+v", m)
	}
	if !m.Dubbed || m.Lines != 1 || m.Translator != "fake" {
		t.Fatalf("unexpected manifest body: %+v", m)
	}
	if m.OriginalSRT != usecase.OriginalSRT || m.Script != usecase.ScriptFile {
		t.Fatalf("expected run-relative artifact paths, got %q %q", m.OriginalSRT, m.Script)
	}
	if !strings.HasPrefix(m.AudioTrack, cfg.Paths.CacheDir) {
		t.Fatalf("expected work-dir audio track, got %q", m.AudioTrack)
	}
	if m.SubtitleMode != "hard" {
		t.Fatalf("expected config subtitle mode, got %q", m.SubtitleMode)
	}
}

func TestRunFailsFastWhenLocked(t *testing.T) {
	p, cfg, input := newTestPipeline(t)
	if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}
	held := flock.New(filepath.Join(cfg.Paths.CacheDir, lockName))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err = p.Run(context.Background(), Request{Input: input, TargetLang: "fr", Dubbing: true}, nil)
	if !errors.Is(err, runctl.ErrValidation) || !strings.Contains(err.Error(), "another voxdub run") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestRunReleasesLock(t *testing.T) {
	p, cfg, input := newTestPipeline(t)
	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), Request{Input: input, TargetLang: "fr"}, nil); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	fl := flock.New(filepath.Join(cfg.Paths.CacheDir, lockName))
	ok, err := fl.TryLock()
	if err != nil || !ok {
		t.Fatalf("lock should be free after runs: ok=%v err=%v", ok, err)
	}
	_ = fl.Unlock()
}

func TestRunReportsMissingCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	p, err := New(&cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = p.Run(context.Background(), Request{Input: "in.mp4", TargetLang: "fr"}, nil)
	if !errors.Is(err, runctl.ErrConfiguration) || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing translator key, got %v", err)
	}

	_, err = p.Synth(context.Background(), SynthRequest{Script: "s.json", Output: "o.wav"}, nil)
	if !errors.Is(err, runctl.ErrConfiguration) || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing tts key, got %v", err)
	}
}

func TestEnginesDescribe(t *testing.T) {
	cfg := config.Default()
	cfg.Translate.Engine = config.EngineDeepL
	cfg.DeepL.APIKey = "key:fx"
	cfg.OpenAI.APIKey = "sk-test"
	p, err := New(&cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := p.engines.translators.Default(); got != config.EngineDeepL {
		t.Fatalf("configured translator should be the default, got %q", got)
	}

	rows := p.Engines()
	find := func(kind, name string) (EngineInfo, bool) {
		for _, r := range rows {
			if r.Kind == kind && r.Name == name {
				return r, true
			}
		}
		return EngineInfo{}, false
	}
	if r, ok := find("translator", config.EngineDeepL); !ok || !r.Available || !r.Selected {
		t.Fatalf("deepl row: %+v ok=%v", r, ok)
	}
	if r, ok := find("translator", config.EngineOpenRouter); !ok || r.Available || r.Reason == "" {
		t.Fatalf("openrouter row: %+v ok=%v", r, ok)
	}
	if r, ok := find("tts", config.EngineOpenAI); !ok || !r.Available {
		t.Fatalf("tts row: %+v ok=%v", r, ok)
	}
	if r, ok := find("asr", config.EngineWhisperCPP); !ok || !r.Available {
		t.Fatalf("asr row: %+v ok=%v", r, ok)
	}
}

func TestSynthWritesTrack(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	out := filepath.Join(t.TempDir(), "track.wav")
	res, err := p.Synth(context.Background(), SynthRequest{
		Lines:  []types.ScriptLine{{Start: 0, Text: "bonjour"}},
		Output: out,
	}, nil)
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	if !res.Track.Written {
		t.Fatalf("expected a written track")
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *config.Config, string) {
	t.Helper()
	tmp := t.TempDir()
	input := filepath.Join(tmp, "clip.mp4")
	if err := os.WriteFile(input, []byte("video"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfg := config.Default()
	cfg.Paths.OutDir = filepath.Join(tmp, "out")
	cfg.Paths.CacheDir = filepath.Join(tmp, "cache")
	cfg.Translate.Engine = "fake"

	p, err := New(&cfg, nil, WithDeps(usecase.Deps{
		Video:       stubVideo{},
		ASR:         stubASR{},
		Translators: translation.NewRegistry(stubTranslator{}),
		TTS:         stubTTS{},
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return p, &cfg, input
}

type stubVideo struct{}

func (stubVideo) ProbeDuration(context.Context, string) (time.Duration, error) {
	return 2 * time.Second, nil
}

func (stubVideo) ExtractAudio(_ context.Context, _, out string, _ ports.AudioFormat) error {
	return os.WriteFile(out, []byte("wav"), 0o644)
}

func (stubVideo) TranscodeAudio(context.Context, string, string) error { return nil }

func (stubVideo) StartMux(context.Context, ports.MuxRequest) (ports.Process, error) {
	return stubProcess{r: strings.NewReader("out_time_us=2000000\nprogress=end\n")}, nil
}

type stubProcess struct{ r io.Reader }

func (p stubProcess) Output() io.Reader { return p.r }
func (stubProcess) Kill() error         { return nil }
func (stubProcess) Wait() error         { return nil }

type stubASR struct{}

func (stubASR) Transcribe(context.Context, string, string) (types.Transcript, error) {
	return types.Transcript{Segments: []types.Segment{{Start: 0, End: 1, Text: "hello"}}}, nil
}

type stubTranslator struct{}

func (stubTranslator) Name() string { return "fake" }

func (stubTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return "bonjour " + text, nil
}

type stubTTS struct{}

func (stubTTS) Synthesize(context.Context, string, string, string, string) (types.Audio, error) {
	return types.Audio{Samples: make([]float32, 2400), SampleRate: 24000}, nil
}
