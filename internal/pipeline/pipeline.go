package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/voxdub/internal/config"
	"github.com/forPelevin/voxdub/internal/logging"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
	"github.com/forPelevin/voxdub/internal/usecase"
)

const (
	lockName     = "voxdub.lock"
	manifestName = "manifest.json"
)

// Pipeline owns the collaborators for one process and runs dubbing jobs
// against them, one at a time per cache directory.
type Pipeline struct {
	cfg     *config.Config
	log     *slog.Logger
	engines engines
	uc      *usecase.Usecase
	now     func() time.Time
}

type Option func(*options)

type options struct {
	debugDir string
	now      func() time.Time
	deps     *usecase.Deps
}

// WithDebugDir dumps every synthesized line as a WAV into dir.
func WithDebugDir(dir string) Option {
	return func(o *options) { o.debugDir = dir }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDeps replaces the engines built from config, for tests.
func WithDeps(d usecase.Deps) Option {
	return func(o *options) { o.deps = &d }
}

// New builds the engines selected in cfg. Engines whose credentials are
// missing are recorded as unavailable rather than failing here, so a run
// that does not need them still works.
func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", runctl.ErrConfiguration)
	}
	if log == nil {
		log = logging.Discard()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{cfg: cfg, log: log, now: o.now}
	var deps usecase.Deps
	if o.deps != nil {
		deps = *o.deps
		p.engines = enginesFromDeps(deps)
	} else {
		p.engines = buildEngines(cfg)
		deps = usecase.Deps{
			Video:       p.engines.video,
			ASR:         p.engines.asr,
			Translators: p.engines.translators,
			TTS:         p.engines.tts,
		}
	}
	deps.Log = log
	deps.Clock = o.now
	deps.DebugDir = o.debugDir
	p.uc = usecase.New(deps)
	return p, nil
}

// Cancel stops the active job at its next checkpoint.
func (p *Pipeline) Cancel() { p.uc.Cancel() }

// Engines describes every engine the config knows about.
func (p *Pipeline) Engines() []EngineInfo {
	return p.engines.describe(p.cfg)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

type Request struct {
	RunID      string
	Input      string
	SourceLang string
	TargetLang string
	Speaker    string
	// SubtitleMode, Translator and OutDir fall back to config when empty.
	SubtitleMode string
	Translator   string
	OutDir       string
	Dubbing      bool
	OutputVideo  string
}

type Outcome struct {
	RunID        string
	RunDir       string
	ManifestPath string
	Manifest     types.Manifest
	Result       usecase.Result
}

// Run executes one dubbing job and writes its manifest.
func (p *Pipeline) Run(ctx context.Context, req Request, onProgress func(progress.Event[usecase.Result])) (Outcome, error) {
	absIn, err := filepath.Abs(req.Input)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: resolve input: %w", runctl.ErrValidation, err)
	}
	runID := req.RunID
	if runID == "" {
		runID = NewRunID()
	}
	translator := strings.ToLower(strings.TrimSpace(req.Translator))
	if translator == "" {
		translator = p.cfg.Translate.Engine
	}
	if reason, ok := p.engines.missing[translator]; ok {
		return Outcome{}, fmt.Errorf("%w: translator %s is unavailable: %s", runctl.ErrConfiguration, translator, reason)
	}
	if reason, ok := p.engines.missing["asr:"+p.cfg.ASR.Engine]; ok {
		return Outcome{}, fmt.Errorf("%w: transcription engine %s is unavailable: %s", runctl.ErrConfiguration, p.cfg.ASR.Engine, reason)
	}
	if req.Dubbing {
		if reason, ok := p.engines.missing["tts:"+p.cfg.TTS.Engine]; ok {
			return Outcome{}, fmt.Errorf("%w: speech engine %s is unavailable: %s", runctl.ErrConfiguration, p.cfg.TTS.Engine, reason)
		}
	}

	unlock, err := p.lock()
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	outRoot := req.OutDir
	if outRoot == "" {
		outRoot = p.cfg.Paths.OutDir
	}
	runDir := buildRunOutDir(outRoot, absIn, p.now(), runID)
	workDir := filepath.Join(p.cfg.Paths.CacheDir, "runs", hash(absIn))
	log := p.log.With(slog.String(logging.FieldComponent, "pipeline"))
	log.Info("preparing workspace", slog.String("run_dir", runDir), slog.String("work_dir", workDir))

	mode := req.SubtitleMode
	if mode == "" {
		mode = p.cfg.Run.SubtitleMode
	}
	res, err := p.uc.Run(ctx, usecase.Input{
		VideoPath:    absIn,
		SourceLang:   orDefault(req.SourceLang, p.cfg.Translate.Source),
		TargetLang:   orDefault(req.TargetLang, p.cfg.Translate.Target),
		Speaker:      orDefault(req.Speaker, p.cfg.TTS.Speaker),
		SubtitleMode: ports.SubtitleMode(strings.ToLower(mode)),
		Translator:   translator,
		Dubbing:      req.Dubbing,
		WorkDir:      workDir,
		OutDir:       runDir,
		OutputVideo:  req.OutputVideo,
	}, onProgress)
	if err != nil {
		return Outcome{RunID: runID, RunDir: runDir}, err
	}

	m := buildManifest(runID, absIn, runDir, req, res)
	m.TargetLang = orDefault(req.TargetLang, p.cfg.Translate.Target)
	m.SubtitleMode = mode
	m.Speaker = orDefault(req.Speaker, p.cfg.TTS.Speaker)
	manifestPath, err := writeManifest(runDir, m)
	if err != nil {
		return Outcome{RunID: runID, RunDir: runDir, Result: res}, err
	}
	log.Info("manifest written", slog.String("path", manifestPath), slog.Int("lines", m.Lines))
	return Outcome{RunID: runID, RunDir: runDir, ManifestPath: manifestPath, Manifest: m, Result: res}, nil
}

type SynthRequest struct {
	Script   string
	Output   string
	Format   string
	Speaker  string
	Language string
	Duration time.Duration
	Video    string
	VideoOut string
	Lines    []types.ScriptLine
}

// Synth turns a script into an audio track, optionally muxed into a video.
func (p *Pipeline) Synth(ctx context.Context, req SynthRequest, onProgress func(progress.Event[usecase.ScriptResult])) (usecase.ScriptResult, error) {
	if reason, ok := p.engines.missing["tts:"+p.cfg.TTS.Engine]; ok {
		return usecase.ScriptResult{}, fmt.Errorf("%w: speech engine %s is unavailable: %s", runctl.ErrConfiguration, p.cfg.TTS.Engine, reason)
	}
	unlock, err := p.lock()
	if err != nil {
		return usecase.ScriptResult{}, err
	}
	defer unlock()

	return p.uc.DubScript(ctx, usecase.ScriptInput{
		Lines:      req.Lines,
		ScriptPath: req.Script,
		OutputPath: req.Output,
		Format:     req.Format,
		Speaker:    orDefault(req.Speaker, p.cfg.TTS.Speaker),
		Language:   req.Language,
		Duration:   req.Duration,
		Video:      req.Video,
		VideoOut:   req.VideoOut,
	}, onProgress)
}

// lock takes the per-cache advisory lock so two runs never share a work dir.
func (p *Pipeline) lock() (func(), error) {
	if err := os.MkdirAll(p.cfg.Paths.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %w", runctl.ErrConfiguration, err)
	}
	path := filepath.Join(p.cfg.Paths.CacheDir, lockName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another voxdub run is active (lock %s)", runctl.ErrValidation, path)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			p.log.Warn("failed to release run lock", slog.String("error", err.Error()))
		}
	}, nil
}

func buildManifest(runID, input, runDir string, req Request, res usecase.Result) types.Manifest {
	return types.Manifest{
		RunID:         runID,
		Input:         input,
		SourceLang:    res.SourceLang,
		Translator:    res.Translator,
		Dubbed:        req.Dubbing && res.AudioTrack != "" && filepath.Base(res.AudioTrack) == usecase.DubbedAudio,
		DurationSec:   res.VideoDuration.Seconds(),
		Video:         relTo(runDir, res.OutputVideo),
		AudioTrack:    res.AudioTrack,
		OriginalSRT:   relTo(runDir, res.OriginalSRT),
		TranslatedSRT: relTo(runDir, res.TranslatedSRT),
		Script:        relTo(runDir, res.ScriptPath),
		Lines:         len(res.Lines),
		FailedLines:   res.Failed,
		Warnings:      res.Warnings,
	}
}

func writeManifest(runDir string, m types.Manifest) (string, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(runDir, manifestName)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// relTo returns path relative to dir with forward slashes when it lives
// inside dir, and path unchanged otherwise.
func relTo(dir, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func buildRunOutDir(outRoot, input string, now time.Time, runID string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	suffix := strings.ReplaceAll(runID, "-", "")
	if len(suffix) < 6 {
		suffix = hash(fmt.Sprintf("%s|%d", input, now.UTC().UnixNano()))
	}
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix[:6]))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
