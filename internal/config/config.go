package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds output and scratch locations.
type Paths struct {
	OutDir   string `toml:"out_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Tools locates the external binaries and local models.
type Tools struct {
	FFmpeg        string `toml:"ffmpeg"`
	FFprobe       string `toml:"ffprobe"`
	WhisperBin    string `toml:"whisper_bin"`
	WhisperModel  string `toml:"whisper_model"`
	PiperBin      string `toml:"piper_bin"`
	PiperModelDir string `toml:"piper_model_dir"`
}

type ASR struct {
	Engine string `toml:"engine"`
}

type TTS struct {
	Engine  string `toml:"engine"`
	Speaker string `toml:"speaker"`
}

type Translate struct {
	Engine string `toml:"engine"`
	Source string `toml:"source"`
	Target string `toml:"target"`
}

type OpenAI struct {
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url"`
	Organization string   `toml:"organization"`
	AllowedHosts []string `toml:"allowed_hosts"`
	ChatModel    string   `toml:"chat_model"`
	TTSModel     string   `toml:"tts_model"`
	ASRModel     string   `toml:"asr_model"`
}

type OpenRouter struct {
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url"`
	Model        string   `toml:"model"`
	AllowedHosts []string `toml:"allowed_hosts"`
}

type DeepL struct {
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url"`
	Formality    string   `toml:"formality"`
	AllowedHosts []string `toml:"allowed_hosts"`
}

// Run holds per-run defaults the CLI flags can override.
type Run struct {
	TimeoutMinutes int    `toml:"timeout_minutes"`
	SubtitleMode   string `toml:"subtitle_mode"`
	Dubbing        bool   `toml:"dubbing"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// File enables a per-run log file under paths.log_dir.
	File bool `toml:"file"`
}

// Config encapsulates all configuration values for voxdub.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Tools      Tools      `toml:"tools"`
	ASR        ASR        `toml:"asr"`
	TTS        TTS        `toml:"tts"`
	Translate  Translate  `toml:"translate"`
	OpenAI     OpenAI     `toml:"openai"`
	OpenRouter OpenRouter `toml:"openrouter"`
	DeepL      DeepL      `toml:"deepl"`
	Run        Run        `toml:"run"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and env overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config %s: %w\n%s", resolvedPath, err, strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// Timeout is the overall deadline for one run.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Run.TimeoutMinutes) * time.Minute
}

// EnsureDirectories creates the cache and log directories. Output
// directories are created per run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir}
	if c.Logging.File {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Encode renders the effective config as TOML with secrets masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	masked.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	masked.OpenRouter.APIKey = mask(c.OpenRouter.APIKey)
	masked.DeepL.APIKey = mask(c.DeepL.APIKey)
	b, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return b, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path rules (~ expansion, absolute) to p.
func ExpandPath(p string) (string, error) {
	return expandPath(p)
}

// CreateSample writes the sample configuration to path, refusing to
// overwrite an existing file unless force is set.
func CreateSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
