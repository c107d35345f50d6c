package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/forPelevin/voxdub/internal/ports/adapters/endpoint"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeEngines()
	c.normalizeProviders()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.OutDir) == "" {
		c.Paths.OutDir = defaultOutDir
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.OutDir, err = expandPath(c.Paths.OutDir); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	c.Tools.FFmpeg = orDefault(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.FFprobe = orDefault(c.Tools.FFprobe, defaultFFprobe)
	c.Tools.WhisperBin = orDefault(c.Tools.WhisperBin, defaultWhisperBin)
	c.Tools.PiperBin = orDefault(c.Tools.PiperBin, defaultPiperBin)

	var err error
	// Bare binary names stay as-is so PATH lookup still applies.
	for _, bin := range []*string{&c.Tools.FFmpeg, &c.Tools.FFprobe, &c.Tools.WhisperBin, &c.Tools.PiperBin} {
		if strings.ContainsAny(*bin, `/\`) || strings.HasPrefix(*bin, "~") {
			if *bin, err = expandPath(*bin); err != nil {
				return fmt.Errorf("tools: %w", err)
			}
		}
	}
	if c.Tools.WhisperModel, err = expandPath(orDefault(c.Tools.WhisperModel, defaultWhisperModel)); err != nil {
		return fmt.Errorf("tools.whisper_model: %w", err)
	}
	if c.Tools.PiperModelDir, err = expandPath(orDefault(c.Tools.PiperModelDir, defaultPiperModelDir)); err != nil {
		return fmt.Errorf("tools.piper_model_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngines() {
	c.ASR.Engine = strings.ToLower(orDefault(c.ASR.Engine, defaultASREngine))
	c.TTS.Engine = strings.ToLower(orDefault(c.TTS.Engine, defaultTTSEngine))
	c.TTS.Speaker = strings.TrimSpace(c.TTS.Speaker)
	c.Translate.Engine = strings.ToLower(orDefault(c.Translate.Engine, defaultTranslator))
	c.Translate.Source = strings.ToLower(orDefault(c.Translate.Source, defaultSourceLang))
	c.Translate.Target = strings.ToLower(strings.TrimSpace(c.Translate.Target))
	c.Run.SubtitleMode = strings.ToLower(orDefault(c.Run.SubtitleMode, defaultSubtitleMode))
	if c.Run.TimeoutMinutes == 0 {
		c.Run.TimeoutMinutes = defaultTimeoutMinutes
	}
}

// normalizeProviders fills credentials and endpoints from the environment
// when the file leaves them empty.
func (c *Config) normalizeProviders() {
	envDefault(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	envDefault(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	envDefault(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	envDefault(&c.OpenRouter.BaseURL, "OPENROUTER_BASE_URL")
	envDefault(&c.OpenRouter.Model, "OPENROUTER_MODEL")
	envDefault(&c.DeepL.APIKey, "DEEPL_API_KEY")
	if len(c.OpenRouter.AllowedHosts) == 0 {
		c.OpenRouter.AllowedHosts = endpoint.SplitHosts(os.Getenv("OPENROUTER_ALLOWED_HOSTS"))
	}
	c.DeepL.Formality = strings.ToLower(strings.TrimSpace(c.DeepL.Formality))
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
}

func envDefault(dst *string, key string) {
	*dst = strings.TrimSpace(*dst)
	if *dst != "" {
		return
	}
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
