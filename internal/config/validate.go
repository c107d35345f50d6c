package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/forPelevin/voxdub/internal/langs"
	"github.com/forPelevin/voxdub/internal/ports/adapters/deepl"
	"github.com/forPelevin/voxdub/internal/ports/adapters/openai"
	"github.com/forPelevin/voxdub/internal/ports/adapters/openrouter"
)

var (
	asrEngines        = []string{EngineWhisperCPP, EngineOpenAI}
	ttsEngines        = []string{EngineOpenAI, EnginePiper}
	translatorEngines = []string{EngineOpenRouter, EngineOpenAI, EngineDeepL}
)

// Validate ensures the configuration is usable. Credentials are checked
// later, when the engine that needs them is built.
func (c *Config) Validate() error {
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngines() error {
	if !slices.Contains(asrEngines, c.ASR.Engine) {
		return fmt.Errorf("asr.engine must be one of %s, got %q", strings.Join(asrEngines, ", "), c.ASR.Engine)
	}
	if !slices.Contains(ttsEngines, c.TTS.Engine) {
		return fmt.Errorf("tts.engine must be one of %s, got %q", strings.Join(ttsEngines, ", "), c.TTS.Engine)
	}
	if !slices.Contains(translatorEngines, c.Translate.Engine) {
		return fmt.Errorf("translate.engine must be one of %s, got %q", strings.Join(translatorEngines, ", "), c.Translate.Engine)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if !langs.IsAuto(c.Translate.Source) {
		if _, ok := langs.Normalize(c.Translate.Source); !ok {
			return fmt.Errorf("translate.source %q is not a language code", c.Translate.Source)
		}
	}
	if c.Translate.Target != "" {
		if _, ok := langs.Normalize(c.Translate.Target); !ok {
			return fmt.Errorf("translate.target %q is not a language code", c.Translate.Target)
		}
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.TimeoutMinutes < 0 {
		return errors.New("run.timeout_minutes must be positive")
	}
	switch c.Run.SubtitleMode {
	case "hard", "soft":
	default:
		return fmt.Errorf("run.subtitle_mode must be hard or soft, got %q", c.Run.SubtitleMode)
	}
	switch c.DeepL.Formality {
	case "", "default", "more", "less", "prefer_more", "prefer_less":
	default:
		return fmt.Errorf("deepl.formality %q is not supported", c.DeepL.Formality)
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	if c.OpenAI.BaseURL != "" {
		if err := openai.BaseURLPolicy.Validate(c.OpenAI.BaseURL, c.OpenAI.AllowedHosts); err != nil {
			return err
		}
	}
	if c.OpenRouter.BaseURL != "" {
		if err := openrouter.ValidateBaseURL(c.OpenRouter.BaseURL, c.OpenRouter.AllowedHosts); err != nil {
			return err
		}
	}
	if c.DeepL.BaseURL != "" {
		if err := deepl.BaseURLPolicy.Validate(c.DeepL.BaseURL, c.DeepL.AllowedHosts); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
