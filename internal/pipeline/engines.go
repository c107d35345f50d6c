package pipeline

import (
	"path/filepath"
	"sort"

	"github.com/forPelevin/voxdub/internal/config"
	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/ports/adapters/deepl"
	"github.com/forPelevin/voxdub/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/voxdub/internal/ports/adapters/openai"
	"github.com/forPelevin/voxdub/internal/ports/adapters/openrouter"
	"github.com/forPelevin/voxdub/internal/ports/adapters/piper"
	"github.com/forPelevin/voxdub/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/voxdub/internal/translation"
	"github.com/forPelevin/voxdub/internal/usecase"
)

// EngineInfo is one row of `voxdub translators`.
type EngineInfo struct {
	Kind      string
	Name      string
	Available bool
	Selected  bool
	Reason    string
}

type engines struct {
	video       ports.VideoTool
	asr         ports.ASR
	tts         ports.Synthesizer
	translators *translation.Registry
	// missing maps an engine key to why it could not be built. Translators
	// use their bare name; speech engines are prefixed "asr:" or "tts:".
	missing map[string]string
}

func buildEngines(cfg *config.Config) engines {
	e := engines{
		video:       ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		translators: translation.NewRegistry(),
		missing:     map[string]string{},
	}

	var oa *openai.Adapter
	if cfg.OpenAI.APIKey != "" {
		oa = openai.New(openai.Config{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Organization: cfg.OpenAI.Organization,
			ChatModel:    cfg.OpenAI.ChatModel,
			TTSModel:     cfg.OpenAI.TTSModel,
			ASRModel:     cfg.OpenAI.ASRModel,
			Voice:        cfg.TTS.Speaker,
		})
	}

	switch cfg.ASR.Engine {
	case config.EngineOpenAI:
		if oa != nil {
			e.asr = oa
		} else {
			e.missing["asr:"+config.EngineOpenAI] = "OPENAI_API_KEY is not set"
		}
	default:
		e.asr = whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel, filepath.Join(cfg.Paths.CacheDir, "whisper"))
	}

	switch cfg.TTS.Engine {
	case config.EnginePiper:
		e.tts = piper.New(cfg.Tools.PiperBin, cfg.Tools.PiperModelDir, cfg.TTS.Speaker, cfg.Paths.CacheDir)
	default:
		if oa != nil {
			e.tts = oa
		} else {
			e.missing["tts:"+config.EngineOpenAI] = "OPENAI_API_KEY is not set"
		}
	}

	// The configured translator is registered first so it is the default.
	builders := map[string]func() (ports.Translator, string){
		config.EngineOpenRouter: func() (ports.Translator, string) {
			if cfg.OpenRouter.APIKey == "" {
				return nil, "OPENROUTER_API_KEY is not set"
			}
			return openrouter.New(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.BaseURL), ""
		},
		config.EngineOpenAI: func() (ports.Translator, string) {
			if oa == nil {
				return nil, "OPENAI_API_KEY is not set"
			}
			return oa, ""
		},
		config.EngineDeepL: func() (ports.Translator, string) {
			if cfg.DeepL.APIKey == "" {
				return nil, "DEEPL_API_KEY is not set"
			}
			return deepl.New(cfg.DeepL.APIKey, cfg.DeepL.BaseURL, cfg.DeepL.Formality), ""
		},
	}
	order := []string{cfg.Translate.Engine}
	for _, name := range []string{config.EngineOpenRouter, config.EngineOpenAI, config.EngineDeepL} {
		if name != cfg.Translate.Engine {
			order = append(order, name)
		}
	}
	for _, name := range order {
		build, ok := builders[name]
		if !ok {
			continue
		}
		t, reason := build()
		if t == nil {
			e.missing[name] = reason
			continue
		}
		e.translators.Register(t)
	}
	return e
}

func enginesFromDeps(d usecase.Deps) engines {
	return engines{
		video:       d.Video,
		asr:         d.ASR,
		tts:         d.TTS,
		translators: d.Translators,
		missing:     map[string]string{},
	}
}

func (e engines) describe(cfg *config.Config) []EngineInfo {
	var out []EngineInfo
	for _, name := range e.translators.Names() {
		out = append(out, EngineInfo{Kind: "translator", Name: name, Available: true, Selected: name == cfg.Translate.Engine})
	}
	for key, reason := range e.missing {
		kind, name := "translator", key
		switch {
		case len(key) > 4 && key[:4] == "asr:":
			kind, name = "asr", key[4:]
		case len(key) > 4 && key[:4] == "tts:":
			kind, name = "tts", key[4:]
		}
		out = append(out, EngineInfo{Kind: kind, Name: name, Reason: reason, Selected: isSelected(cfg, kind, name)})
	}
	if e.asr != nil {
		out = append(out, EngineInfo{Kind: "asr", Name: cfg.ASR.Engine, Available: true, Selected: true})
	}
	if e.tts != nil {
		out = append(out, EngineInfo{Kind: "tts", Name: cfg.TTS.Engine, Available: true, Selected: true})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func isSelected(cfg *config.Config, kind, name string) bool {
	switch kind {
	case "asr":
		return cfg.ASR.Engine == name
	case "tts":
		return cfg.TTS.Engine == name
	default:
		return cfg.Translate.Engine == name
	}
}

// ensure adapters implement ports
var (
	_ ports.VideoTool   = (*ffmpeg.Adapter)(nil)
	_ ports.ASR         = (*whispercpp.Adapter)(nil)
	_ ports.ASR         = (*openai.Adapter)(nil)
	_ ports.Translator  = (*openai.Adapter)(nil)
	_ ports.Translator  = (*openrouter.Adapter)(nil)
	_ ports.Translator  = (*deepl.Translator)(nil)
	_ ports.Synthesizer = (*openai.Adapter)(nil)
	_ ports.Synthesizer = (*piper.Adapter)(nil)
)
