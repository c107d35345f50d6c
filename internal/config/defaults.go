package config

const (
	defaultConfigPath     = "~/.config/voxdub/config.toml"
	projectConfigName     = "voxdub.toml"
	defaultOutDir         = "out"
	defaultCacheDir       = "~/.cache/voxdub"
	defaultLogDir         = "~/.local/share/voxdub/logs"
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultWhisperBin     = "whisper-cli"
	defaultWhisperModel   = "~/.cache/voxdub/models/ggml-base.bin"
	defaultPiperBin       = "piper"
	defaultPiperModelDir  = "~/.cache/voxdub/piper"
	defaultASREngine      = EngineWhisperCPP
	defaultTTSEngine      = EngineOpenAI
	defaultTranslator     = EngineOpenRouter
	defaultSourceLang     = "auto"
	defaultTimeoutMinutes = 360
	defaultSubtitleMode   = "hard"
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
)

// Engine names accepted in [asr], [tts] and [translate].
const (
	EngineWhisperCPP = "whispercpp"
	EngineOpenAI     = "openai"
	EnginePiper      = "piper"
	EngineOpenRouter = "openrouter"
	EngineDeepL      = "deepl"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutDir:   defaultOutDir,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:        defaultFFmpeg,
			FFprobe:       defaultFFprobe,
			WhisperBin:    defaultWhisperBin,
			WhisperModel:  defaultWhisperModel,
			PiperBin:      defaultPiperBin,
			PiperModelDir: defaultPiperModelDir,
		},
		ASR:       ASR{Engine: defaultASREngine},
		TTS:       TTS{Engine: defaultTTSEngine},
		Translate: Translate{Engine: defaultTranslator, Source: defaultSourceLang},
		Run: Run{
			TimeoutMinutes: defaultTimeoutMinutes,
			SubtitleMode:   defaultSubtitleMode,
			Dubbing:        true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
