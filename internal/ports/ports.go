package ports

import (
	"context"
	"io"
	"time"

	"github.com/forPelevin/voxdub/internal/types"
)

type AudioFormat struct {
	SampleRate int
	Channels   int
}

var (
	// PassthroughAudio is the track kept when dubbing is disabled.
	PassthroughAudio = AudioFormat{SampleRate: 44100, Channels: 2}
	// SpeechAudio is what ASR engines expect.
	SpeechAudio = AudioFormat{SampleRate: 16000, Channels: 1}
)

type SubtitleMode string

const (
	SubtitlesHard SubtitleMode = "hard"
	SubtitlesSoft SubtitleMode = "soft"
)

type MuxRequest struct {
	Video  string
	Audio  string
	Output string
	Mode   SubtitleMode
	// SRT is embedded as a soft track. Empty means no subtitle stream.
	SRT string
	// BurnFile is rendered into the picture in hard mode; SRT is used when
	// empty.
	BurnFile string
}

// Process is a running encoder. Output merges stdout and stderr and reaches
// EOF when the process exits.
type Process interface {
	Output() io.Reader
	Kill() error
	Wait() error
}

type VideoTool interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	ExtractAudio(ctx context.Context, inVideo, outWav string, f AudioFormat) error
	TranscodeAudio(ctx context.Context, inPath, outPath string) error
	StartMux(ctx context.Context, req MuxRequest) (Process, error)
}

type ASR interface {
	// Transcribe returns ordered segments. An empty languageHint asks the
	// engine to detect the language.
	Transcribe(ctx context.Context, audioPath, languageHint string) (types.Transcript, error)
}

type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type Synthesizer interface {
	// Synthesize returns mono audio for text. Empty text is an error.
	Synthesize(ctx context.Context, text, speaker, language, instruct string) (types.Audio, error)
}
