package types

import "time"

type Transcript struct {
	// Language is the language the ASR engine detected, if it reports one.
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ScriptLine is one timed line of a dubbing script.
type ScriptLine struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end,omitempty"`
	Text     string  `json:"text"`
	Speaker  string  `json:"speaker,omitempty"`
	Language string  `json:"language,omitempty"`
	Instruct string  `json:"instruct,omitempty"`
}

// Audio is mono float PCM in [-1, 1].
type Audio struct {
	Samples    []float32
	SampleRate int
}

// Duration reports the buffer length rounded to the millisecond.
func (a Audio) Duration() time.Duration {
	return time.Duration(a.DurationMS()) * time.Millisecond
}

func (a Audio) DurationMS() int64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return (int64(len(a.Samples))*1000 + int64(a.SampleRate)/2) / int64(a.SampleRate)
}

type Manifest struct {
	RunID         string   `json:"run_id"`
	Input         string   `json:"input"`
	SourceLang    string   `json:"source_lang"`
	TargetLang    string   `json:"target_lang"`
	Speaker       string   `json:"speaker,omitempty"`
	Translator    string   `json:"translator"`
	SubtitleMode  string   `json:"subtitle_mode"`
	Dubbed        bool     `json:"dubbed"`
	DurationSec   float64  `json:"duration_sec"`
	Video         string   `json:"video"`
	AudioTrack    string   `json:"audio_track"`
	OriginalSRT   string   `json:"original_srt"`
	TranslatedSRT string   `json:"translated_srt"`
	Script        string   `json:"script"`
	Lines         int      `json:"lines"`
	FailedLines   []int    `json:"failed_lines,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}
