// Package openai adapts the OpenAI API (or any compatible server) to the
// translation, speech synthesis and transcription ports.
package openai

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/voxdub/internal/langs"
	"github.com/forPelevin/voxdub/internal/ports/adapters/endpoint"
	"github.com/forPelevin/voxdub/internal/types"
)

const (
	defaultChatModel = "gpt-4o-mini"
	defaultVoice     = "alloy"

	// PCM responses are 16-bit little-endian mono at this rate.
	pcmSampleRate = 24000

	maxUploadBytes = 25 << 20
)

var BaseURLPolicy = endpoint.Policy{
	Setting:           "OPENAI_BASE_URL",
	HostsSetting:      "openai.allowed_hosts",
	DefaultURL:        "https://api.openai.com/v1",
	DefaultHosts:      []string{"api.openai.com"},
	AllowLoopbackHTTP: true,
}

type Config struct {
	APIKey       string
	BaseURL      string
	Organization string
	ChatModel    string
	TTSModel     string
	ASRModel     string
	// Voice is used when a request names no speaker.
	Voice string
}

type Adapter struct {
	client *gopenai.Client
	cfg    Config
}

func New(cfg Config) *Adapter {
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = string(gopenai.TTSModel1)
	}
	if cfg.ASRModel == "" {
		cfg.ASRModel = gopenai.Whisper1
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}

	aiConfig := gopenai.DefaultConfig(cfg.APIKey)
	aiConfig.OrgID = cfg.Organization
	aiConfig.BaseURL = BaseURLPolicy.Normalize(cfg.BaseURL)
	return &Adapter{client: gopenai.NewClientWithConfig(aiConfig), cfg: cfg}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("openai translate: empty text")
	}
	src := langs.Name(sourceLang)
	if langs.IsAuto(sourceLang) {
		src = "the source language"
	}
	systemPrompt := fmt.Sprintf(
		"Translate the user's text from %s to %s for a voice-over. "+
			"Keep a similar length and reply with the translation only.",
		src, langs.Name(targetLang),
	)

	resp, err := a.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: a.cfg.ChatModel,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai translate: no choices in response")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("openai translate: empty translation")
	}
	return out, nil
}

// Synthesize requests raw PCM so no decoder is needed. The instruct hint has
// no equivalent in the speech endpoint and is ignored.
func (a *Adapter) Synthesize(ctx context.Context, text, speaker, _, _ string) (types.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Audio{}, errors.New("openai speech: empty text")
	}
	voice := strings.ToLower(strings.TrimSpace(speaker))
	if voice == "" {
		voice = a.cfg.Voice
	}

	resp, err := a.client.CreateSpeech(ctx, gopenai.CreateSpeechRequest{
		Model:          gopenai.SpeechModel(a.cfg.TTSModel),
		Input:          text,
		Voice:          gopenai.SpeechVoice(voice),
		ResponseFormat: gopenai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return types.Audio{}, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	b, err := io.ReadAll(resp)
	if err != nil {
		return types.Audio{}, fmt.Errorf("openai speech: read body: %w", err)
	}
	return decodePCM16(b, pcmSampleRate), nil
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath, languageHint string) (types.Transcript, error) {
	st, err := os.Stat(audioPath)
	if err != nil {
		return types.Transcript{}, err
	}
	if st.Size() > maxUploadBytes {
		return types.Transcript{}, fmt.Errorf("openai transcription: %s is %d bytes, the API accepts at most %d", audioPath, st.Size(), maxUploadBytes)
	}

	req := gopenai.AudioRequest{
		Model:    a.cfg.ASRModel,
		FilePath: audioPath,
		Format:   gopenai.AudioResponseFormatVerboseJSON,
	}
	if !langs.IsAuto(languageHint) {
		req.Language = languageHint
	}
	resp, err := a.client.CreateTranscription(ctx, req)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("openai transcription: %w", err)
	}

	tr := types.Transcript{
		Language: langs.FromName(resp.Language),
		Segments: make([]types.Segment, 0, len(resp.Segments)),
	}
	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, types.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return tr, nil
}

func decodePCM16(b []byte, rate int) types.Audio {
	n := len(b) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(b[2*i:]))
		samples[i] = float32(v) / 32768
	}
	return types.Audio{Samples: samples, SampleRate: rate}
}
