// Package piper runs the piper CLI as a local speech synthesizer.
package piper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/types"
)

type Adapter struct {
	bin      string
	modelDir string
	voice    string
	workDir  string
}

// New returns a piper adapter. Speakers name voice models in modelDir
// (e.g. "en_US-ryan-high" for en_US-ryan-high.onnx); voice is used when the
// request names none.
func New(binPath, modelDir, voice, workDir string) *Adapter {
	if binPath == "" {
		binPath = "piper"
	}
	return &Adapter{bin: binPath, modelDir: modelDir, voice: voice, workDir: workDir}
}

// Synthesize feeds text on stdin and decodes the WAV piper writes. Piper
// voices are single-language, so language and instruct are ignored.
func (a *Adapter) Synthesize(ctx context.Context, text, speaker, _, _ string) (types.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Audio{}, errors.New("piper: empty text")
	}
	model, err := a.modelPath(speaker)
	if err != nil {
		return types.Audio{}, err
	}

	out, err := os.CreateTemp(a.workDir, "piper-*.wav")
	if err != nil {
		return types.Audio{}, fmt.Errorf("piper: temp file: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, a.bin, "--model", model, "--output_file", outPath)
	cmd.Stdin = strings.NewReader(text + "\n")
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Audio{}, fmt.Errorf("piper failed: %w\n%s", err, string(b))
	}

	audio, err := timeline.ReadWAV(outPath)
	if err != nil {
		return types.Audio{}, fmt.Errorf("piper: %w", err)
	}
	return audio, nil
}

func (a *Adapter) modelPath(speaker string) (string, error) {
	voice := strings.TrimSpace(speaker)
	if voice == "" {
		voice = a.voice
	}
	if voice == "" {
		return "", errors.New("piper: no voice configured")
	}
	if filepath.IsAbs(voice) || strings.HasSuffix(voice, ".onnx") {
		if !filepath.IsAbs(voice) {
			voice = filepath.Join(a.modelDir, voice)
		}
		return voice, nil
	}
	return filepath.Join(a.modelDir, voice+".onnx"), nil
}
