package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/voxdub/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	cacheDir string
}

// New returns a whisper.cpp CLI adapter. JSON output is written under cacheDir.
func New(binPath, modelPath, cacheDir string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath, cacheDir: cacheDir}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath, languageHint string) (types.Transcript, error) {
	dir := a.cacheDir
	if dir == "" {
		dir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Transcript{}, err
	}
	outPrefix := filepath.Join(dir, "whisper")

	lang := strings.TrimSpace(languageHint)
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", a.model,
		"-f", audioPath,
		"-l", lang,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp json: %w", err)
	}
	tr := types.Transcript{
		Language: strings.TrimSpace(out.Result.Language),
		Segments: make([]types.Segment, 0, len(out.Transcription)),
	}
	for _, s := range out.Transcription {
		tr.Segments = append(tr.Segments, types.Segment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return tr, nil
}
