package piper

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/types"
)

func TestModelPath(t *testing.T) {
	a := New("", "/models", "en_US-ryan-high", "")
	tests := []struct {
		speaker string
		want    string
	}{
		{speaker: "", want: "/models/en_US-ryan-high.onnx"},
		{speaker: "de_DE-thorsten-medium", want: "/models/de_DE-thorsten-medium.onnx"},
		{speaker: "custom.onnx", want: "/models/custom.onnx"},
		{speaker: "/abs/voice.onnx", want: "/abs/voice.onnx"},
	}
	for _, tt := range tests {
		got, err := a.modelPath(tt.speaker)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Fatalf("modelPath(%q) = %q, want %q", tt.speaker, got, tt.want)
		}
	}
	if _, err := New("", "/models", "", "").modelPath(""); err == nil {
		t.Fatal("expected error without a voice")
	}
}

// A stand-in piper binary copies a prepared WAV to --output_file.
func TestSynthesizeRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.wav")
	if err := timeline.WriteWAV(fixture, types.Audio{Samples: make([]float32, 2205), SampleRate: 22050}); err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "piper")
	script := "#!/bin/sh\nwhile [ $# -gt 0 ]; do if [ \"$1\" = --output_file ]; then out=$2; fi; shift; done\ncat >/dev/null\ncp " + fixture + " \"$out\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := New(bin, dir, "voice", dir).Synthesize(context.Background(), "hello", "", "English", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.SampleRate != 22050 || got.DurationMS() != 100 {
		t.Fatalf("unexpected audio: rate=%d duration=%dms", got.SampleRate, got.DurationMS())
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	if _, err := New("", "", "v", "").Synthesize(context.Background(), "", "", "", ""); err == nil {
		t.Fatal("expected error")
	}
}
