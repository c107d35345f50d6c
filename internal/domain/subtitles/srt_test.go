package subtitles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/voxdub/internal/types"
)

func TestSrtTime(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{sec: 0, want: "00:00:00,000"},
		{sec: 1.5, want: "00:00:01,500"},
		{sec: 61.25, want: "00:01:01,250"},
		{sec: 3723.5, want: "01:02:03,500"},
		{sec: -2, want: "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := srtTime(tt.sec); got != tt.want {
			t.Fatalf("srtTime(%v) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestRenderSRT(t *testing.T) {
	got := RenderSRT([]types.ScriptLine{
		{Start: 0, End: 1.5, Text: "Hello"},
		{Start: 1.5, End: 2, Text: "   "},
		{Start: 2, End: 3.25, Text: " world "},
	})
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n" +
		"2\n00:00:02,000 --> 00:00:03,250\nworld\n\n"
	if got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteSRTCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "original.srt")
	if err := WriteSRT(path, FromSegments([]types.Segment{{Start: 0, End: 1, Text: "x"}})); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
