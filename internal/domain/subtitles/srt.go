// Package subtitles renders script lines as SRT and ASS subtitle files.
package subtitles

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/types"
)

// RenderSRT renders lines as SubRip cues numbered from 1. Lines with empty
// text are skipped; numbering stays contiguous.
func RenderSRT(lines []types.ScriptLine) string {
	var b strings.Builder
	idx := 0
	for _, ln := range lines {
		text := strings.TrimSpace(ln.Text)
		if text == "" {
			continue
		}
		idx++
		end := ln.End
		if end < ln.Start {
			end = ln.Start
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", idx, srtTime(ln.Start), srtTime(end), text)
	}
	return b.String()
}

func WriteSRT(path string, lines []types.ScriptLine) error {
	return writeFile(path, RenderSRT(lines))
}

// FromSegments turns transcript segments into subtitle lines.
func FromSegments(segs []types.Segment) []types.ScriptLine {
	out := make([]types.ScriptLine, 0, len(segs))
	for _, s := range segs {
		out = append(out, types.ScriptLine{Start: s.Start, End: s.End, Text: s.Text})
	}
	return out
}

// srtTime formats seconds as HH:MM:SS,mmm.
func srtTime(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int64(sec * 1000)
	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func seconds(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }

func writeFile(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}
