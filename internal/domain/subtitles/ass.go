package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/types"
)

// Lines longer than this are wrapped with a hard break.
const assLineBudget = 42

// RenderASS renders styled subtitles for burning into the video. Lines without
// an end time are skipped.
func RenderASS(lines []types.ScriptLine) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		text := sanitizeASS(ln.Text)
		if text == "" || ln.End <= ln.Start {
			continue
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(seconds(ln.Start)))
		b.WriteString(",")
		b.WriteString(assTime(seconds(ln.End)))
		b.WriteString(",Dub,,0,0,0,,")
		b.WriteString(strings.Join(wrapWords(text, assLineBudget), `\N`))
		b.WriteString("\n")
	}
	return b.String()
}

func WriteASS(path string, lines []types.ScriptLine) error {
	return writeFile(path, RenderASS(lines))
}

// wrapWords packs words greedily into rows of at most budget runes. A single
// word longer than budget gets a row of its own.
func wrapWords(text string, budget int) []string {
	var rows []string
	var cur []string
	curLen := 0
	for _, w := range strings.Fields(text) {
		wl := len([]rune(w))
		next := curLen + wl
		if curLen > 0 {
			next++
		}
		if len(cur) > 0 && next > budget {
			rows = append(rows, strings.Join(cur, " "))
			cur, curLen = nil, 0
			next = wl
		}
		cur = append(cur, w)
		curLen = next
	}
	if len(cur) > 0 {
		rows = append(rows, strings.Join(cur, " "))
	}
	return rows
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes
WrapStyle: 2

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Dub, Inter, 56, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,4,1,2, 80,80,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
