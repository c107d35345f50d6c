package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/pipeline"
	"github.com/forPelevin/voxdub/internal/usecase"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 14

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	base := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", statusKindLabel(kind), message)
	base = strings.TrimRight(base, " ")
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func renderRunSummary(out pipeline.Outcome, logPath string, colorize bool) string {
	res := out.Result
	var b strings.Builder
	writeLines(&b, renderSectionHeader("Run "+out.RunID, colorize)...)

	rows := [][]string{}
	addArtifact := func(name, path string) {
		if path != "" {
			rows = append(rows, []string{name, path})
		}
	}
	addArtifact("Video", res.OutputVideo)
	addArtifact("Audio track", res.AudioTrack)
	addArtifact("Original SRT", res.OriginalSRT)
	addArtifact("Translated SRT", res.TranslatedSRT)
	addArtifact("Script", res.ScriptPath)
	addArtifact("Manifest", out.ManifestPath)
	addArtifact("Log", logPath)
	writeLines(&b, renderTable([]string{"Artifact", "Path"}, rows, nil))

	writeLines(&b,
		renderStatusLine("Languages", statusInfo, fmt.Sprintf("%s -> %s via %s", res.SourceLang, out.Manifest.TargetLang, res.Translator), colorize),
		renderStatusLine("Duration", statusInfo, formatClock(res.VideoDuration), colorize),
	)
	if out.Manifest.Dubbed {
		writeLines(&b, renderStatusLine("Dubbing", statusOK, fmt.Sprintf("%d lines placed", len(res.Placements)), colorize))
	} else {
		writeLines(&b, renderStatusLine("Dubbing", statusInfo, "original audio kept", colorize))
	}
	writeFailures(&b, res.Failed, colorize)
	writePlacements(&b, res.Placements)
	for _, w := range res.Warnings {
		writeLines(&b, renderStatusLine("Warning", statusWarn, w, colorize))
	}
	return b.String()
}

func renderSynthSummary(res usecase.ScriptResult, colorize bool) string {
	var b strings.Builder
	writeLines(&b, renderSectionHeader("Synthesis", colorize)...)
	rows := [][]string{
		{"Audio track", res.Track.Path},
		{"Length", formatClock(res.Track.Duration)},
		{"Speech ends", formatClock(res.Track.Content)},
		{"Lines", strconv.Itoa(res.Track.Synthesized)},
	}
	if res.OutputVideo != "" {
		rows = append(rows, []string{"Video", res.OutputVideo})
	}
	writeLines(&b, renderTable([]string{"Item", "Value"}, rows, nil))
	writeFailures(&b, res.Track.Failed, colorize)
	writePlacements(&b, res.Track.Placements)
	return b.String()
}

func writeFailures(b *strings.Builder, failed []int, colorize bool) {
	if len(failed) == 0 {
		return
	}
	idx := make([]string, len(failed))
	for i, f := range failed {
		idx[i] = strconv.Itoa(f)
	}
	writeLines(b, renderStatusLine("Failed lines", statusWarn, strings.Join(idx, ", "), colorize))
}

// writePlacements lists only the clips that auto-shift moved.
func writePlacements(b *strings.Builder, placements []timeline.Placement) {
	var rows [][]string
	for _, p := range placements {
		if p.Shift() <= 0 {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Index),
			formatMS(p.IntendedStartMS),
			formatMS(p.ResolvedStartMS),
			formatMS(p.DurationMS),
			"+" + p.Shift().String(),
		})
	}
	if len(rows) == 0 {
		return
	}
	writeLines(b, "Shifted lines:")
	writeLines(b, renderTable(
		[]string{"Clip", "Intended", "Start", "Length", "Shift"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}

func writeLines(b *strings.Builder, lines ...string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
}

func formatMS(ms int64) string {
	return formatClock(time.Duration(ms) * time.Millisecond)
}

// formatClock renders d as m:ss.mmm.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
