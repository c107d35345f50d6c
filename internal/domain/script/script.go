// Package script reads and writes dubbing scripts: JSON arrays of timed text
// lines.
package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/voxdub/internal/domain/timeline"
	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

var errNotList = errors.New("script must be a JSON list of objects")

// Parse decodes and validates a script body.
func Parse(data []byte) ([]types.ScriptLine, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %w", runctl.ErrValidation, errNotList)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse script: %w", runctl.ErrValidation, err)
	}

	lines := make([]types.ScriptLine, 0, len(raw))
	for i, item := range raw {
		line, err := parseLine(item)
		if err != nil {
			return nil, fmt.Errorf("%w: script entry %d: %w", runctl.ErrValidation, i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func parseLine(item json.RawMessage) (types.ScriptLine, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return types.ScriptLine{}, errNotList
	}

	var line types.ScriptLine
	start, ok := fields["start"]
	if !ok {
		return line, errors.New(`"start" is required`)
	}
	if err := json.Unmarshal(start, &line.Start); err != nil {
		return line, errors.New(`"start" must be a number`)
	}
	if line.Start < 0 {
		return line, fmt.Errorf(`"start" must be >= 0, got %v`, line.Start)
	}
	if line.Start > timeline.MaxStartSeconds {
		return line, fmt.Errorf(`"start" must be <= %d seconds, got %v`, timeline.MaxStartSeconds, line.Start)
	}
	if end, ok := fields["end"]; ok && string(end) != "null" {
		if err := json.Unmarshal(end, &line.End); err != nil {
			return line, errors.New(`"end" must be a number`)
		}
		if line.End < line.Start {
			return line, fmt.Errorf(`"end" (%v) is before "start" (%v)`, line.End, line.Start)
		}
		if line.End > timeline.MaxStartSeconds {
			return line, fmt.Errorf(`"end" must be <= %d seconds, got %v`, timeline.MaxStartSeconds, line.End)
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"text", &line.Text},
		{"speaker", &line.Speaker},
		{"language", &line.Language},
		{"instruct", &line.Instruct},
	}
	for _, s := range strs {
		v, ok := fields[s.key]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, s.dst); err != nil {
			return line, fmt.Errorf("%q must be a string", s.key)
		}
	}
	return line, nil
}

// Load reads a script file.
func Load(path string) ([]types.ScriptLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: script file not found: %s", runctl.ErrValidation, path)
		}
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Save writes lines as an indented script file that Load accepts.
func Save(path string, lines []types.ScriptLine) error {
	if lines == nil {
		lines = []types.ScriptLine{}
	}
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// SortByStart orders lines by start time, keeping the relative order of lines
// that share a start.
func SortByStart(lines []types.ScriptLine) []types.ScriptLine {
	out := append([]types.ScriptLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Speakable reports whether the line has text worth sending to a synthesizer.
func Speakable(line types.ScriptLine) bool {
	return strings.TrimSpace(line.Text) != ""
}
