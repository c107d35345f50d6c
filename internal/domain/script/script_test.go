package script

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/voxdub/internal/runctl"
	"github.com/forPelevin/voxdub/internal/types"
)

func TestParse(t *testing.T) {
	t.Parallel()

	lines, err := Parse([]byte(`[
		{"start": 0, "text": "A"},
		{"start": 0.01, "end": 1.5, "text": "B", "speaker": "Ryan", "language": "English", "instruct": "calm"}
	]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	want := types.ScriptLine{Start: 0.01, End: 1.5, Text: "B", Speaker: "Ryan", Language: "English", Instruct: "calm"}
	if lines[1] != want {
		t.Fatalf("got %+v, want %+v", lines[1], want)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "object body", body: `{"start": 0, "text": "x"}`, want: "script must be a JSON list of objects"},
		{name: "empty body", body: ``, want: "script must be a JSON list of objects"},
		{name: "list of strings", body: `["a"]`, want: "script must be a JSON list of objects"},
		{name: "missing start", body: `[{"text": "x"}]`, want: `"start" is required`},
		{name: "string start", body: `[{"start": "0", "text": "x"}]`, want: `"start" must be a number`},
		{name: "negative start", body: `[{"start": -1, "text": "x"}]`, want: `"start" must be >= 0`},
		{name: "numeric text", body: `[{"start": 0, "text": 5}]`, want: `"text" must be a string`},
		{name: "start past track limit", body: `[{"start": 1e19, "text": "x"}]`, want: `"start" must be <= 86400 seconds`},
		{name: "end past track limit", body: `[{"start": 1, "end": 1e19, "text": "x"}]`, want: `"end" must be <= 86400 seconds`},
		{name: "end before start", body: `[{"start": 2, "end": 1, "text": "x"}]`, want: `is before "start"`},
		{name: "broken json", body: `[{"start": 0,`, want: "parse script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.body))
			if !errors.Is(err, runctl.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, runctl.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "translated_script.json")
	in := []types.ScriptLine{{Start: 1.25, End: 2, Text: "hola", Instruct: "neutral"}}
	if err := Save(path, in); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != in[0] {
		t.Fatalf("got %+v", got)
	}
}

func TestSortByStartIsStable(t *testing.T) {
	t.Parallel()

	in := []types.ScriptLine{
		{Start: 2, Text: "c"},
		{Start: 1, Text: "a"},
		{Start: 1, Text: "b"},
	}
	got := SortByStart(in)
	var texts []string
	for _, l := range got {
		texts = append(texts, l.Text)
	}
	if strings.Join(texts, "") != "abc" {
		t.Fatalf("got %v", texts)
	}
	if in[0].Text != "c" {
		t.Fatal("input must not be reordered")
	}
}
