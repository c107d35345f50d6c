package whispercpp

import "testing"

func TestParseOutput(t *testing.T) {
	body := []byte(`{
		"params": {"language": "auto"},
		"result": {"language": "de"},
		"transcription": [
			{"timestamps": {"from": "00:00:00,000", "to": "00:00:01,500"}, "offsets": {"from": 0, "to": 1500}, "text": " Hallo"},
			{"timestamps": {"from": "00:00:01,500", "to": "00:00:03,250"}, "offsets": {"from": 1500, "to": 3250}, "text": " Welt "}
		]
	}`)

	tr, err := parseOutput(body)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Language != "de" {
		t.Fatalf("language: got %q", tr.Language)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("segments: got %d", len(tr.Segments))
	}
	if s := tr.Segments[1]; s.Start != 1.5 || s.End != 3.25 || s.Text != "Welt" {
		t.Fatalf("unexpected segment: %+v", s)
	}
}

func TestParseOutputRejectsGarbage(t *testing.T) {
	if _, err := parseOutput([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}
