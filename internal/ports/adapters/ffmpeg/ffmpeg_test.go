package ffmpeg

import (
	"bufio"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/voxdub/internal/ports"
)

func TestMuxArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     ports.MuxRequest
		want    []string
		notWant []string
	}{
		{
			name:    "soft embeds srt and copies video",
			req:     ports.MuxRequest{Video: "in.mp4", Audio: "dub.wav", SRT: "t.srt", Output: "out.mp4", Mode: ports.SubtitlesSoft},
			want:    []string{"-i t.srt", "-map 2:s:0 -c:s mov_text", "-c:v copy"},
			notWant: []string{"subtitles="},
		},
		{
			name:    "hard burns ass with escaped path",
			req:     ports.MuxRequest{Video: "in.mp4", Audio: "dub.wav", SRT: "t.srt", BurnFile: `C:\subs\it's.ass`, Output: "out.mp4", Mode: ports.SubtitlesHard},
			want:    []string{`-vf subtitles=C\:\\subs\\it\'s.ass`, "-c:v libx264 -preset veryfast -crf 18"},
			notWant: []string{"-i t.srt", "mov_text", "-c:v copy"},
		},
		{
			name:    "no subtitles",
			req:     ports.MuxRequest{Video: "in.mp4", Audio: "dub.wav", Output: "out.mp4", Mode: ports.SubtitlesSoft},
			want:    []string{"-map 0:v:0 -map 1:a:0 -c:v copy"},
			notWant: []string{"-map 2:s:0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := strings.Join(muxArgs(tt.req), " ")
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("args %q missing %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Fatalf("args %q should not contain %q", got, w)
				}
			}
			if !strings.HasSuffix(got, "-shortest -progress pipe:1 out.mp4") {
				t.Fatalf("unexpected tail: %q", got)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	got, err := parseDuration("12.500000\n")
	if err != nil {
		t.Fatal(err)
	}
	if got != 12500*time.Millisecond {
		t.Fatalf("got %s", got)
	}
	if _, err := parseDuration("N/A"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTail(t *testing.T) {
	t.Parallel()

	if got := tail("a\nb\nc\n", 2); got != "b\nc" {
		t.Fatalf("got %q", got)
	}
}

func TestProcessMergesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	t.Parallel()

	p, err := startProcess(exec.Command("sh", "-c", "echo out_time_us=1000; echo oops >&2; exit 3"))
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	sc := bufio.NewScanner(p.Output())
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	joined := strings.Join(lines, "|")
	if !strings.Contains(joined, "out_time_us=1000") || !strings.Contains(joined, "oops") {
		t.Fatalf("missing merged output: %q", joined)
	}
	if err := p.Wait(); err == nil {
		t.Fatal("expected non-zero exit error")
	}
}

func TestProcessKillUnblocksWait(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	t.Parallel()

	p, err := startProcess(exec.Command("sh", "-c", "while true; do echo tick; sleep 0.01; done"))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- p.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not return after kill")
	}
}
