package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/ports"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudio(ctx context.Context, inVideo, outWav string, f ports.AudioFormat) error {
	if err := os.MkdirAll(filepath.Dir(outWav), 0o755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", strconv.Itoa(f.Channels),
		"-ar", strconv.Itoa(f.SampleRate),
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, tail(string(b), 20))
	}
	return nil
}

// TranscodeAudio re-encodes an audio file; the codec follows the output
// extension.
func (a *Adapter) TranscodeAudio(ctx context.Context, inPath, outPath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg transcode audio: %w\n%s", err, tail(string(b), 20))
	}
	return nil
}

// StartMux launches the encoder that combines video, the new audio track and
// subtitles. Progress is reported as key=value lines on the merged output.
func (a *Adapter) StartMux(ctx context.Context, req ports.MuxRequest) (ports.Process, error) {
	if req.Video == "" || req.Audio == "" || req.Output == "" {
		return nil, fmt.Errorf("ffmpeg mux: video, audio and output are required")
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, muxArgs(req)...)
	p, err := startProcess(cmd)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg mux: %w", err)
	}
	return p, nil
}

func muxArgs(req ports.MuxRequest) []string {
	args := []string{
		"-y",
		"-nostats",
		"-i", req.Video,
		"-i", req.Audio,
	}
	soft := req.Mode != ports.SubtitlesHard && req.SRT != ""
	if soft {
		args = append(args, "-i", req.SRT)
	}
	args = append(args, "-map", "0:v:0", "-map", "1:a:0")
	if soft {
		args = append(args, "-map", "2:s:0", "-c:s", "mov_text")
	}

	burn := req.BurnFile
	if burn == "" {
		burn = req.SRT
	}
	if req.Mode == ports.SubtitlesHard && burn != "" {
		args = append(args,
			"-vf", "subtitles="+escapeFilterPath(burn),
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "18",
		)
	} else {
		args = append(args, "-c:v", "copy")
	}
	return append(args,
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-progress", "pipe:1",
		req.Output,
	)
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, tail(string(b), 20))
	}
	return parseDuration(string(b))
}

func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec < 0 {
		return 0, fmt.Errorf("parse duration %q: negative", s)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
