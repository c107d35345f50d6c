package timeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/forPelevin/voxdub/internal/types"
)

const wavBitDepth = 16

// WriteWAV encodes mono audio as 16-bit PCM.
func WriteWAV(path string, a types.Audio) error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("write wav %s: invalid sample rate %d", path, a.SampleRate)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	const maxInt16 = 1<<(wavBitDepth-1) - 1
	data := make([]int, len(a.Samples))
	for i, v := range a.Samples {
		data[i] = int(math.Round(float64(clampSample(v)) * maxInt16))
	}

	enc := wav.NewEncoder(f, a.SampleRate, wavBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: a.SampleRate},
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

// ReadWAV decodes a PCM WAV file, downmixing to mono.
func ReadWAV(path string) (types.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Audio{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return types.Audio{}, fmt.Errorf("read wav %s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return types.Audio{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return types.Audio{}, errors.New("decode " + path + ": missing format")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = wavBitDepth
	}
	scale := float32(int64(1) << (depth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			v := buf.Data[i*channels+c]
			if depth == 8 {
				// 8-bit PCM is unsigned.
				v -= 128
			}
			sum += float32(v) / scale
		}
		samples[i] = clampSample(sum / float32(channels))
	}
	return types.Audio{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}
