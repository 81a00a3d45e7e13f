// Package audio loads ringtone payloads for upload to the clock.
//
// The clock plays unsigned 8-bit mono PCM at 8000 Hz. WAV files are checked
// against that format and unwrapped; .raw files are taken as-is.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/muurk/cgd1/internal/protocol"
)

// Required payload format
const (
	SampleRate = 8000
	BitDepth   = 8
	Channels   = 1
)

// Ringtone is a loaded payload
type Ringtone struct {
	Path string
	PCM  []byte
}

// Duration is the playing time at SampleRate
func (r *Ringtone) Duration() time.Duration {
	return time.Duration(len(r.PCM)) * time.Second / SampleRate
}

// Load reads a .wav or .raw ringtone
func Load(path string) (*Ringtone, error) {
	var (
		pcm []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		pcm, err = loadWAV(path)
	case ".raw", ".pcm", ".u8":
		pcm, err = os.ReadFile(path)
	default:
		return nil, protocol.NewValidationError(fmt.Sprintf("unsupported ringtone file %q: use .wav or .raw", filepath.Base(path)))
	}
	if err != nil {
		return nil, err
	}

	if len(pcm) == 0 {
		return nil, protocol.NewValidationError(fmt.Sprintf("%s contains no audio", filepath.Base(path)))
	}
	if len(pcm) > protocol.MaxAudioSize {
		return nil, protocol.NewValidationError(fmt.Sprintf("%s is too large: %d bytes (max %d)",
			filepath.Base(path), len(pcm), protocol.MaxAudioSize))
	}
	return &Ringtone{Path: path, PCM: pcm}, nil
}

func loadWAV(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, protocol.NewValidationError(fmt.Sprintf("%s is not a valid WAV file", filepath.Base(path)))
	}

	var problems []string
	if dec.WavAudioFormat != 1 {
		problems = append(problems, fmt.Sprintf("format %d (need PCM)", dec.WavAudioFormat))
	}
	if int(dec.NumChans) != Channels {
		problems = append(problems, fmt.Sprintf("%d channels (need mono)", dec.NumChans))
	}
	if int(dec.BitDepth) != BitDepth {
		problems = append(problems, fmt.Sprintf("%d-bit (need 8-bit)", dec.BitDepth))
	}
	if int(dec.SampleRate) != SampleRate {
		problems = append(problems, fmt.Sprintf("%d Hz (need 8000 Hz)", dec.SampleRate))
	}
	if len(problems) > 0 {
		return nil, protocol.NewValidationError(fmt.Sprintf("%s: unsupported WAV: %s",
			filepath.Base(path), strings.Join(problems, ", ")))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return toUnsigned8(buf), nil
}

// toUnsigned8 converts decoded 8-bit samples back to the bytes on disk
func toUnsigned8(buf *audio.IntBuffer) []byte {
	out := make([]byte, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = byte(v)
	}
	return out
}
