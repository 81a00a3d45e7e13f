package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/cgd1/internal/protocol"
)

func writeWAV(t *testing.T, rate, depth, chans int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, chans, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: chans, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: depth,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestLoad_WAV(t *testing.T) {
	samples := make([]int, 800)
	for i := range samples {
		samples[i] = i % 256
	}
	path := writeWAV(t, SampleRate, BitDepth, Channels, samples)

	r, err := Load(path)
	require.NoError(t, err)
	require.Len(t, r.PCM, 800)
	for i, b := range r.PCM {
		require.Equal(t, byte(i%256), b, "sample %d", i)
	}
	assert.Equal(t, 100*time.Millisecond, r.Duration())
}

func TestLoad_WAVWrongFormat(t *testing.T) {
	tests := []struct {
		name               string
		rate, depth, chans int
	}{
		{"sample rate", 44100, 8, 1},
		{"bit depth", 8000, 16, 1},
		{"stereo", 8000, 8, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWAV(t, tt.rate, tt.depth, tt.chans, make([]int, 64))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, protocol.IsValidationError(err))
		})
	}
}

func TestLoad_Raw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.raw")
	require.NoError(t, os.WriteFile(path, []byte{0x80, 0x81, 0x7f}, 0o600))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x81, 0x7f}, r.PCM)
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.raw")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err := Load(empty)
	assert.True(t, protocol.IsValidationError(err))

	mp3 := filepath.Join(dir, "tone.mp3")
	require.NoError(t, os.WriteFile(mp3, []byte{1}, 0o600))
	_, err = Load(mp3)
	assert.True(t, protocol.IsValidationError(err))

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wav file at all"), 0o600))
	_, err = Load(garbage)
	assert.True(t, protocol.IsValidationError(err))

	_, err = Load(filepath.Join(dir, "missing.raw"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
