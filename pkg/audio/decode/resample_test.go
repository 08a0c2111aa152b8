// ABOUTME: Tests for the decoder-edge resampler
// ABOUTME: Verifies rate conversion ratios and chunk-boundary continuity
package decode

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampSource produces a deterministic ramp for resampler tests.
type rampSource struct {
	rate     int
	channels int
	frames   int64
	pos      int64
}

func (s *rampSource) SampleRate() int         { return s.rate }
func (s *rampSource) Channels() int           { return s.channels }
func (s *rampSource) Duration() (int64, bool) { return s.frames, true }
func (s *rampSource) Close() error            { return nil }
func (s *rampSource) SeekFrame(f int64) error { s.pos = f; return nil }

func (s *rampSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}
	frames := len(dst) / s.channels
	if rem := s.frames - s.pos; int64(frames) > rem {
		frames = int(rem)
	}
	for i := 0; i < frames; i++ {
		v := float32(s.pos+int64(i)) / float32(s.frames)
		for ch := 0; ch < s.channels; ch++ {
			dst[i*s.channels+ch] = v
		}
	}
	s.pos += int64(frames)
	return frames * s.channels, nil
}

func TestToRatePassthrough(t *testing.T) {
	src := &rampSource{rate: 44100, channels: 2, frames: 1000}
	out := ToRate(src, 44100)
	assert.Same(t, Source(src), out)
}

func TestResampleUpsamplingRatio(t *testing.T) {
	src := &rampSource{rate: 44100, channels: 2, frames: 44100}
	r := NewResampled(src, 48000)

	require.Equal(t, 48000, r.SampleRate())
	frames, ok := r.Duration()
	require.True(t, ok)
	assert.InDelta(t, 48000, frames, 2)

	total := 0
	buf := make([]float32, 2048)
	for {
		n, err := r.ReadSamples(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	// One second of input becomes ~one second at the output rate.
	assert.InDelta(t, 48000*2, total, 16)
}

func TestResampleDownsamplingRatio(t *testing.T) {
	src := &rampSource{rate: 48000, channels: 1, frames: 48000}
	r := NewResampled(src, 44100)

	total := 0
	buf := make([]float32, 1000)
	for {
		n, err := r.ReadSamples(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.InDelta(t, 44100, total, 8)
}

func TestResampleMonotonicAcrossChunks(t *testing.T) {
	// A monotone ramp must stay monotone through interpolation regardless
	// of how reads are chunked.
	src := &rampSource{rate: 32000, channels: 1, frames: 32000}
	r := NewResampled(src, 44100)

	var out []float32
	buf := make([]float32, 333) // deliberately odd chunk size
	for {
		n, err := r.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("output not monotone at %d: %v < %v", i, out[i], out[i-1])
		}
	}
}

func TestResampleSeekResetsState(t *testing.T) {
	src := &rampSource{rate: 48000, channels: 1, frames: 48000}
	r := NewResampled(src, 24000)

	buf := make([]float32, 512)
	_, err := r.ReadSamples(buf)
	require.NoError(t, err)

	require.NoError(t, r.SeekFrame(0))
	n, err := r.ReadSamples(buf[:2])
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.InDelta(t, 0, float64(buf[0]), 1e-4)
}

func TestResampleValuesInterpolated(t *testing.T) {
	// Downsampling a slow sine by 2 should track the ideal curve closely.
	const n = 8000
	src := &sineSource{rate: 8000, channels: 1, frames: n, freq: 10}
	r := NewResampled(src, 4000)

	buf := make([]float32, 4000)
	read := 0
	for read < len(buf) {
		k, err := r.ReadSamples(buf[read:])
		read += k
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	for i := 0; i < read; i++ {
		ideal := math.Sin(2 * math.Pi * 10 * float64(i) / 4000)
		assert.InDelta(t, ideal, float64(buf[i]), 0.01)
	}
}

// sineSource produces a sine tone for interpolation accuracy tests.
type sineSource struct {
	rate     int
	channels int
	frames   int64
	freq     float64
	pos      int64
}

func (s *sineSource) SampleRate() int         { return s.rate }
func (s *sineSource) Channels() int           { return s.channels }
func (s *sineSource) Duration() (int64, bool) { return s.frames, true }
func (s *sineSource) Close() error            { return nil }
func (s *sineSource) SeekFrame(f int64) error { s.pos = f; return nil }

func (s *sineSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}
	frames := len(dst) / s.channels
	if rem := s.frames - s.pos; int64(frames) > rem {
		frames = int(rem)
	}
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * s.freq * float64(s.pos+int64(i)) / float64(s.rate)))
		for ch := 0; ch < s.channels; ch++ {
			dst[i*s.channels+ch] = v
		}
	}
	s.pos += int64(frames)
	return frames * s.channels, nil
}
