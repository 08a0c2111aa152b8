// ABOUTME: Tests for the multi-band equalizer
// ABOUTME: Verifies block-boundary continuity, flat passthrough and gain clamping
package dsp

import (
	"math"
	"testing"

	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineBlock(frames, channels, sampleRate int, freq float64) audio.Block {
	b := audio.NewBlock(frames, channels, sampleRate)
	for i := 0; i < frames; i++ {
		s := float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
		for c := 0; c < channels; c++ {
			b.Samples[i*channels+c] = s
		}
	}
	return b
}

func TestEqualizerFlatIsIdentity(t *testing.T) {
	eq := NewEqualizer(44100, 2)
	in := sineBlock(512, 2, 44100, 1000)
	want := append([]float32(nil), in.Samples...)

	out := eq.Process(in)
	assert.Equal(t, want, out.Samples)
}

func TestEqualizerBlockwiseMatchesOneShot(t *testing.T) {
	const (
		rate   = 44100
		frames = 2048
		split  = 700 // deliberately not a power of two
	)
	gains := make([]float64, NumBands)
	gains[4] = 6  // 1 kHz boost
	gains[7] = -9 // 12 kHz cut

	whole := NewEqualizer(rate, 1)
	whole.SetBandGains(gains)
	ref := whole.Process(sineBlock(frames, 1, rate, 440))

	chunked := NewEqualizer(rate, 1)
	chunked.SetBandGains(gains)
	src := sineBlock(frames, 1, rate, 440)
	var got []float32
	for off := 0; off < frames; off += split {
		end := off + split
		if end > frames {
			end = frames
		}
		part := audio.Block{Samples: src.Samples[off:end], Channels: 1, SampleRate: rate}
		out := chunked.Process(part)
		got = append(got, out.Samples...)
	}

	require.Len(t, got, len(ref.Samples))
	for i := range got {
		assert.InDelta(t, ref.Samples[i], got[i], 1e-6, "frame %d", i)
	}
}

func TestEqualizerBoostRaisesBandLevel(t *testing.T) {
	const rate = 44100
	gains := make([]float64, NumBands)
	gains[4] = 12 // +12 dB at 1 kHz

	eq := NewEqualizer(rate, 1)
	eq.SetBandGains(gains)

	// Let the filter settle past its initial transient, then compare RMS.
	eq.Process(sineBlock(4096, 1, rate, 1000))
	out := eq.Process(sineBlock(4096, 1, rate, 1000))

	var sum float64
	for _, s := range out.Samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(out.Samples)))
	// A +12 dB peaking boost at the center frequency multiplies level by ~4.
	assert.Greater(t, rms, 2.0)
}

func TestEqualizerGainClamp(t *testing.T) {
	eq := NewEqualizer(44100, 2)
	gains := make([]float64, NumBands)
	gains[0] = 40
	gains[1] = -40
	eq.SetBandGains(gains)

	got := eq.BandGains()
	assert.Equal(t, float64(MaxBandGainDB), got[0])
	assert.Equal(t, float64(-MaxBandGainDB), got[1])
}

func TestEqualizerShortGainsSlice(t *testing.T) {
	eq := NewEqualizer(44100, 2)
	eq.SetBandGains([]float64{3, -3})

	got := eq.BandGains()
	assert.Equal(t, 3.0, got[0])
	assert.Equal(t, -3.0, got[1])
	for i := 2; i < NumBands; i++ {
		assert.Zero(t, got[i])
	}
}

func TestEqualizerResetKeepsGains(t *testing.T) {
	eq := NewEqualizer(44100, 1)
	gains := make([]float64, NumBands)
	gains[3] = 6
	eq.SetBandGains(gains)
	eq.Process(sineBlock(256, 1, 44100, 600))

	eq.Reset()
	assert.Equal(t, 6.0, eq.BandGains()[3])

	// After a reset the filter output is the same as from a fresh instance.
	fresh := NewEqualizer(44100, 1)
	fresh.SetBandGains(gains)
	a := eq.Process(sineBlock(256, 1, 44100, 600))
	b := fresh.Process(sineBlock(256, 1, 44100, 600))
	assert.Equal(t, b.Samples, a.Samples)
}
