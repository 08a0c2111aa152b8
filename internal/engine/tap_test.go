// ABOUTME: Tests for the visualization tap
// ABOUTME: Verifies lossy overwrite, waveform ordering and spectrum peaks
package engine

import (
	"math"
	"testing"

	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monoBlock(samples ...float32) audio.Block {
	return audio.Block{Samples: samples, Channels: 1, SampleRate: 44100}
}

func TestTapWaveformOrdering(t *testing.T) {
	tap := NewTap(8)
	tap.Push(monoBlock(1, 2, 3, 4))

	got := tap.Waveform(4)
	assert.Equal(t, []float32{1, 2, 3, 4}, got)

	// Fewer samples than requested: zero-padded at the head.
	got = tap.Waveform(6)
	assert.Equal(t, []float32{0, 0, 1, 2, 3, 4}, got)
}

func TestTapOverwritesOldest(t *testing.T) {
	tap := NewTap(4)
	tap.Push(monoBlock(1, 2, 3, 4))
	tap.Push(monoBlock(5, 6))

	// 1 and 2 are gone; the newest four remain in order.
	assert.Equal(t, []float32{3, 4, 5, 6}, tap.Waveform(4))
}

func TestTapMixesToMono(t *testing.T) {
	tap := NewTap(8)
	tap.Push(audio.Block{Samples: []float32{1, 0, 0, 1}, Channels: 2, SampleRate: 44100})

	got := tap.Waveform(2)
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 0.5, got[1], 1e-6)
}

func TestTapSpectrumPeakBin(t *testing.T) {
	const (
		rate = 44100
		bins = 512
		size = 2 * bins
	)
	tap := NewTap(size)

	// A pure tone lands its energy in the bin nearest freq/nyquist.
	const freq = 1000.0
	b := audio.NewBlock(size, 1, rate)
	for i := range b.Samples {
		b.Samples[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / rate))
	}
	tap.Push(b)

	spec := tap.Spectrum(bins)
	require.Len(t, spec, bins)

	peak := 0
	for i, m := range spec {
		if m > spec[peak] {
			peak = i
		}
	}
	wantBin := int(math.Round(freq * size / rate))
	assert.InDelta(t, wantBin, peak, 1)
}

func TestTapSpectrumSilence(t *testing.T) {
	tap := NewTap(256)
	spec := tap.Spectrum(128)
	for _, m := range spec {
		assert.Zero(t, m)
	}
}

func TestTapPushNeverGrowsBeyondCapacity(t *testing.T) {
	tap := NewTap(16)
	for i := 0; i < 100; i++ {
		tap.Push(monoBlock(make([]float32, 33)...))
	}
	assert.Len(t, tap.Waveform(64), 64)
}
