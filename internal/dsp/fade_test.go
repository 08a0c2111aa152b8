// ABOUTME: Tests for the fade envelope stage
// ABOUTME: Verifies frame-exact completion and idempotence
package dsp

import (
	"testing"

	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onesBlock(frames, channels int) audio.Block {
	b := audio.NewBlock(frames, channels, 44100)
	for i := range b.Samples {
		b.Samples[i] = 1
	}
	return b
}

func TestFadeInReachesUnityAtDuration(t *testing.T) {
	const d = 100
	f := NewFade()
	f.Arm(FadeIn, d)

	out := f.Process(onesBlock(d+50, 1))

	// Envelope is phase/duration, so frame 0 is 0 and frame d is the
	// first frame at exactly 1.0.
	assert.Zero(t, out.Samples[0])
	assert.InDelta(t, 0.5, out.Samples[d/2], 1e-5)
	assert.Equal(t, float32(1), out.Samples[d])
	for i := d; i < len(out.Samples); i++ {
		assert.Equal(t, float32(1), out.Samples[i], "frame %d", i)
	}
	assert.False(t, f.Active())
}

func TestFadeInIdempotentOnceComplete(t *testing.T) {
	f := NewFade()
	f.Arm(FadeIn, 10)
	f.Process(onesBlock(64, 1))

	// Subsequent blocks pass through at unity.
	out := f.Process(onesBlock(32, 1))
	for _, s := range out.Samples {
		assert.Equal(t, float32(1), s)
	}
}

func TestFadeOutReachesSilenceAndStays(t *testing.T) {
	const d = 64
	f := NewFade()
	f.Arm(FadeOut, d)

	out := f.Process(onesBlock(d, 2))
	assert.Equal(t, float32(1), out.Samples[0])

	// Everything after completion is silent.
	out = f.Process(onesBlock(32, 2))
	for _, s := range out.Samples {
		assert.Zero(t, s)
	}
}

func TestFadeSpansBlocks(t *testing.T) {
	const d = 100
	f := NewFade()
	f.Arm(FadeIn, d)

	first := f.Process(onesBlock(40, 1))
	second := f.Process(onesBlock(40, 1))

	// Envelope continues where the previous block left off.
	require.InDelta(t, float64(39)/d, first.Samples[39], 1e-5)
	require.InDelta(t, float64(40)/d, second.Samples[0], 1e-5)
	assert.True(t, f.Active())
}

func TestFadeRearm(t *testing.T) {
	f := NewFade()
	f.Arm(FadeIn, 10)
	f.Process(onesBlock(20, 1))
	require.False(t, f.Active())

	f.Arm(FadeOut, 10)
	assert.True(t, f.Active())
	out := f.Process(onesBlock(1, 1))
	assert.Equal(t, float32(1), out.Samples[0])
}

func TestFadeInactivePassthrough(t *testing.T) {
	f := NewFade()
	out := f.Process(onesBlock(8, 2))
	for _, s := range out.Samples {
		assert.Equal(t, float32(1), s)
	}
}
