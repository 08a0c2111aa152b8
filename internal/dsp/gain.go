// ABOUTME: Gain stage
// ABOUTME: Scales samples by volume; mute is a zero multiplier
package dsp

import "github.com/ampkit/ampkit-go/pkg/audio"

// Gain multiplies every sample by the current volume. The volume is
// clamped to [0, 1] by the parameter bus at publish time, not here, which
// keeps attenuation monotonic and never introduces clipping beyond the
// input range.
type Gain struct {
	volume float32
	muted  bool
}

// NewGain creates a gain stage at unity volume.
func NewGain() *Gain {
	return &Gain{volume: 1}
}

// Set updates the multiplier applied from the next Process call on.
func (g *Gain) Set(volume float64, muted bool) {
	g.volume = float32(volume)
	g.muted = muted
}

func (g *Gain) Process(block audio.Block) audio.Block {
	if g.muted {
		for i := range block.Samples {
			block.Samples[i] = 0
		}
		return block
	}
	if g.volume == 1 {
		return block
	}
	for i := range block.Samples {
		block.Samples[i] *= g.volume
	}
	return block
}

// Reset is a no-op; gain carries no history.
func (g *Gain) Reset() {}
