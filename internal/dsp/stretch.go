// ABOUTME: Time-stretch stage (playback speed)
// ABOUTME: Naive linear resampling; pitch follows speed
package dsp

import "github.com/ampkit/ampkit-go/pkg/audio"

// TimeStretch changes the rate at which source frames are consumed
// relative to the output clock by linear resampling, so pitch shifts with
// speed. A fractional phase carries across blocks to keep the sampling
// grid continuous at block boundaries. Playback position accounting stays
// in source frames; the pipeline advances by the input frame count, not
// the output's.
type TimeStretch struct {
	channels int
	speed    float64
	phase    float64 // fractional read position inside the current block
	out      []float32
}

// NewTimeStretch creates a passthrough stretch stage.
func NewTimeStretch(channels int) *TimeStretch {
	return &TimeStretch{channels: channels, speed: 1}
}

// SetSpeed updates the speed factor for the next block. The parameter bus
// clamps the factor to a sane range before it reaches the stage.
func (t *TimeStretch) SetSpeed(speed float64) {
	if speed > 0 {
		t.speed = speed
	}
}

// Speed returns the current factor.
func (t *TimeStretch) Speed() float64 { return t.speed }

func (t *TimeStretch) Process(block audio.Block) audio.Block {
	if t.speed == 1 && t.phase == 0 {
		return block
	}

	ch := t.channels
	frames := block.Frames()
	if frames == 0 {
		return block
	}

	// Worst case output length for this block plus slack for the carried
	// phase.
	maxOut := int(float64(frames)/t.speed) + 2
	if cap(t.out) < maxOut*ch {
		t.out = make([]float32, maxOut*ch)
	}
	out := t.out[:0]

	for ; t.phase < float64(frames); t.phase += t.speed {
		idx := int(t.phase)
		frac := float32(t.phase - float64(idx))
		for c := 0; c < ch; c++ {
			a := block.Samples[idx*ch+c]
			b := a
			if idx+1 < frames {
				b = block.Samples[(idx+1)*ch+c]
			}
			out = append(out, a+(b-a)*frac)
		}
	}
	t.phase -= float64(frames)

	return audio.Block{Samples: out, Channels: ch, SampleRate: block.SampleRate}
}

// Reset clears the fractional phase; the speed factor is a parameter, not
// state, and survives.
func (t *TimeStretch) Reset() {
	t.phase = 0
}
