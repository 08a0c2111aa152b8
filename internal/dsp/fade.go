// ABOUTME: Fade envelope stage
// ABOUTME: Linear per-frame ramp; inert once complete until re-armed
package dsp

import "github.com/ampkit/ampkit-go/pkg/audio"

// FadeDirection selects the envelope shape.
type FadeDirection int

const (
	FadeNone FadeDirection = iota
	FadeIn
	FadeOut
)

// Fade applies a frame-accurate linear envelope. The phase counter
// advances monotonically while a fade is active; at phase == duration the
// envelope becomes inert (multiplier exactly 1 for fade-in, 0 for
// fade-out) until Arm is called again. Fade composes multiplicatively
// with the gain stage that follows it.
type Fade struct {
	direction FadeDirection
	duration  int64 // frames
	phase     int64
}

// NewFade creates an inactive fade stage.
func NewFade() *Fade {
	return &Fade{}
}

// Arm starts a new fade from phase zero. A non-positive duration
// completes immediately.
func (f *Fade) Arm(direction FadeDirection, durationFrames int64) {
	f.direction = direction
	f.duration = durationFrames
	f.phase = 0
}

// Active reports whether a fade is still ramping.
func (f *Fade) Active() bool {
	return f.direction != FadeNone && f.phase < f.duration
}

// Progress returns the envelope position in [0, 1].
func (f *Fade) Progress() float64 {
	if f.direction == FadeNone {
		return 0
	}
	if f.duration <= 0 || f.phase >= f.duration {
		return 1
	}
	return float64(f.phase) / float64(f.duration)
}

func (f *Fade) Process(block audio.Block) audio.Block {
	if f.direction == FadeNone {
		return block
	}

	frames := block.Frames()
	ch := block.Channels
	for i := 0; i < frames; i++ {
		var env float32
		if f.phase >= f.duration {
			// Completed: hold the terminal multiplier.
			if f.direction == FadeIn {
				env = 1
			} else {
				env = 0
			}
		} else {
			p := float32(f.phase) / float32(f.duration)
			if f.direction == FadeIn {
				env = p
			} else {
				env = 1 - p
			}
			f.phase++
		}
		for c := 0; c < ch; c++ {
			block.Samples[i*ch+c] *= env
		}
	}
	return block
}

// Reset disarms the envelope.
func (f *Fade) Reset() {
	f.direction = FadeNone
	f.duration = 0
	f.phase = 0
}
