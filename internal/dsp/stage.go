// ABOUTME: Effect stage interface and fixed-order chain
// ABOUTME: Stages are stateful across blocks, pure in their parameters
package dsp

import "github.com/ampkit/ampkit-go/pkg/audio"

// Stage is one transform in the processing chain. Process may modify the
// block in place or return a differently sized one (time-stretch); either
// way the returned block is the stage's output. Internal state (filter
// history, envelope phase) persists across calls until Reset.
type Stage interface {
	Process(block audio.Block) audio.Block
	Reset()
}

// Chain runs stages in a fixed order: time-stretch first (it consumes
// source frames), then tonal shaping, then level shaping last so fade and
// gain stay the most predictable stages before output.
type Chain struct {
	Stretch *TimeStretch
	EQ      *Equalizer
	Fade    *Fade
	Gain    *Gain
}

// NewChain builds the standard chain for the given stream format.
func NewChain(format audio.Format) *Chain {
	return &Chain{
		Stretch: NewTimeStretch(format.Channels),
		EQ:      NewEqualizer(format.SampleRate, format.Channels),
		Fade:    NewFade(),
		Gain:    NewGain(),
	}
}

// Process runs a block through every stage in order.
func (c *Chain) Process(block audio.Block) audio.Block {
	block = c.Stretch.Process(block)
	block = c.EQ.Process(block)
	block = c.Fade.Process(block)
	block = c.Gain.Process(block)
	return block
}

// Reset clears all stage state, used when a new track starts or after a
// seek discards in-flight audio.
func (c *Chain) Reset() {
	c.Stretch.Reset()
	c.EQ.Reset()
	c.Fade.Reset()
	c.Gain.Reset()
}
