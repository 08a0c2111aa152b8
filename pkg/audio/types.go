// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, PCM blocks and sample conversions
package audio

import "time"

// Format describes a PCM stream format.
type Format struct {
	SampleRate int
	Channels   int
}

// FramesFor returns the number of frames covering the given duration.
func (f Format) FramesFor(d time.Duration) int {
	return int(d.Seconds() * float64(f.SampleRate))
}

// DurationFor returns the duration covered by the given frame count.
func (f Format) DurationFor(frames int64) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(f.SampleRate) * float64(time.Second))
}

// Block is one unit of interleaved PCM processed per pipeline cycle.
// Samples are nominally in [-1, 1]; effect stages may exceed that range
// transiently, the output sink clamps at the edge.
type Block struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of frames in the block.
func (b Block) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// NewBlock allocates a block sized for the given frame count.
func NewBlock(frames, channels, sampleRate int) Block {
	return Block{
		Samples:    make([]float32, frames*channels),
		Channels:   channels,
		SampleRate: sampleRate,
	}
}

// SampleToInt16 converts a float sample in [-1, 1] to int16, clamping
// out-of-range values instead of wrapping.
func SampleToInt16(s float32) int16 {
	v := s * 32767
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// SampleFromInt16 converts an int16 sample to float32 in [-1, 1).
func SampleFromInt16(s int16) float32 {
	return float32(s) / 32768
}

// MonoMix folds interleaved samples down to mono by channel averaging.
// Used by the visualization tap; the playback path never downmixes.
func MonoMix(dst []float32, src []float32, channels int) int {
	if channels <= 1 {
		n := len(src)
		if n > len(dst) {
			n = len(dst)
		}
		return copy(dst[:n], src[:n])
	}
	frames := len(src) / channels
	if frames > len(dst) {
		frames = len(dst)
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += src[i*channels+ch]
		}
		dst[i] = sum / float32(channels)
	}
	return frames
}
