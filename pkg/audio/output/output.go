// ABOUTME: Audio sink interface definition
// ABOUTME: Common contract for real-time playback backends
package output

import "github.com/ampkit/ampkit-go/pkg/audio"

// FrameReader supplies interleaved float32 frames to a device callback.
// Implementations must never block and must fill the whole destination,
// silence-padding when short; the ring buffer satisfies this contract.
type FrameReader interface {
	ReadFrames(dst []float32) int
}

// Sink is an audio output device drained by the backend's real-time
// callback.
type Sink interface {
	// Open initializes the device and starts pulling from src.
	Open(format audio.Format, src FrameReader) error

	// Pause stops the device from pulling; buffered audio upstream
	// stays put.
	Pause() error

	// Resume restarts a paused device.
	Resume() error

	// Close releases device resources.
	Close() error
}

// Null is a sink that discards audio, for tests and the -no-audio mode.
// It never pulls on its own; tests drive it with Pull.
type Null struct {
	format audio.Format
	src    FrameReader
	paused bool
	buf    []float32
}

func NewNull() *Null {
	return &Null{}
}

func (n *Null) Open(format audio.Format, src FrameReader) error {
	n.format = format
	n.src = src
	return nil
}

func (n *Null) Pause() error {
	n.paused = true
	return nil
}

func (n *Null) Resume() error {
	n.paused = false
	return nil
}

func (n *Null) Close() error {
	n.src = nil
	return nil
}

// Pull drains frames like a device callback would; it returns the
// samples read for inspection. No-op while paused or closed.
func (n *Null) Pull(frames int) []float32 {
	if n.src == nil || n.paused {
		return nil
	}
	need := frames * n.format.Channels
	if cap(n.buf) < need {
		n.buf = make([]float32, need)
	}
	dst := n.buf[:need]
	n.src.ReadFrames(dst)
	return dst
}
