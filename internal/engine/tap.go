// ABOUTME: Visualization tap fed by the pipeline, read by the UI
// ABOUTME: Lossy bounded ring of mono samples plus an FFT spectrum view
package engine

import (
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/ampkit/ampkit-go/pkg/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Tap keeps the most recent mono-mixed samples for display. It is
// best-effort on the producer side: Push mixes and stores under a
// TryLock, dropping the block whenever the UI holds the lock, so the
// pipeline never waits on a reader. Old samples are overwritten, never
// block anything.
type Tap struct {
	mu     sync.Mutex
	buf    []float32
	pos    int
	filled bool

	mix []float32

	fft    *fourier.FFT
	fftIn  []float64
	window []float64

	dropped atomic.Uint64
}

// NewTap creates a tap holding the last capacity mono samples.
func NewTap(capacity int) *Tap {
	return &Tap{buf: make([]float32, capacity)}
}

// Push mixes the block to mono and appends it to the ring. Called from
// the pipeline goroutine only; drops the block if a reader is mid-copy.
func (t *Tap) Push(block audio.Block) {
	frames := block.Frames()
	if frames == 0 {
		return
	}
	if cap(t.mix) < frames {
		t.mix = make([]float32, frames)
	}
	mono := t.mix[:frames]
	audio.MonoMix(mono, block.Samples, block.Channels)

	if !t.mu.TryLock() {
		t.dropped.Add(1)
		return
	}
	defer t.mu.Unlock()

	for _, s := range mono {
		t.buf[t.pos] = s
		t.pos++
		if t.pos == len(t.buf) {
			t.pos = 0
			t.filled = true
		}
	}
}

// Waveform copies the most recent n samples, oldest first. When fewer
// samples have been seen, the head is zero-padded so the result is
// always exactly n long.
func (t *Tap) Waveform(n int) []float32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]float32, n)
	if n > len(t.buf) {
		n = len(t.buf)
	}
	avail := t.pos
	if t.filled {
		avail = len(t.buf)
	}
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		idx := t.pos - n + i
		if idx < 0 {
			idx += len(t.buf)
		}
		out[len(out)-n+i] = t.buf[idx]
	}
	return out
}

// Spectrum returns bins magnitude values of the most recent window of
// samples, Hann-windowed. Bin i covers frequencies up to roughly
// i/bins x Nyquist. Reader-side only.
func (t *Tap) Spectrum(bins int) []float64 {
	size := 2 * bins
	wave := t.Waveform(size)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fft == nil || t.fft.Len() != size {
		t.fft = fourier.NewFFT(size)
		t.fftIn = make([]float64, size)
		t.window = make([]float64, size)
		for i := range t.window {
			t.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
		}
	}
	for i, s := range wave {
		t.fftIn[i] = float64(s) * t.window[i]
	}

	coeffs := t.fft.Coefficients(nil, t.fftIn)
	out := make([]float64, bins)
	for i := 0; i < bins; i++ {
		out[i] = cmplx.Abs(coeffs[i]) / float64(size)
	}
	return out
}

// Dropped reports how many blocks Push discarded because a reader held
// the lock.
func (t *Tap) Dropped() uint64 {
	return t.dropped.Load()
}
