// ABOUTME: Multi-band equalizer stage
// ABOUTME: Peaking biquads per band with state carried across blocks
package dsp

import (
	"math"

	"github.com/ampkit/ampkit-go/pkg/audio"
)

// BandFreqs are the center frequencies of the equalizer bands in Hz.
var BandFreqs = [...]float64{70, 180, 320, 600, 1000, 3000, 6000, 12000, 14000, 16000}

// NumBands is the fixed size of the equalizer bank.
const NumBands = len(BandFreqs)

// bandQ is the quality factor shared by all bands.
const bandQ = 1.4

// MaxBandGainDB bounds a single band's boost or cut.
const MaxBandGainDB = 12

// Equalizer is an ordered bank of peaking biquad filters, one per band,
// per the Audio EQ Cookbook. Filter delay state persists across block
// boundaries; resetting it per block would click audibly. Gain changes
// swap coefficients at the next block while keeping the delay state, so a
// change costs at most a single-block transient.
type Equalizer struct {
	sampleRate int
	channels   int
	bands      [NumBands]biquad
}

// biquad holds one band's coefficients and per-channel delay history.
type biquad struct {
	gainDB             float64
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     []float64 // one slot per channel
}

// NewEqualizer creates a flat equalizer for the given stream format.
func NewEqualizer(sampleRate, channels int) *Equalizer {
	eq := &Equalizer{sampleRate: sampleRate, channels: channels}
	for i := range eq.bands {
		b := &eq.bands[i]
		b.x1 = make([]float64, channels)
		b.x2 = make([]float64, channels)
		b.y1 = make([]float64, channels)
		b.y2 = make([]float64, channels)
		b.compute(BandFreqs[i], 0, float64(sampleRate))
	}
	return eq
}

// SetBandGains updates band gains in dB. Only bands whose gain actually
// changed get new coefficients; delay state is never touched.
func (eq *Equalizer) SetBandGains(gainsDB []float64) {
	for i := range eq.bands {
		if i >= len(gainsDB) {
			break
		}
		g := gainsDB[i]
		if g > MaxBandGainDB {
			g = MaxBandGainDB
		} else if g < -MaxBandGainDB {
			g = -MaxBandGainDB
		}
		if g != eq.bands[i].gainDB {
			eq.bands[i].compute(BandFreqs[i], g, float64(eq.sampleRate))
		}
	}
}

// BandGains returns the current gains in dB.
func (eq *Equalizer) BandGains() []float64 {
	out := make([]float64, NumBands)
	for i := range eq.bands {
		out[i] = eq.bands[i].gainDB
	}
	return out
}

func (eq *Equalizer) Process(block audio.Block) audio.Block {
	for bi := range eq.bands {
		b := &eq.bands[bi]
		if b.gainDB == 0 {
			continue
		}
		frames := block.Frames()
		for i := 0; i < frames; i++ {
			for ch := 0; ch < block.Channels; ch++ {
				x := float64(block.Samples[i*block.Channels+ch])
				y := b.b0*x + b.b1*b.x1[ch] + b.b2*b.x2[ch] - b.a1*b.y1[ch] - b.a2*b.y2[ch]
				b.x2[ch] = b.x1[ch]
				b.x1[ch] = x
				b.y2[ch] = b.y1[ch]
				b.y1[ch] = y
				block.Samples[i*block.Channels+ch] = float32(y)
			}
		}
	}
	return block
}

// Reset clears delay history on every band, keeping the gains.
func (eq *Equalizer) Reset() {
	for i := range eq.bands {
		b := &eq.bands[i]
		for ch := 0; ch < eq.channels; ch++ {
			b.x1[ch], b.x2[ch], b.y1[ch], b.y2[ch] = 0, 0, 0, 0
		}
	}
}

// compute derives peaking-EQ coefficients (Audio EQ Cookbook).
func (b *biquad) compute(freq, gainDB, sampleRate float64) {
	b.gainDB = gainDB

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	sinW0 := math.Sin(w0)
	cosW0 := math.Cos(w0)
	alpha := sinW0 / (2 * bandQ)

	b0 := 1 + alpha*a
	b1 := -2 * cosW0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW0
	a2 := 1 - alpha/a

	b.b0 = b0 / a0
	b.b1 = b1 / a0
	b.b2 = b2 / a0
	b.a1 = a1 / a0
	b.a2 = a2 / a0
}
