// ABOUTME: Effect parameter snapshots and the UI-to-pipeline parameter bus
// ABOUTME: Immutable versioned snapshots behind an atomic pointer swap
package engine

import (
	"sync/atomic"

	"github.com/ampkit/ampkit-go/internal/dsp"
)

// FadeRequest arms a fade envelope. Seq distinguishes a fresh request
// from one the pipeline has already applied; the pipeline arms the
// envelope once per sequence number.
type FadeRequest struct {
	Direction dsp.FadeDirection
	Duration  int64 // frames
	Seq       uint64
}

// Params is one immutable effect parameter snapshot. The UI publishes a
// new snapshot on every edit; the pipeline reads the latest at each block
// boundary and never observes a partially-written one. All clamping
// happens in Publish so the stages can trust the values.
type Params struct {
	Version uint64
	Volume  float64 // [0, 1]
	Muted   bool
	EQGains []float64 // dB per band, ±MaxBandGainDB
	Speed   float64   // [MinSpeed, MaxSpeed]
	Fade    FadeRequest
}

const (
	// MinSpeed and MaxSpeed bound the time-stretch factor.
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// DefaultParams is the snapshot a fresh bus starts from: unity volume,
// flat equalizer, normal speed, no fade.
func DefaultParams() Params {
	return Params{
		Volume:  1,
		EQGains: make([]float64, dsp.NumBands),
		Speed:   1,
	}
}

// Bus is the thread-safe parameter exchange between the UI thread and
// the pipeline. Publish swaps an atomic pointer; Current is a single
// pointer load, so the pipeline side never waits on UI-side work.
// Publish is called from one thread at a time (the UI).
type Bus struct {
	current atomic.Pointer[Params]
	version atomic.Uint64
}

// NewBus creates a bus holding DefaultParams.
func NewBus() *Bus {
	b := &Bus{}
	p := DefaultParams()
	p.Version = b.version.Add(1)
	b.current.Store(&p)
	return b
}

// Publish clamps the snapshot, stamps it with a fresh version and makes
// it the current one. The snapshot's slices are copied; the caller keeps
// ownership of its arguments.
func (b *Bus) Publish(p Params) {
	p.Volume = clamp(p.Volume, 0, 1)
	p.Speed = clamp(p.Speed, MinSpeed, MaxSpeed)

	gains := make([]float64, dsp.NumBands)
	for i := range gains {
		if i < len(p.EQGains) {
			gains[i] = clamp(p.EQGains[i], -dsp.MaxBandGainDB, dsp.MaxBandGainDB)
		}
	}
	p.EQGains = gains

	p.Version = b.version.Add(1)
	b.current.Store(&p)
}

// Update publishes a snapshot derived from the current one. The mutate
// function receives a copy; shared slices are already duplicated.
func (b *Bus) Update(mutate func(*Params)) {
	p := *b.current.Load()
	p.EQGains = append([]float64(nil), p.EQGains...)
	mutate(&p)
	b.Publish(p)
}

// Current returns the latest snapshot. The returned pointer is shared
// and must be treated as read-only.
func (b *Bus) Current() *Params {
	return b.current.Load()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
