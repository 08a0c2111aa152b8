// ABOUTME: Lock-free SPSC ring buffer bridging producer and device callback
// ABOUTME: Bounded-wait writes, never-blocking silence-padded reads
package engine

import (
	"sync/atomic"
	"time"
)

// Ring is a fixed-capacity single-producer/single-consumer buffer of
// interleaved float32 frames. The producer (pipeline goroutine) alone
// advances the write cursor; the consumer (device callback) alone
// advances the read cursor. Both cursors count total frames since
// creation, so used capacity is always wr-rd and never goes negative.
type Ring struct {
	buf      []float32
	capacity int64 // frames
	channels int

	wr atomic.Int64 // total frames written, producer-owned
	rd atomic.Int64 // total frames read, consumer-owned

	flushReq  atomic.Bool
	flushAcks atomic.Int64
	underruns atomic.Int64
}

// writePoll is the producer's backpressure poll interval.
const writePoll = time.Millisecond

// NewRing creates a ring holding capacityFrames interleaved frames.
func NewRing(capacityFrames, channels int) *Ring {
	return &Ring{
		buf:      make([]float32, capacityFrames*channels),
		capacity: int64(capacityFrames),
		channels: channels,
	}
}

// Capacity returns the ring size in frames.
func (r *Ring) Capacity() int { return int(r.capacity) }

// Buffered returns the number of frames currently readable.
func (r *Ring) Buffered() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Free returns the number of frames currently writable.
func (r *Ring) Free() int {
	return int(r.capacity - (r.wr.Load() - r.rd.Load()))
}

// Write copies interleaved samples into the ring, waiting up to maxWait
// for space. Dropping audio is worse than a momentary stall, so the
// producer blocks here for backpressure; only when the consumer makes no
// progress within the bound does Write give up with ErrBufferFull.
// Writes up to the ring capacity commit whole or not at all, so a caller
// may retry the same block after ErrBufferFull without duplicating
// audio; larger writes land in capacity-sized pieces. Producer-side only.
func (r *Ring) Write(samples []float32, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)

	for len(samples) > 0 {
		frames := int64(len(samples) / r.channels)
		if frames > r.capacity {
			frames = r.capacity
		}

		for {
			wr := r.wr.Load()
			free := r.capacity - (wr - r.rd.Load())
			if free >= frames {
				r.copyIn(wr, samples[:frames*int64(r.channels)])
				r.wr.Store(wr + frames)
				samples = samples[frames*int64(r.channels):]
				break
			}
			if time.Now().After(deadline) {
				return ErrBufferFull
			}
			time.Sleep(writePoll)
		}
	}
	return nil
}

// ReadFrames fills dst with interleaved frames. It never blocks: missing
// frames are silence and count as exactly one underrun per deficient
// call. If a flush was requested, the pending audio is discarded, the
// flush acknowledged, and this callback gets silence. Consumer-side only.
func (r *Ring) ReadFrames(dst []float32) int {
	if r.flushReq.CompareAndSwap(true, false) {
		r.rd.Store(r.wr.Load())
		r.flushAcks.Add(1)
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}

	want := int64(len(dst) / r.channels)
	rd := r.rd.Load()
	avail := r.wr.Load() - rd

	n := want
	if n > avail {
		n = avail
	}
	if n > 0 {
		r.copyOut(rd, dst[:n*int64(r.channels)])
		// CAS, not a store: a fallback flush may have moved the cursor
		// past this read, and advancing from the stale value would
		// rewind it over the discarded audio.
		r.rd.CompareAndSwap(rd, rd+n)
	}
	if n < want {
		for i := n * int64(r.channels); i < int64(len(dst)); i++ {
			dst[i] = 0
		}
		r.underruns.Add(1)
	}
	return int(n)
}

// Flush asks the consumer to discard all buffered audio and waits up to
// maxWait for the acknowledgement. If no callback arrives in time the
// consumer is not pulling (device paused or stopped) and the flush is
// applied directly; the caller must have quiesced the producer first.
func (r *Ring) Flush(maxWait time.Duration) {
	acks := r.flushAcks.Load()
	r.flushReq.Store(true)
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if r.flushAcks.Load() > acks {
			return
		}
		time.Sleep(writePoll)
	}
	if r.flushReq.CompareAndSwap(true, false) {
		for {
			rd := r.rd.Load()
			wr := r.wr.Load()
			if rd >= wr || r.rd.CompareAndSwap(rd, wr) {
				return
			}
		}
	}
}

// Underruns returns the count of deficient reads since creation.
func (r *Ring) Underruns() int64 {
	return r.underruns.Load()
}

func (r *Ring) copyIn(wr int64, samples []float32) {
	pos := (wr % r.capacity) * int64(r.channels)
	n := copy(r.buf[pos:], samples)
	if n < len(samples) {
		copy(r.buf, samples[n:])
	}
}

func (r *Ring) copyOut(rd int64, dst []float32) {
	pos := (rd % r.capacity) * int64(r.channels)
	n := copy(dst, r.buf[pos:])
	if n < len(dst) {
		copy(dst[n:], r.buf)
	}
}
