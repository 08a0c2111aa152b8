// ABOUTME: Processing pipeline: decoder through effect chain into the ring
// ABOUTME: One producer goroutine; control via channel, quiesce with ack for seeks
package engine

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/ampkit/ampkit-go/internal/dsp"
	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/ampkit/ampkit-go/pkg/audio/decode"
)

// EventKind classifies pipeline lifecycle events.
type EventKind int

const (
	// EventDone fires after end-of-stream once the ring has drained.
	EventDone EventKind = iota
	// EventError fires on a fatal per-track failure; Err carries it.
	EventError
)

// Event is a pipeline lifecycle notification delivered to the player.
type Event struct {
	Kind EventKind
	Err  error
}

type ctrlKind int

const (
	ctrlPause ctrlKind = iota
	ctrlResume
	ctrlQuiesce
	ctrlStop
)

type ctrlMsg struct {
	kind    ctrlKind
	ack     chan struct{} // quiesce: closed when the producer has parked
	release chan struct{} // quiesce: producer resumes when closed
}

// Pipeline runs one playback session: it pulls blocks from the source,
// applies the effect chain with the latest parameter snapshot, and feeds
// the ring and the visualization tap. All decoding and DSP happens on
// its own goroutine; the UI talks to it through the control channel and
// the parameter bus only.
type Pipeline struct {
	src    decode.Source
	format audio.Format
	chain  *dsp.Chain
	bus    *Bus
	ring   *Ring
	tap    *Tap

	blockFrames int
	writeWait   time.Duration

	pos  atomic.Int64 // source frames consumed
	ctrl chan ctrlMsg
	done chan struct{}
	evs  chan Event

	lastVersion uint64
	lastFadeSeq uint64
}

// NewPipeline wires a pipeline over an already-opened source. The source
// must deliver samples in the pipeline's format; rate conversion belongs
// to the decode layer.
func NewPipeline(src decode.Source, bus *Bus, ring *Ring, tap *Tap, blockFrames int) *Pipeline {
	return &Pipeline{
		src:         src,
		format:      audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()},
		chain:       dsp.NewChain(audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}),
		bus:         bus,
		ring:        ring,
		tap:         tap,
		blockFrames: blockFrames,
		writeWait:   100 * time.Millisecond,
		ctrl:        make(chan ctrlMsg),
		done:        make(chan struct{}),
		evs:         make(chan Event, 4),
	}
}

// Start launches the producer goroutine.
func (p *Pipeline) Start() {
	go p.run()
}

// Events delivers lifecycle notifications. The channel is buffered; the
// pipeline never blocks on a slow listener for Done/Error (events beyond
// the buffer are dropped with a log line).
func (p *Pipeline) Events() <-chan Event {
	return p.evs
}

// Done is closed when the producer goroutine has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Position returns the playback position in source frames.
func (p *Pipeline) Position() int64 {
	return p.pos.Load()
}

// SetPosition overrides the position counter. Only legal while the
// producer is quiesced (seek protocol).
func (p *Pipeline) SetPosition(frames int64) {
	p.pos.Store(frames)
}

// ResetChain clears effect stage state. Only legal while quiesced.
func (p *Pipeline) ResetChain() {
	p.chain.Reset()
}

// Pause stops the producer from pulling source data. Ring contents stay
// put so resuming is gapless.
func (p *Pipeline) Pause() error {
	return p.send(ctrlMsg{kind: ctrlPause})
}

// Resume restarts a paused producer.
func (p *Pipeline) Resume() error {
	return p.send(ctrlMsg{kind: ctrlResume})
}

// Stop asks the producer to exit; it returns once the goroutine is gone.
func (p *Pipeline) Stop() {
	if p.send(ctrlMsg{kind: ctrlStop}) == nil {
		<-p.done
	}
}

// Quiesce parks the producer and returns once it has acknowledged, so a
// seek can flush the ring and move the source without racing a write in
// flight. The returned release function restarts the producer.
func (p *Pipeline) Quiesce() (release func(), err error) {
	msg := ctrlMsg{
		kind:    ctrlQuiesce,
		ack:     make(chan struct{}),
		release: make(chan struct{}),
	}
	if err := p.send(msg); err != nil {
		return nil, err
	}
	select {
	case <-msg.ack:
		return func() { close(msg.release) }, nil
	case <-p.done:
		return nil, ErrStopped
	}
}

func (p *Pipeline) send(msg ctrlMsg) error {
	select {
	case p.ctrl <- msg:
		return nil
	case <-p.done:
		return ErrStopped
	}
}

func (p *Pipeline) run() {
	defer close(p.done)

	scratch := make([]float32, p.blockFrames*p.format.Channels)
	paused := false
	var pending audio.Block // processed block awaiting ring space

	for {
		if paused {
			msg := <-p.ctrl
			if !p.handle(msg, &paused, &pending) {
				return
			}
			continue
		}
		select {
		case msg := <-p.ctrl:
			if !p.handle(msg, &paused, &pending) {
				return
			}
			continue
		default:
		}

		if pending.Frames() > 0 {
			// Backpressure: keep offering the same block, but stay
			// responsive to control between attempts.
			if err := p.ring.Write(pending.Samples, p.writeWait); err != nil {
				continue
			}
			p.tap.Push(pending)
			pending = audio.Block{}
			continue
		}

		n, err := p.readBlock(scratch)
		if n > 0 {
			// Fold in the latest snapshot at the block boundary, whole
			// or not at all; a block is never split between snapshots.
			p.applyParams()
			in := audio.Block{
				Samples:    scratch[:n*p.format.Channels],
				Channels:   p.format.Channels,
				SampleRate: p.format.SampleRate,
			}
			out := p.chain.Process(in)
			p.pos.Add(int64(n))
			if werr := p.ring.Write(out.Samples, p.writeWait); werr != nil {
				pending = cloneBlock(out)
			} else {
				p.tap.Push(out)
			}
		}
		if err == io.EOF {
			if pending.Frames() > 0 {
				// Deliver the last block before draining.
				continue
			}
			p.drain()
			p.emit(Event{Kind: EventDone})
			return
		}
		if err != nil {
			p.emit(Event{Kind: EventError, Err: fmt.Errorf("decode: %w", err)})
			return
		}
		if n == 0 {
			// Source has no data yet (live stream between packets);
			// idle briefly instead of spinning.
			time.Sleep(time.Millisecond)
		}
	}
}

// handle processes one control message; false means exit the run loop.
func (p *Pipeline) handle(msg ctrlMsg, paused *bool, pending *audio.Block) bool {
	switch msg.kind {
	case ctrlPause:
		*paused = true
	case ctrlResume:
		*paused = false
	case ctrlStop:
		return false
	case ctrlQuiesce:
		// A block parked on backpressure is in-flight pre-seek audio;
		// the flush that follows must not see it reappear.
		*pending = audio.Block{}
		close(msg.ack)
		select {
		case <-msg.release:
		case <-time.After(5 * time.Second):
			log.Printf("pipeline: quiesce release timed out")
		}
	}
	return true
}

// readBlock fills dst with up to one block of source frames, looping over
// short decoder reads so blocks stay full-sized until the stream ends.
func (p *Pipeline) readBlock(dst []float32) (frames int, err error) {
	ch := p.format.Channels
	filled := 0
	for filled < len(dst) {
		n, rerr := p.src.ReadSamples(dst[filled:])
		filled += n
		if rerr != nil {
			return filled / ch, rerr
		}
		if n == 0 {
			break
		}
	}
	return filled / ch, nil
}

// drain waits for the consumer to play out buffered audio after
// end-of-stream, bounded by the ring's worth of time plus slack, and
// stays responsive to stop.
func (p *Pipeline) drain() {
	limit := p.format.DurationFor(int64(p.ring.Capacity())) + time.Second
	deadline := time.Now().Add(limit)
	for p.ring.Buffered() > 0 && time.Now().Before(deadline) {
		select {
		case msg := <-p.ctrl:
			paused := false
			var pending audio.Block
			if !p.handle(msg, &paused, &pending) {
				return
			}
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// applyParams folds the latest snapshot into the stages.
func (p *Pipeline) applyParams() {
	params := p.bus.Current()
	if params.Version == p.lastVersion {
		return
	}
	p.lastVersion = params.Version

	p.chain.Gain.Set(params.Volume, params.Muted)
	p.chain.EQ.SetBandGains(params.EQGains)
	p.chain.Stretch.SetSpeed(params.Speed)
	if params.Fade.Seq != p.lastFadeSeq {
		p.lastFadeSeq = params.Fade.Seq
		if params.Fade.Direction != dsp.FadeNone {
			p.chain.Fade.Arm(params.Fade.Direction, params.Fade.Duration)
		}
	}
}

func (p *Pipeline) emit(ev Event) {
	select {
	case p.evs <- ev:
	default:
		log.Printf("pipeline: dropping event %d (no listener)", ev.Kind)
	}
}

func cloneBlock(b audio.Block) audio.Block {
	out := b
	out.Samples = append([]float32(nil), b.Samples...)
	return out
}
