// ABOUTME: Player facade tying transport, pipeline, sink and queue together
// ABOUTME: The UI talks to this; one playback session per loaded track
package player

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ampkit/ampkit-go/internal/dsp"
	"github.com/ampkit/ampkit-go/internal/engine"
	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/ampkit/ampkit-go/pkg/audio/decode"
	"github.com/ampkit/ampkit-go/pkg/audio/output"
	"github.com/google/uuid"
)

// Config holds the fixed playback parameters.
type Config struct {
	SampleRate     int           // pipeline-standard rate; sources are resampled to it
	BlockFrames    int           // frames per pipeline cycle
	BufferDuration time.Duration // ring capacity as wall time
	FadeDuration   time.Duration // fade-in on play, fade-out on stop; 0 disables
	TapSamples     int           // visualization history size
}

// DefaultConfig returns the standard playback parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:     44100,
		BlockFrames:    2048,
		BufferDuration: 200 * time.Millisecond,
		FadeDuration:   300 * time.Millisecond,
		TapSamples:     8192,
	}
}

// Track describes a loaded source.
type Track struct {
	ID       string
	Path     string
	Format   audio.Format
	Duration time.Duration // zero when unknown (live streams)
	Seekable bool
}

// EventKind classifies player notifications.
type EventKind int

const (
	EventTrackStarted EventKind = iota
	EventTrackEnded             // queue exhausted, playback stopped
	EventPlaybackError
)

// Event is a player notification for the UI.
type Event struct {
	Kind  EventKind
	Track Track
	Err   error
}

// session is the per-track playback machinery.
type session struct {
	track    Track
	src      decode.Source
	pipeline *engine.Pipeline
	ring     *engine.Ring
	tap      *engine.Tap
	watchEnd chan struct{}
}

// ringSource gives the sink a stable FrameReader across track changes:
// the sink is opened once and sessions swap the ring underneath it.
type ringSource struct {
	ring atomic.Pointer[engine.Ring]
}

func (s *ringSource) ReadFrames(dst []float32) int {
	r := s.ring.Load()
	if r == nil {
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}
	return r.ReadFrames(dst)
}

// Player owns the playback session, the queue and the device sink. All
// methods are safe to call from the UI goroutine; internal goroutines
// never call back into the UI.
type Player struct {
	cfg       Config
	sink      output.Sink
	bus       *engine.Bus
	transport *engine.Transport
	frames    *ringSource

	mu       sync.Mutex
	sess     *session
	sinkOpen bool
	queue    []string
	queuePos int
	repeat   bool
	shuffle  bool
	fadeSeq  uint64

	events chan Event
}

// New creates a player over the given sink.
func New(sink output.Sink, cfg Config) *Player {
	return &Player{
		cfg:       cfg,
		sink:      sink,
		bus:       engine.NewBus(),
		transport: engine.NewTransport(),
		frames:    &ringSource{},
		queuePos:  -1,
		events:    make(chan Event, 8),
	}
}

// Events delivers track lifecycle notifications.
func (p *Player) Events() <-chan Event {
	return p.events
}

// State returns the transport state.
func (p *Player) State() engine.TransportState {
	return p.transport.State()
}

// Enqueue appends paths to the queue.
func (p *Player) Enqueue(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, paths...)
}

// SetRepeat toggles repeating the current track when it ends.
func (p *Player) SetRepeat(repeat bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = repeat
}

// Repeat reports the repeat setting.
func (p *Player) Repeat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeat
}

// SetShuffle toggles random track selection on Next and auto-advance.
func (p *Player) SetShuffle(shuffle bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shuffle = shuffle
}

// Shuffle reports the shuffle setting.
func (p *Player) Shuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shuffle
}

// Load opens the track at queue index i and replaces the current
// session. Playback does not start until Play.
func (p *Player) Load(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.queue) {
		return fmt.Errorf("queue index %d out of range", i)
	}
	if err := p.openSessionLocked(p.queue[i]); err != nil {
		return err
	}
	p.queuePos = i
	return nil
}

// Current returns the loaded track, if any.
func (p *Player) Current() (Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return Track{}, false
	}
	return p.sess.track, true
}

// Play starts playback of the loaded track, loading the first queue
// entry when nothing is loaded yet. Arms a fade-in when configured.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport.State() == engine.Paused {
		// The session is live, just parked.
		if err := p.transport.Resume(); err != nil {
			return err
		}
		if err := p.sess.pipeline.Resume(); err != nil {
			return err
		}
		return p.sink.Resume()
	}

	if p.sess == nil {
		if len(p.queue) == 0 {
			return fmt.Errorf("nothing to play")
		}
		if err := p.openSessionLocked(p.queue[0]); err != nil {
			return err
		}
		p.queuePos = 0
	}

	if err := p.transport.Play(); err != nil {
		return err
	}
	if p.cfg.FadeDuration > 0 {
		p.armFadeLocked(dsp.FadeIn, p.cfg.FadeDuration)
	}
	p.sess.pipeline.Start()
	p.watchSession(p.sess)
	if err := p.sink.Resume(); err != nil {
		return &engine.DeviceError{Backend: "sink", Err: err}
	}
	p.emit(Event{Kind: EventTrackStarted, Track: p.sess.track})
	log.Printf("playing %s", p.sess.track.Path)
	return nil
}

// Pause halts playback, keeping buffered audio for a gapless resume.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transport.Pause(); err != nil {
		return err
	}
	if err := p.sess.pipeline.Pause(); err != nil {
		return err
	}
	return p.sink.Pause()
}

// Resume continues paused playback.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.transport.Resume(); err != nil {
		return err
	}
	if err := p.sess.pipeline.Resume(); err != nil {
		return err
	}
	return p.sink.Resume()
}

// Stop ends playback and releases the track. With a fade configured and
// audio playing, a fade-out runs to completion first.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.sess != nil && p.cfg.FadeDuration > 0 && p.transport.State() == engine.Playing {
		p.armFadeLocked(dsp.FadeOut, p.cfg.FadeDuration)
		p.mu.Unlock()
		time.Sleep(p.cfg.FadeDuration + p.cfg.BufferDuration)
		p.mu.Lock()
	}
	p.closeSessionLocked()
	p.transport.Stop()
	p.mu.Unlock()
}

// Seek moves the playback position to pos.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seekLocked(pos)
}

// SeekBy moves relative to the current position; negative rewinds.
// Clamped at the start of the track.
func (p *Player) SeekBy(delta time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := p.positionLocked() + delta
	if pos < 0 {
		pos = 0
	}
	return p.seekLocked(pos)
}

// Position returns the playback position of the loaded track.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// Duration returns the track length, false when unknown.
func (p *Player) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil || p.sess.track.Duration == 0 {
		return 0, false
	}
	return p.sess.track.Duration, true
}

// Waveform returns the last n visualization samples.
func (p *Player) Waveform(n int) []float32 {
	p.mu.Lock()
	tap := p.tapLocked()
	p.mu.Unlock()
	if tap == nil {
		return make([]float32, n)
	}
	return tap.Waveform(n)
}

// Spectrum returns bins magnitude values of recent audio.
func (p *Player) Spectrum(bins int) []float64 {
	p.mu.Lock()
	tap := p.tapLocked()
	p.mu.Unlock()
	if tap == nil {
		return make([]float64, bins)
	}
	return tap.Spectrum(bins)
}

// SetVolume sets playback volume in [0, 1].
func (p *Player) SetVolume(v float64) {
	p.bus.Update(func(pr *engine.Params) { pr.Volume = v })
}

// Volume returns the published volume.
func (p *Player) Volume() float64 {
	return p.bus.Current().Volume
}

// SetMuted mutes or unmutes without touching the volume.
func (p *Player) SetMuted(muted bool) {
	p.bus.Update(func(pr *engine.Params) { pr.Muted = muted })
}

// Muted reports the mute flag.
func (p *Player) Muted() bool {
	return p.bus.Current().Muted
}

// SetBandGain sets one equalizer band's gain in dB.
func (p *Player) SetBandGain(band int, gainDB float64) error {
	if band < 0 || band >= dsp.NumBands {
		return fmt.Errorf("band %d out of range", band)
	}
	p.bus.Update(func(pr *engine.Params) { pr.EQGains[band] = gainDB })
	return nil
}

// BandGains returns the published equalizer gains.
func (p *Player) BandGains() []float64 {
	return append([]float64(nil), p.bus.Current().EQGains...)
}

// SetSpeed sets the playback speed factor.
func (p *Player) SetSpeed(speed float64) {
	p.bus.Update(func(pr *engine.Params) { pr.Speed = speed })
}

// Speed returns the published speed factor.
func (p *Player) Speed() float64 {
	return p.bus.Current().Speed
}

// TriggerFade arms a fade envelope over the given wall time.
func (p *Player) TriggerFade(direction dsp.FadeDirection, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armFadeLocked(direction, duration)
}

// Next skips to the next queue entry, if any, and plays it. With
// shuffle on, the next track is picked at random from the queue.
func (p *Player) Next() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advanceLocked(p.nextIndexLocked())
}

// Prev skips to the previous queue entry and plays it, wrapping to the
// end of the queue from the first track.
func (p *Player) Prev() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return fmt.Errorf("queue is empty")
	}
	return p.advanceLocked((p.queuePos - 1 + len(p.queue)) % len(p.queue))
}

// nextIndexLocked picks the queue index that follows the current track.
func (p *Player) nextIndexLocked() int {
	if p.shuffle && len(p.queue) > 0 {
		return rand.Intn(len(p.queue))
	}
	return p.queuePos + 1
}

// Close stops playback and releases the sink.
func (p *Player) Close() error {
	p.Stop()
	return p.sink.Close()
}

func (p *Player) positionLocked() time.Duration {
	if p.sess == nil {
		return 0
	}
	format := audio.Format{SampleRate: p.cfg.SampleRate, Channels: p.sess.track.Format.Channels}
	return format.DurationFor(p.sess.pipeline.Position())
}

func (p *Player) tapLocked() *engine.Tap {
	if p.sess == nil {
		return nil
	}
	return p.sess.tap
}

func (p *Player) armFadeLocked(direction dsp.FadeDirection, duration time.Duration) {
	p.fadeSeq++
	seq := p.fadeSeq
	frames := int64(audio.Format{SampleRate: p.cfg.SampleRate}.FramesFor(duration))
	p.bus.Update(func(pr *engine.Params) {
		pr.Fade = engine.FadeRequest{Direction: direction, Duration: frames, Seq: seq}
	})
}

// openSessionLocked builds a playback session for path, replacing any
// current one.
func (p *Player) openSessionLocked(path string) error {
	p.closeSessionLocked()

	src, err := decode.Open(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	src = decode.ToRate(src, p.cfg.SampleRate)

	format := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}
	track := Track{
		ID:     uuid.New().String(),
		Path:   path,
		Format: format,
	}
	if frames, ok := src.Duration(); ok {
		track.Duration = format.DurationFor(frames)
	}
	track.Seekable = !errors.Is(src.SeekFrame(0), decode.ErrSeekUnsupported)

	if err := p.ensureSinkLocked(format); err != nil {
		src.Close()
		return err
	}

	ring := engine.NewRing(format.FramesFor(p.cfg.BufferDuration), format.Channels)
	tap := engine.NewTap(p.cfg.TapSamples)
	sess := &session{
		track:    track,
		src:      src,
		pipeline: engine.NewPipeline(src, p.bus, ring, tap, p.cfg.BlockFrames),
		ring:     ring,
		tap:      tap,
		watchEnd: make(chan struct{}),
	}
	p.frames.ring.Store(ring)
	p.sess = sess
	return nil
}

// ensureSinkLocked opens the device once; later tracks reuse it as long
// as the format matches, which the standard-rate resampling guarantees
// for the sample rate. A channel-count change needs a reopen.
func (p *Player) ensureSinkLocked(format audio.Format) error {
	if p.sinkOpen {
		return nil
	}
	if err := p.sink.Open(format, p.frames); err != nil {
		return &engine.DeviceError{Backend: "sink", Err: err}
	}
	p.sinkOpen = true
	return nil
}

func (p *Player) closeSessionLocked() {
	if p.sess == nil {
		return
	}
	sess := p.sess
	p.sess = nil
	p.frames.ring.Store(nil)

	sess.pipeline.Stop()
	close(sess.watchEnd)
	if err := sess.src.Close(); err != nil {
		log.Printf("close source: %v", err)
	}
}

// watchSession forwards pipeline lifecycle events and the underrun
// counter for the session.
func (p *Player) watchSession(sess *session) {
	go func() {
		var lastUnderruns int64
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case ev := <-sess.pipeline.Events():
				switch ev.Kind {
				case engine.EventDone:
					p.onTrackDone(sess)
				case engine.EventError:
					p.onTrackError(sess, ev.Err)
				}
				return
			case <-ticker.C:
				if u := sess.ring.Underruns(); u > lastUnderruns {
					log.Printf("audio underruns: %d (+%d)", u, u-lastUnderruns)
					lastUnderruns = u
				}
			case <-sess.watchEnd:
				return
			case <-sess.pipeline.Done():
				return
			}
		}
	}()
}

// onTrackDone handles natural end of stream: repeat, advance, or stop.
func (p *Player) onTrackDone(sess *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != sess {
		return
	}
	if err := p.transport.TrackDone(); err != nil {
		log.Printf("track done: %v", err)
	}

	next := p.nextIndexLocked()
	if p.repeat {
		next = p.queuePos
	}
	if err := p.advanceLocked(next); err != nil {
		p.closeSessionLocked()
		p.transport.Stop()
		p.emit(Event{Kind: EventTrackEnded, Track: sess.track})
	}
}

func (p *Player) onTrackError(sess *session, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != sess {
		return
	}
	track := sess.track
	p.closeSessionLocked()
	p.transport.Stop()
	log.Printf("playback error on %s: %v", track.Path, err)
	p.emit(Event{Kind: EventPlaybackError, Track: track, Err: err})
}

// advanceLocked loads queue entry i and starts it playing.
func (p *Player) advanceLocked(i int) error {
	if i < 0 || i >= len(p.queue) {
		return fmt.Errorf("queue index %d out of range", i)
	}
	if err := p.openSessionLocked(p.queue[i]); err != nil {
		return err
	}
	p.queuePos = i

	// Manual track switches arrive mid-playback; the transport is
	// already Playing then and stays there.
	if p.transport.State() != engine.Playing {
		if err := p.transport.Play(); err != nil {
			return err
		}
	}
	p.sess.pipeline.Start()
	p.watchSession(p.sess)
	if err := p.sink.Resume(); err != nil {
		return &engine.DeviceError{Backend: "sink", Err: err}
	}
	p.emit(Event{Kind: EventTrackStarted, Track: p.sess.track})
	log.Printf("playing %s", p.sess.track.Path)
	return nil
}

func (p *Player) seekLocked(pos time.Duration) error {
	if p.sess == nil {
		return fmt.Errorf("no track loaded")
	}
	if !p.sess.track.Seekable {
		return decode.ErrSeekUnsupported
	}
	target := int64(audio.Format{SampleRate: p.cfg.SampleRate}.FramesFor(pos))

	if err := p.transport.BeginSeek(); err != nil {
		return err
	}
	release, err := p.sess.pipeline.Quiesce()
	if err != nil {
		p.transport.EndSeek()
		return err
	}

	p.sess.ring.Flush(p.cfg.BufferDuration)
	err = p.sess.src.SeekFrame(target)
	if err == nil {
		p.sess.pipeline.SetPosition(target)
		p.sess.pipeline.ResetChain()
	}
	release()

	if e := p.transport.EndSeek(); e != nil {
		return e
	}
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

func (p *Player) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		log.Printf("player: dropping event %d (no listener)", ev.Kind)
	}
}
