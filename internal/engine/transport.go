// ABOUTME: Transport state machine for playback control
// ABOUTME: Validates transitions; invalid ones are rejected, not ignored
package engine

import (
	"fmt"
	"sync"
)

// TransportState is the user-visible playback state.
type TransportState int

const (
	Stopped TransportState = iota
	Playing
	Paused
	Seeking
	TrackEnded
)

func (s TransportState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Seeking:
		return "seeking"
	case TrackEnded:
		return "track-ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport tracks the playback state and enforces the legal transition
// table. It carries no audio; the player drives the pipeline and keeps
// this machine in step.
type Transport struct {
	mu         sync.Mutex
	state      TransportState
	seekReturn TransportState // state to restore after a seek completes
}

// NewTransport starts in Stopped.
func NewTransport() *Transport {
	return &Transport{state: Stopped}
}

// State returns the current state.
func (t *Transport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Play moves to Playing from Stopped, Paused or TrackEnded.
func (t *Transport) Play() error {
	return t.transition(Playing, Stopped, Paused, TrackEnded)
}

// Pause moves Playing to Paused.
func (t *Transport) Pause() error {
	return t.transition(Paused, Playing)
}

// Resume moves Paused back to Playing.
func (t *Transport) Resume() error {
	return t.transition(Playing, Paused)
}

// Stop is legal from every state.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Stopped
}

// BeginSeek enters Seeking from Playing or Paused and remembers which of
// the two to restore.
func (t *Transport) BeginSeek() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Playing && t.state != Paused {
		return fmt.Errorf("cannot seek from %s", t.state)
	}
	t.seekReturn = t.state
	t.state = Seeking
	return nil
}

// EndSeek leaves Seeking for the state playback was in before the seek.
func (t *Transport) EndSeek() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Seeking {
		return fmt.Errorf("cannot end seek from %s", t.state)
	}
	t.state = t.seekReturn
	return nil
}

// TrackDone marks the natural end of a track.
func (t *Transport) TrackDone() error {
	return t.transition(TrackEnded, Playing)
}

func (t *Transport) transition(to TransportState, from ...TransportState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range from {
		if t.state == f {
			t.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", t.state, to)
}
