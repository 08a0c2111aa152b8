// ABOUTME: Engine error taxonomy
// ABOUTME: Flow-control sentinels stay internal; device failures carry context
package engine

import (
	"errors"
	"fmt"
)

// ErrBufferFull is returned by Ring.Write when the bounded backpressure
// wait expires. It is a flow-control signal, never shown to the user.
var ErrBufferFull = errors.New("output buffer full")

// ErrStopped is returned by pipeline operations after the pipeline has
// exited.
var ErrStopped = errors.New("pipeline stopped")

// DeviceError wraps a fatal output device failure. Playback stops and the
// error is surfaced to the UI.
type DeviceError struct {
	Backend string
	Err     error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Backend, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
