// ABOUTME: Malgo-based audio sink using the miniaudio callback API
// ABOUTME: Converts float32 frames to 16-bit PCM inside the device callback
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo is a callback-driven sink on top of miniaudio. The device
// callback pulls directly from the FrameReader, so the only work done in
// callback context is the pull plus a float32 to int16 conversion into a
// grow-only scratch buffer. No allocation or locking on the hot path
// after the first callback.
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	src      FrameReader
	started  bool

	scratch []float32
}

func NewMalgo() *Malgo {
	return &Malgo{}
}

func (m *Malgo) Open(format audio.Format, src FrameReader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo sink already open")
	}
	m.format = format
	m.src = src

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("malgo: %s", message)
	})
	if err != nil {
		return fmt.Errorf("init malgo context: %w", err)
	}
	m.malgoCtx = ctx

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: m.onSamples,
	}
	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		m.teardownContext()
		return fmt.Errorf("init malgo device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.device = nil
		m.teardownContext()
		return fmt.Errorf("start malgo device: %w", err)
	}
	m.started = true
	log.Printf("malgo sink open: %dHz, %d channels", format.SampleRate, format.Channels)
	return nil
}

// onSamples is the miniaudio data callback.
func (m *Malgo) onSamples(out, _ []byte, frameCount uint32) {
	samples := int(frameCount) * m.format.Channels
	if cap(m.scratch) < samples {
		m.scratch = make([]float32, samples)
	}
	buf := m.scratch[:samples]
	m.src.ReadFrames(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(s)))
	}
}

func (m *Malgo) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil || !m.started {
		return nil
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("stop malgo device: %w", err)
	}
	m.started = false
	return nil
}

func (m *Malgo) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil || m.started {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("start malgo device: %w", err)
	}
	m.started = true
	return nil
}

func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
		m.started = false
	}
	m.teardownContext()
	return nil
}

func (m *Malgo) teardownContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("malgo context uninit: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}
