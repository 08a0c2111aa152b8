// ABOUTME: Oto-based audio sink
// ABOUTME: Exposes the frame source as a never-blocking 16-bit PCM reader
package output

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/ampkit/ampkit-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto is a pull-based sink: oto's player reads 16-bit PCM from a reader
// wrapped around the FrameReader. Because the FrameReader silence-pads,
// the reader never blocks and oto's internal buffer stays fed. Note oto
// allows only one context per process, so an Oto sink cannot be reopened
// with a different format.
type Oto struct {
	otoCtx *oto.Context
	player *oto.Player
	format audio.Format
}

func NewOto() *Oto {
	return &Oto{}
}

func (o *Oto) Open(format audio.Format, src FrameReader) error {
	if o.otoCtx != nil {
		return fmt.Errorf("oto sink already open")
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("create oto context: %w", err)
	}
	<-ready

	o.otoCtx = ctx
	o.format = format
	o.player = ctx.NewPlayer(&pcmReader{src: src, channels: format.Channels})
	o.player.Play()

	log.Printf("oto sink open: %dHz, %d channels", format.SampleRate, format.Channels)
	return nil
}

func (o *Oto) Pause() error {
	if o.player != nil && o.player.IsPlaying() {
		o.player.Pause()
	}
	return nil
}

func (o *Oto) Resume() error {
	if o.player != nil && !o.player.IsPlaying() {
		o.player.Play()
	}
	return nil
}

func (o *Oto) Close() error {
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("oto player close: %v", err)
		}
		o.player = nil
	}
	// The oto context has no Close; it lives for the process.
	return nil
}

// pcmReader adapts a FrameReader to the io.Reader oto pulls from,
// converting float32 frames to signed 16-bit little-endian PCM.
type pcmReader struct {
	src      FrameReader
	channels int
	scratch  []float32
}

func (r *pcmReader) Read(p []byte) (int, error) {
	frameBytes := r.channels * 2
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	samples := frames * r.channels
	if cap(r.scratch) < samples {
		r.scratch = make([]float32, samples)
	}
	buf := r.scratch[:samples]
	r.src.ReadFrames(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return samples * 2, nil
}
