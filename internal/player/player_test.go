// ABOUTME: Tests for the player facade
// ABOUTME: Drives real WAV tracks through a null sink
package player

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ampkit/ampkit-go/internal/dsp"
	"github.com/ampkit/ampkit-go/internal/engine"
	"github.com/ampkit/ampkit-go/pkg/audio/decode"
	"github.com/ampkit/ampkit-go/pkg/audio/output"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTone(t *testing.T, dir string, name string, frames int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	const rate = 44100
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: 1},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	for i := range buf.Data {
		buf.Data[i] = int(math.Sin(2*math.Pi*440*float64(i)/rate) * 16000)
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BlockFrames = 512
	cfg.BufferDuration = 50 * time.Millisecond
	cfg.FadeDuration = 0
	return cfg
}

// pump drains the null sink like a device would until stopped.
func pump(sink *output.Null) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				sink.Pull(256)
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return func() { close(done) }
}

func waitEvent(t *testing.T, p *Player, kind EventKind) Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event of kind %d", kind)
		}
	}
}

func TestPlayerPlaysTrackToEnd(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	p.Enqueue(writeTone(t, t.TempDir(), "a.wav", 22050))
	require.NoError(t, p.Play())
	assert.Equal(t, engine.Playing, p.State())

	ev := waitEvent(t, p, EventTrackStarted)
	assert.NotEmpty(t, ev.Track.ID)
	assert.True(t, ev.Track.Seekable)
	assert.InDelta(t, 0.5, ev.Track.Duration.Seconds(), 0.01)

	waitEvent(t, p, EventTrackEnded)
	assert.Equal(t, engine.Stopped, p.State())
}

func TestPlayerAutoAdvancesQueue(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	dir := t.TempDir()
	p.Enqueue(writeTone(t, dir, "a.wav", 8192), writeTone(t, dir, "b.wav", 8192))
	require.NoError(t, p.Play())

	first := waitEvent(t, p, EventTrackStarted)
	second := waitEvent(t, p, EventTrackStarted)
	assert.NotEqual(t, first.Track.Path, second.Track.Path)

	waitEvent(t, p, EventTrackEnded)
	assert.Equal(t, engine.Stopped, p.State())
}

func TestPlayerRepeatReplaysTrack(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	path := writeTone(t, t.TempDir(), "a.wav", 8192)
	p.Enqueue(path)
	p.SetRepeat(true)
	require.NoError(t, p.Play())

	first := waitEvent(t, p, EventTrackStarted)
	second := waitEvent(t, p, EventTrackStarted)
	assert.Equal(t, path, first.Track.Path)
	assert.Equal(t, path, second.Track.Path)

	p.SetRepeat(false)
	waitEvent(t, p, EventTrackEnded)
}

func TestPlayerPrevWrapsQueue(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	dir := t.TempDir()
	a := writeTone(t, dir, "a.wav", 441000)
	b := writeTone(t, dir, "b.wav", 441000)
	p.Enqueue(a, b)
	require.NoError(t, p.Play())
	first := waitEvent(t, p, EventTrackStarted)
	assert.Equal(t, a, first.Track.Path)

	// From the first track, previous wraps to the end of the queue.
	require.NoError(t, p.Prev())
	ev := waitEvent(t, p, EventTrackStarted)
	assert.Equal(t, b, ev.Track.Path)

	require.NoError(t, p.Prev())
	ev = waitEvent(t, p, EventTrackStarted)
	assert.Equal(t, a, ev.Track.Path)
}

func TestPlayerPrevWithEmptyQueue(t *testing.T) {
	p := New(output.NewNull(), testConfig())
	defer p.Close()
	assert.Error(t, p.Prev())
}

func TestPlayerShuffleKeepsAdvancing(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	// With one queued track, a shuffled pick always lands on it, so the
	// queue never runs out until shuffle is switched off.
	path := writeTone(t, t.TempDir(), "a.wav", 8192)
	p.Enqueue(path)
	p.SetShuffle(true)
	assert.True(t, p.Shuffle())
	require.NoError(t, p.Play())

	first := waitEvent(t, p, EventTrackStarted)
	second := waitEvent(t, p, EventTrackStarted)
	assert.Equal(t, path, first.Track.Path)
	assert.Equal(t, path, second.Track.Path)

	p.SetShuffle(false)
	waitEvent(t, p, EventTrackEnded)
}

func TestPlayerPauseResume(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	p.Enqueue(writeTone(t, t.TempDir(), "a.wav", 441000))
	require.NoError(t, p.Play())
	waitEvent(t, p, EventTrackStarted)

	require.NoError(t, p.Pause())
	assert.Equal(t, engine.Paused, p.State())
	pos := p.Position()
	time.Sleep(50 * time.Millisecond)
	// The producer is parked; the position counter holds still.
	assert.Equal(t, pos, p.Position())

	require.NoError(t, p.Resume())
	assert.Equal(t, engine.Playing, p.State())
}

func TestPlayerSeekMovesPosition(t *testing.T) {
	sink := output.NewNull()
	p := New(sink, testConfig())
	defer p.Close()
	stop := pump(sink)
	defer stop()

	// Ten seconds of audio, so the track outlives the test.
	p.Enqueue(writeTone(t, t.TempDir(), "a.wav", 441000))
	require.NoError(t, p.Play())
	waitEvent(t, p, EventTrackStarted)

	require.NoError(t, p.Seek(5*time.Second))
	pos := p.Position()
	assert.Greater(t, pos, 4800*time.Millisecond)
	assert.Less(t, pos, 5500*time.Millisecond)

	require.NoError(t, p.SeekBy(-2*time.Second))
	pos = p.Position()
	assert.Greater(t, pos, 2800*time.Millisecond)
	assert.Less(t, pos, 3500*time.Millisecond)

	// Relative seek clamps at the start.
	require.NoError(t, p.SeekBy(-time.Hour))
	assert.Less(t, p.Position(), time.Second)
}

func TestPlayerSeekWithoutTrack(t *testing.T) {
	p := New(output.NewNull(), testConfig())
	assert.Error(t, p.Seek(time.Second))
}

func TestPlayerParameterSetters(t *testing.T) {
	p := New(output.NewNull(), testConfig())

	p.SetVolume(0.3)
	assert.Equal(t, 0.3, p.Volume())
	p.SetVolume(7)
	assert.Equal(t, 1.0, p.Volume())

	p.SetMuted(true)
	assert.True(t, p.Muted())

	require.NoError(t, p.SetBandGain(2, 6))
	assert.Equal(t, 6.0, p.BandGains()[2])
	require.NoError(t, p.SetBandGain(0, 99))
	assert.Equal(t, float64(dsp.MaxBandGainDB), p.BandGains()[0])
	assert.Error(t, p.SetBandGain(-1, 0))
	assert.Error(t, p.SetBandGain(dsp.NumBands, 0))

	p.SetSpeed(2)
	assert.Equal(t, 2.0, p.Speed())
	p.SetSpeed(1000)
	assert.Equal(t, engine.MaxSpeed, p.Speed())
}

func TestPlayerLoadErrors(t *testing.T) {
	p := New(output.NewNull(), testConfig())

	assert.Error(t, p.Load(0)) // empty queue
	assert.Error(t, p.Play())  // nothing to play

	p.Enqueue(filepath.Join(t.TempDir(), "missing.mp3"))
	err := p.Load(0)
	require.Error(t, err)

	var derr *decode.DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestPlayerWaveformWithoutSession(t *testing.T) {
	p := New(output.NewNull(), testConfig())
	assert.Len(t, p.Waveform(32), 32)
	assert.Len(t, p.Spectrum(16), 16)
}
