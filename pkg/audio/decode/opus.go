// ABOUTME: Ogg Opus decoder source
// ABOUTME: Decodes .opus files to float32 PCM via hraban/opus streams
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"

	opus "gopkg.in/hraban/opus.v2"
)

// opusRate is fixed: libopusfile always decodes to 48 kHz.
const opusRate = 48000

// OpusSource reads PCM from an Ogg Opus file.
type OpusSource struct {
	path     string
	file     *os.File
	stream   *opus.Stream
	channels int
	pos      int64
}

// NewOpus opens an Ogg Opus file as a sample source.
func NewOpus(path string) (*OpusSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	// The stream decoder emits the link's native channel layout but has
	// no accessor for it, so pull the count from the identification
	// header before handing the file over.
	channels, err := opusHeadChannels(f)
	if err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	stream, err := opus.NewStream(f)
	if err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &OpusSource{path: path, file: f, stream: stream, channels: channels}, nil
}

// opusHeadChannels reads the channel count from the OpusHead packet in
// the first Ogg page.
func opusHeadChannels(r io.Reader) (int, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	idx := bytes.Index(buf[:n], []byte("OpusHead"))
	if idx < 0 || idx+10 > n {
		return 0, errors.New("opus: missing OpusHead header")
	}
	// Magic (8 bytes), version (1), channel count (1).
	channels := int(buf[idx+9])
	if channels == 0 {
		return 0, errors.New("opus: zero channel count in OpusHead")
	}
	return channels, nil
}

func (s *OpusSource) SampleRate() int { return opusRate }

// Channels reports the stream's native layout from the OpusHead header.
func (s *OpusSource) Channels() int { return s.channels }

// Duration is unknown without walking the Ogg pages; report it as such.
func (s *OpusSource) Duration() (int64, bool) { return 0, false }

func (s *OpusSource) ReadSamples(dst []float32) (int, error) {
	// ReadFloat32 reports frames decoded per channel.
	frames, err := s.stream.ReadFloat32(dst)
	if frames == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	s.pos += int64(frames)
	return frames * s.channels, nil
}

// SeekFrame re-opens the stream and decodes forward; the opus stream
// reader has no native seek.
func (s *OpusSource) SeekFrame(frame int64) error {
	if frame >= s.pos {
		return skipFrames(s, frame-s.pos)
	}

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	stream, err := opus.NewStream(s.file)
	if err != nil {
		return &DecodeError{Path: s.path, Err: err}
	}
	s.stream = stream
	s.pos = 0
	return skipFrames(s, frame)
}

func (s *OpusSource) Close() error {
	return s.file.Close()
}
