// ABOUTME: Decoder adapter interface and codec selection
// ABOUTME: Opens a track source and returns a PCM sample source
package decode

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Source produces interleaved float32 PCM at a fixed, declared rate and
// channel layout. ReadSamples returns the number of samples written to dst
// and io.EOF once the stream is exhausted. Any other error is terminal for
// the track.
type Source interface {
	// ReadSamples fills dst with interleaved samples. Short reads are
	// allowed; a return of (0, io.EOF) marks end of stream.
	ReadSamples(dst []float32) (int, error)

	// SampleRate returns the source sample rate in Hz.
	SampleRate() int

	// Channels returns the number of interleaved channels.
	Channels() int

	// Duration returns the total source length in frames. ok is false
	// when the length is unknown (live streams).
	Duration() (frames int64, ok bool)

	// SeekFrame repositions the source to the given frame. Sources that
	// cannot seek return ErrSeekUnsupported.
	SeekFrame(frame int64) error

	// Close releases the underlying file or connection.
	Close() error
}

// ErrSeekUnsupported is returned by sources that cannot reposition,
// such as live HTTP streams.
var ErrSeekUnsupported = errors.New("decode: seek not supported by source")

// A DecodeError wraps a codec failure with the path that produced it.
// It is fatal for the track; the pipeline stops and surfaces it.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Open creates a decoder source for a local file or an http(s) MP3 stream,
// selecting the codec by URL scheme or file extension.
func Open(path string) (Source, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return NewHTTPMP3(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return NewMP3(path)
	case ".flac":
		return NewFLAC(path)
	case ".wav":
		return NewWAV(path)
	case ".ogg", ".oga":
		return NewVorbis(path)
	case ".opus":
		return NewOpus(path)
	default:
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unsupported format %q", filepath.Ext(path))}
	}
}

// skipFrames discards n frames from a source by reading into a scratch
// buffer. Used by sources that can only seek by re-reading from the start.
func skipFrames(s Source, n int64) error {
	if n <= 0 {
		return nil
	}
	scratch := make([]float32, 4096*s.Channels())
	remaining := n * int64(s.Channels())
	for remaining > 0 {
		want := int64(len(scratch))
		if want > remaining {
			want = remaining
		}
		read, err := s.ReadSamples(scratch[:want])
		remaining -= int64(read)
		if err == io.EOF {
			return nil // seek past end lands at end of stream
		}
		if err != nil {
			return err
		}
		if read == 0 {
			return nil
		}
	}
	return nil
}
