// ABOUTME: WAV decoder source
// ABOUTME: Decodes PCM WAV files to float32 via go-audio/wav
package decode

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads PCM from a WAV file.
type WAVSource struct {
	path    string
	file    *os.File
	decoder *wav.Decoder
	intBuf  *goaudio.IntBuffer
	scale   float32
	total   int64
	pos     int64
}

// NewWAV opens a WAV file as a sample source.
func NewWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("not a valid WAV file")}
	}

	format := dec.Format()
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	var total int64
	if d, err := dec.Duration(); err == nil {
		total = int64(d.Seconds() * float64(format.SampleRate))
	}

	return &WAVSource{
		path:    path,
		file:    f,
		decoder: dec,
		intBuf: &goaudio.IntBuffer{
			Format:         format,
			SourceBitDepth: bitDepth,
		},
		scale: float32(int64(1) << (bitDepth - 1)),
		total: total,
	}, nil
}

func (s *WAVSource) SampleRate() int { return s.decoder.Format().SampleRate }
func (s *WAVSource) Channels() int   { return s.decoder.Format().NumChannels }

func (s *WAVSource) Duration() (int64, bool) {
	return s.total, s.total > 0
}

func (s *WAVSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.intBuf.Data) < len(dst) {
		s.intBuf.Data = make([]int, len(dst))
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.decoder.PCMBuffer(s.intBuf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		dst[i] = float32(s.intBuf.Data[i]) / s.scale
	}
	s.pos += int64(n / s.Channels())
	return n, nil
}

// SeekFrame re-opens the decoder and skips forward; go-audio exposes no
// frame-accurate seek on its PCM reader.
func (s *WAVSource) SeekFrame(frame int64) error {
	if frame >= s.pos {
		return skipFrames(s, frame-s.pos)
	}

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	dec := wav.NewDecoder(s.file)
	if !dec.IsValidFile() {
		return &DecodeError{Path: s.path, Err: fmt.Errorf("not a valid WAV file")}
	}
	s.decoder = dec
	s.pos = 0
	return skipFrames(s, frame)
}

func (s *WAVSource) Close() error {
	return s.file.Close()
}
