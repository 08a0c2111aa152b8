// ABOUTME: MP3 decoder source
// ABOUTME: Decodes MP3 files to float32 PCM via hajimehoshi/go-mp3
package decode

import (
	"io"
	"os"

	"github.com/ampkit/ampkit-go/pkg/audio"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// mp3BytesPerFrame is the decoder's fixed output framing: 16-bit stereo.
const mp3BytesPerFrame = 4

// MP3Source reads PCM from an MP3 file.
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3 opens an MP3 file as a sample source.
func NewMP3(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &MP3Source{file: f, decoder: dec}, nil
}

func (s *MP3Source) SampleRate() int { return s.decoder.SampleRate() }

// Channels is always 2: go-mp3 upmixes mono streams to stereo.
func (s *MP3Source) Channels() int { return 2 }

func (s *MP3Source) Duration() (int64, bool) {
	return s.decoder.Length() / mp3BytesPerFrame, true
}

func (s *MP3Source) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := s.decoder.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = audio.SampleFromInt16(v)
	}
	return samples, nil
}

// SeekFrame repositions using the decoder's byte-exact PCM seeking.
func (s *MP3Source) SeekFrame(frame int64) error {
	_, err := s.decoder.Seek(frame*mp3BytesPerFrame, io.SeekStart)
	return err
}

func (s *MP3Source) Close() error {
	return s.file.Close()
}
