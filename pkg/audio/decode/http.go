// ABOUTME: HTTP MP3 stream source
// ABOUTME: Decodes live MP3 streams; duration unknown, no seeking
package decode

import (
	"fmt"
	"net/http"

	"github.com/ampkit/ampkit-go/pkg/audio"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// HTTPMP3Source streams MP3 from an HTTP URL.
type HTTPMP3Source struct {
	response *http.Response
	decoder  *mp3.Decoder
	buf      []byte
}

// NewHTTPMP3 opens an MP3 stream over HTTP.
func NewHTTPMP3(url string) (*HTTPMP3Source, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, &DecodeError{Path: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &DecodeError{Path: url, Err: fmt.Errorf("HTTP %s", resp.Status)}
	}

	dec, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, &DecodeError{Path: url, Err: err}
	}

	return &HTTPMP3Source{response: resp, decoder: dec}, nil
}

func (s *HTTPMP3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *HTTPMP3Source) Channels() int   { return 2 }

// Duration is unknown for live streams.
func (s *HTTPMP3Source) Duration() (int64, bool) { return 0, false }

func (s *HTTPMP3Source) ReadSamples(dst []float32) (int, error) {
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

func (s *HTTPMP3Source) SeekFrame(int64) error { return ErrSeekUnsupported }

func (s *HTTPMP3Source) Close() error {
	return s.response.Body.Close()
}
