// ABOUTME: Ogg Vorbis decoder source
// ABOUTME: Decodes Vorbis files to float32 PCM via jfreymuth/oggvorbis
package decode

import (
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisSource reads PCM from an Ogg Vorbis file.
type VorbisSource struct {
	file   *os.File
	reader *oggvorbis.Reader
}

// NewVorbis opens an Ogg Vorbis file as a sample source.
func NewVorbis(path string) (*VorbisSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &VorbisSource{file: f, reader: r}, nil
}

func (s *VorbisSource) SampleRate() int { return s.reader.SampleRate() }
func (s *VorbisSource) Channels() int   { return s.reader.Channels() }

func (s *VorbisSource) Duration() (int64, bool) {
	n := s.reader.Length()
	return n, n > 0
}

func (s *VorbisSource) ReadSamples(dst []float32) (int, error) {
	// The reader returns whole frames already interleaved as float32.
	n, err := s.reader.Read(dst)
	if n == 0 && err != nil {
		return 0, err
	}
	return n, nil
}

// SeekFrame uses the reader's native granule seeking.
func (s *VorbisSource) SeekFrame(frame int64) error {
	return s.reader.SetPosition(frame)
}

func (s *VorbisSource) Close() error {
	return s.file.Close()
}
