// ABOUTME: Linear-interpolation resampler wrapping a decoder source
// ABOUTME: Converts any source to the pipeline-standard sample rate
package decode

import "io"

// Resampled wraps a Source and converts it to a target sample rate with
// linear interpolation, carrying fractional position across reads so chunk
// boundaries introduce no discontinuity. Resampling happens here, at the
// decoder edge, never inside effect stages.
type Resampled struct {
	src     Source
	outRate int
	ratio   float64 // input frames consumed per output frame
	phase   float64 // fractional read position into the input queue
	in      []float32
	tmp     []float32
	eof     bool
}

// ToRate returns src unchanged when it already runs at rate, otherwise a
// resampling wrapper.
func ToRate(src Source, rate int) Source {
	if src.SampleRate() == rate {
		return src
	}
	return NewResampled(src, rate)
}

// NewResampled creates a resampling wrapper around a source.
func NewResampled(src Source, outRate int) *Resampled {
	return &Resampled{
		src:     src,
		outRate: outRate,
		ratio:   float64(src.SampleRate()) / float64(outRate),
	}
}

func (r *Resampled) SampleRate() int { return r.outRate }
func (r *Resampled) Channels() int   { return r.src.Channels() }

func (r *Resampled) Duration() (int64, bool) {
	frames, ok := r.src.Duration()
	if !ok {
		return 0, false
	}
	return int64(float64(frames) / r.ratio), true
}

func (r *Resampled) ReadSamples(dst []float32) (int, error) {
	ch := r.src.Channels()
	written := 0

	for written+ch <= len(dst) {
		// Interpolation needs the frame at the current phase and its
		// successor.
		need := int(r.phase) + 2
		for len(r.in)/ch < need && !r.eof {
			if cap(r.tmp) < 4096*ch {
				r.tmp = make([]float32, 4096*ch)
			}
			n, err := r.src.ReadSamples(r.tmp[:cap(r.tmp)])
			r.in = append(r.in, r.tmp[:n]...)
			if err == io.EOF {
				r.eof = true
				break
			}
			if err != nil {
				return written, err
			}
			if n == 0 {
				break
			}
		}
		if len(r.in)/ch < need {
			break
		}

		idx := int(r.phase)
		frac := float32(r.phase - float64(idx))
		for c := 0; c < ch; c++ {
			a := r.in[idx*ch+c]
			b := r.in[(idx+1)*ch+c]
			dst[written+c] = a + (b-a)*frac
		}
		written += ch
		r.phase += r.ratio

		// Discard input frames the phase has moved past.
		if drop := int(r.phase); drop > 0 {
			r.in = append(r.in[:0], r.in[drop*ch:]...)
			r.phase -= float64(drop)
		}
	}

	if written == 0 {
		if r.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	return written, nil
}

// SeekFrame seeks the underlying source at its native rate and resets the
// interpolation state.
func (r *Resampled) SeekFrame(frame int64) error {
	if err := r.src.SeekFrame(int64(float64(frame) * r.ratio)); err != nil {
		return err
	}
	r.phase = 0
	r.in = r.in[:0]
	r.eof = false
	return nil
}

func (r *Resampled) Close() error {
	return r.src.Close()
}
