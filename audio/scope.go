package audio

import (
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	waveformSize = 64
	spectrumSize = 1024
	minDBFS      = -140.0
)

// scope passes its input through and keeps the most recent samples of the
// mono sum for waveform and spectrum read-back.
type scope struct {
	ring  [spectrumSize]float64
	write int

	window []float64
	plan   *algofft.Plan[complex128]
	frame  []float64
	bins   []complex128
	re, im []float64
	mag    []float64
}

func newScope() *scope {
	return &scope{}
}

func (s *scope) process(_ *block, in, out stereo) {
	copy(out.l, in.l)
	copy(out.r, in.r)
	for i := range in.l {
		s.ring[s.write] = (in.l[i] + in.r[i]) / 2
		s.write = (s.write + 1) % spectrumSize
	}
}

// recent copies the last len(dst) samples into dst, oldest first.
func (s *scope) recent(dst []float64) {
	start := s.write - len(dst)
	for i := range dst {
		j := start + i
		if j < 0 {
			j += spectrumSize
		}
		dst[i] = s.ring[j]
	}
}

func (s *scope) waveform() []float32 {
	var buf [waveformSize]float64
	s.recent(buf[:])
	out := make([]float32, waveformSize)
	for i, v := range buf {
		out[i] = float32(v)
	}
	return out
}

// spectrum returns spectrumSize/2 magnitude bins in dBFS of the
// Hann-windowed recent signal. A full-scale sine reads about 0 dBFS.
func (s *scope) spectrum() []float64 {
	if s.plan == nil {
		plan, err := algofft.NewPlan64(spectrumSize)
		if err != nil {
			return nil
		}
		s.plan = plan
		s.window = hann(spectrumSize)
		s.frame = make([]float64, spectrumSize)
		s.bins = make([]complex128, spectrumSize)
		s.re = make([]float64, spectrumSize/2)
		s.im = make([]float64, spectrumSize/2)
		s.mag = make([]float64, spectrumSize/2)
	}

	s.recent(s.frame)
	vecmath.MulBlockInPlace(s.frame, s.window)
	for i, v := range s.frame {
		s.bins[i] = complex(v, 0)
	}
	if err := s.plan.Forward(s.bins, s.bins); err != nil {
		return nil
	}
	for i := range s.re {
		s.re[i] = real(s.bins[i])
		s.im[i] = imag(s.bins[i])
	}
	vecmath.Magnitude(s.mag, s.re, s.im)

	// Hann coherent gain is 0.5, so a unit sine peaks at N/4.
	const ref = spectrumSize / 4
	out := make([]float64, len(s.mag))
	for i, m := range s.mag {
		if m <= 0 {
			out[i] = minDBFS
			continue
		}
		out[i] = math.Max(20*math.Log10(m/ref), minDBFS)
	}
	return out
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}
