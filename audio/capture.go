package audio

import (
	"bytes"
	"sync"
)

// recorder accumulates interleaved 16-bit output while active.
type recorder struct {
	mu         sync.Mutex
	active     bool
	samples    []int16
	channels   int
	sampleRate int
}

func (r *recorder) start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active = true
	r.samples = r.samples[:0]
}

func (r *recorder) write(left, right []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	for i := range left {
		r.samples = append(r.samples, toPCM16(left[i]), toPCM16(right[i]))
	}
}

// stop ends the recording and encodes it. A recorder that was never
// started yields a header-only file.
func (r *recorder) stop() ([]byte, error) {
	r.mu.Lock()
	samples := r.samples
	r.samples = nil
	r.active = false
	r.mu.Unlock()

	var buf bytes.Buffer
	if err := writeWAV(&buf, samples, r.channels, r.sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toPCM16(v float32) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	case v != v:
		return 0
	}
	return int16(v * 32767)
}
