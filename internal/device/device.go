package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pa "github.com/gordonklaus/portaudio"
)

// ErrNoRenderer is returned when a driver is activated before Attach.
var ErrNoRenderer = errors.New("device: no renderer attached")

// Renderer produces stereo output. audio.Context implements it.
type Renderer interface {
	Render(left, right []float32)
}

// Output streams a Renderer to the default PortAudio output device. The
// stream is opened lazily by Activate so that it can be installed as an
// audio activator before the renderer exists.
type Output struct {
	sampleRate float64
	frames     int
	log        *slog.Logger

	mu       sync.Mutex
	renderer Renderer
	stream   *pa.Stream
}

// NewOutput returns an Output for the given sample rate and buffer size.
func NewOutput(sampleRate float64, frames int, logger *slog.Logger) *Output {
	if logger == nil {
		logger = slog.Default()
	}
	return &Output{sampleRate: sampleRate, frames: frames, log: logger}
}

// Attach sets the renderer the stream pulls from.
func (o *Output) Attach(r Renderer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.renderer = r
}

// Activate initialises PortAudio and starts the output stream. Calling it
// on an open Output is a no-op.
func (o *Output) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream != nil {
		return nil
	}
	if o.renderer == nil {
		return ErrNoRenderer
	}

	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("device: initialize portaudio: %w", err)
	}
	stream, err := pa.OpenDefaultStream(0, 2, o.sampleRate, o.frames, o.process)
	if err != nil {
		_ = pa.Terminate()
		return fmt.Errorf("device: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = pa.Terminate()
		return fmt.Errorf("device: start stream: %w", err)
	}
	o.stream = stream

	if dev, err := pa.DefaultOutputDevice(); err == nil {
		o.log.Info("audio device opened",
			"device", dev.Name,
			"sampleRate", stream.Info().SampleRate,
			"latency", stream.Info().OutputLatency)
	}
	return nil
}

// process is the PortAudio callback. It runs on the device thread.
func (o *Output) process(out [][]float32) {
	fillStereo(o.renderer, out)
}

// fillStereo renders into a non-interleaved device buffer. Channels past
// the second repeat the stereo pair.
func fillStereo(r Renderer, out [][]float32) {
	switch len(out) {
	case 0:
		return
	case 1:
		r.Render(out[0], out[0])
		return
	}
	r.Render(out[0], out[1])
	for ch := 2; ch < len(out); ch++ {
		copy(out[ch], out[ch%2])
	}
}

// Close stops the stream and releases PortAudio.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream == nil {
		return nil
	}
	errs := []error{o.stream.Stop(), o.stream.Close(), pa.Terminate()}
	o.stream = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("device: close: %w", err)
	}
	return nil
}
