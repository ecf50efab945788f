package cli

import (
	"context"
	"log/slog"

	"github.com/cwbudde/algo-patch/audio"
	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/internal/config"
	"github.com/cwbudde/algo-patch/internal/device"
)

// driver pulls audio from the context in real time.
type driver interface {
	Attach(r device.Renderer)
	Activate(ctx context.Context) error
	Close() error
}

// session bundles an audio context, the engine on top of it and the
// optional real-time driver.
type session struct {
	ctx *audio.Context
	eng *engine.Engine
	drv driver
}

type sessionOptions struct {
	cfg      config.Config
	log      *slog.Logger
	drv      driver
	engOpts  []engine.Option
	sampleHz float64
}

func newSession(o sessionOptions) *session {
	sr := o.cfg.SampleRate
	if o.sampleHz > 0 {
		sr = o.sampleHz
	}

	aopts := []audio.Option{
		audio.WithSampleRate(sr),
		audio.WithBlockSize(o.cfg.BlockSize),
		audio.WithBPM(o.cfg.BPM),
		audio.WithLogger(o.log),
	}
	if o.drv != nil {
		aopts = append(aopts, audio.WithActivator(o.drv.Activate))
	}
	actx := audio.New(aopts...)
	if o.drv != nil {
		o.drv.Attach(actx)
	}

	eopts := append([]engine.Option{
		engine.WithLogger(o.log),
		engine.WithRamp(o.cfg.Ramp),
	}, o.engOpts...)

	return &session{
		ctx: actx,
		eng: engine.New(actx, eopts...),
		drv: o.drv,
	}
}

// newDriver returns the PortAudio output, or a software clock when
// headless is set.
func newDriver(cfg config.Config, headless bool, log *slog.Logger) driver {
	if headless {
		return device.NewTicker(cfg.SampleRate, 0)
	}
	return device.NewOutput(cfg.SampleRate, cfg.BlockSize, log)
}

func (s *session) close(log *slog.Logger) {
	if err := s.eng.Close(); err != nil {
		log.Error("closing engine", "error", err)
	}
	if s.drv != nil {
		if err := s.drv.Close(); err != nil {
			log.Error("closing audio device", "error", err)
		}
	}
}
