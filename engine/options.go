package engine

import (
	"log/slog"
	"time"

	"github.com/cwbudde/algo-patch/backend"
)

type config struct {
	logger   *slog.Logger
	ramp     time.Duration
	pitch    int
	velocity float64
	onStep   func(step int)
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithRamp sets the smoothing time for continuous parameters. Zero makes
// every change instantaneous.
func WithRamp(d time.Duration) Option {
	return func(cfg *config) {
		if d >= 0 {
			cfg.ramp = d
		}
	}
}

// WithNote sets the pitch and velocity sequencers play. The default is
// middle C at full velocity.
func WithNote(pitch int, velocity float64) Option {
	return func(cfg *config) {
		cfg.pitch = pitch
		cfg.velocity = max(0, min(1, velocity))
	}
}

// WithOnStep installs an observer called on the clock goroutine after every
// tick with the step just played. It must not block.
func WithOnStep(fn func(step int)) Option {
	return func(cfg *config) { cfg.onStep = fn }
}

func applyOptions(opts ...Option) config {
	cfg := config{
		logger:   slog.Default(),
		ramp:     defaultRamp,
		pitch:    backend.NoteC4,
		velocity: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
