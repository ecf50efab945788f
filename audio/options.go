package audio

import (
	"context"
	"log/slog"
)

const (
	defaultSampleRate = 48000
	defaultBlockSize  = 128
	defaultBPM        = 120
)

// Activator acquires the output device. It runs at most once successfully.
type Activator func(ctx context.Context) error

// Config holds the rendering settings of a Context.
type Config struct {
	SampleRate float64
	BlockSize  int
	BPM        float64

	activator Activator
	logger    *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithSampleRate sets the rendering sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the largest chunk rendered in one pass.
func WithBlockSize(blockSize int) Option {
	return func(cfg *Config) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// WithBPM sets the initial transport tempo.
func WithBPM(bpm float64) Option {
	return func(cfg *Config) {
		if bpm > 0 {
			cfg.BPM = bpm
		}
	}
}

// WithActivator installs the device activation step run by Activate.
func WithActivator(a Activator) Option {
	return func(cfg *Config) { cfg.activator = a }
}

// WithLogger sets the logger used for backend diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

func applyOptions(opts ...Option) Config {
	cfg := Config{
		SampleRate: defaultSampleRate,
		BlockSize:  defaultBlockSize,
		BPM:        defaultBPM,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
