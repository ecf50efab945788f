// Package config reads process settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvSampleRate = "PATCHBAY_SAMPLE_RATE"
	EnvBlockSize  = "PATCHBAY_BLOCK_SIZE"
	EnvBPM        = "PATCHBAY_BPM"
	EnvListen     = "PATCHBAY_LISTEN"
	EnvLibrary    = "PATCHBAY_LIBRARY"
	EnvRampMS     = "PATCHBAY_RAMP_MS"
	EnvLogLevel   = "PATCHBAY_LOG_LEVEL"
)

// ErrInvalid is returned for a setting that does not parse or is out of range.
var ErrInvalid = errors.New("config: invalid setting")

// Config holds the process settings.
type Config struct {
	SampleRate float64
	BlockSize  int
	BPM        float64
	Listen     string
	Library    string
	Ramp       time.Duration
	LogLevel   slog.Level
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		SampleRate: 48000,
		BlockSize:  256,
		BPM:        120,
		Listen:     "127.0.0.1:8765",
		Library:    "patches.db",
		Ramp:       50 * time.Millisecond,
		LogLevel:   slog.LevelInfo,
	}
}

// Load reads envFile into the process environment, then builds a Config
// from it. An empty envFile means ".env", which may be absent. Variables
// already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromMap builds a Config from the given variables, as returned by
// godotenv.Read or godotenv.Parse.
func FromMap(env map[string]string) (Config, error) {
	return FromLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
}

// FromLookup builds a Config from a variable lookup such as os.LookupEnv.
// Unset or empty variables keep their defaults.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error
	if v, ok := get(EnvSampleRate); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 8000 && f <= 384000) {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvSampleRate, v))
		} else {
			cfg.SampleRate = f
		}
	}
	if v, ok := get(EnvBlockSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 8192 {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvBlockSize, v))
		} else {
			cfg.BlockSize = n
		}
	}
	if v, ok := get(EnvBPM); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 20 && f <= 400) {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvBPM, v))
		} else {
			cfg.BPM = f
		}
	}
	if v, ok := get(EnvListen); ok {
		cfg.Listen = v
	}
	if v, ok := get(EnvLibrary); ok {
		cfg.Library = v
	}
	if v, ok := get(EnvRampMS); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvRampMS, v))
		} else {
			cfg.Ramp = time.Duration(n) * time.Millisecond
		}
	}
	if v, ok := get(EnvLogLevel); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalid, EnvLogLevel, v))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
