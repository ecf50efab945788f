// Package cli implements the patchbay command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/internal/config"
)

// RootOptions holds global flags and the state derived from them before
// any subcommand runs.
type RootOptions struct {
	Verbose   bool
	LogFormat string // "text" | "json"
	EnvFile   string

	Config config.Config
	Logger *slog.Logger
}

// ValidLogFormats lists the accepted --log-format values.
var ValidLogFormats = []string{"text", "json"}

// NewRootCommand creates the patchbay root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "patchbay",
		Short: "Modular audio patch engine",
		Long: `patchbay turns declarative patch graphs into live audio.

Patches are JSON or YAML documents of nodes and connections. They can be
rendered offline to WAV, played on the default audio device with live
reloading, or driven from an editor over a WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load settings from this .env file (default .env if present)")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewLibraryCommand(opts))

	return cmd
}

// setup loads the configuration and builds the logger.
func (o *RootOptions) setup(logOut io.Writer) error {
	if !slices.Contains(ValidLogFormats, o.LogFormat) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid log format %q: must be one of %v", o.LogFormat, ValidLogFormats))
	}

	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "configuration", err)
	}
	o.Config = cfg

	level := cfg.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if o.LogFormat == "json" {
		h = slog.NewJSONHandler(logOut, hopts)
	} else {
		h = slog.NewTextHandler(logOut, hopts)
	}
	o.Logger = slog.New(h)
	return nil
}

// logger returns the configured logger, or a discarding one when setup
// has not run (a subcommand executed on its own in tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
