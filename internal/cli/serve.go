package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/internal/library"
	"github.com/cwbudde/algo-patch/internal/server"
	"github.com/cwbudde/algo-patch/patch"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen   string
	Library  string
	Headless bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve [patch]",
		Short: "Serve the engine to an editor over WebSocket",
		Long: `Run the engine behind a WebSocket control channel at /ws.

An editor sends graphs to reconcile, transport commands and monitoring
requests; the server pushes the current sequencer step to every client.
Patches saved from the editor go to the bbolt library.

Example:
  patchbay serve --listen :8765
  patchbay serve demo.json --library ~/.patchbay.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial string
			if len(args) == 1 {
				initial = args[0]
			}
			return runServe(cmd, opts, initial)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default from configuration)")
	cmd.Flags().StringVar(&opts.Library, "library", "", "patch library file (default from configuration)")
	cmd.Flags().BoolVar(&opts.Headless, "no-device", false, "run from a software clock without audio output")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions, initial string) error {
	log := opts.logger()
	listen := firstNonEmpty(opts.Listen, opts.Config.Listen)
	libPath := firstNonEmpty(opts.Library, opts.Config.Library)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib, err := library.Open(ctx, libPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening library", err)
	}
	defer func() {
		if err := lib.Close(); err != nil {
			log.Error("closing library", "error", err)
		}
	}()

	var srv *server.Server
	s := newSession(sessionOptions{
		cfg:     opts.Config,
		log:     log,
		drv:     newDriver(opts.Config, opts.Headless, log),
		engOpts: []engine.Option{engine.WithOnStep(func(step int) { srv.NotifyStep(step) })},
	})
	defer s.close(log)
	srv = server.New(s.eng, server.WithLibrary(lib), server.WithLogger(log))

	if initial != "" {
		doc, err := patch.Load(initial)
		if err != nil {
			return WrapExitError(ExitFailure, "loading patch", err)
		}
		rep, err := s.eng.Load(doc)
		if err != nil {
			return WrapExitError(ExitFailure, "loading patch", err)
		}
		logReport(log, rep)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on ws://%s/ws (library %s). Press Ctrl-C to stop.\n", listen, libPath)
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		return WrapExitError(ExitFailure, "server", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
