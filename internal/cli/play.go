package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/patch"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Headless bool
	Duration time.Duration
	Poll     time.Duration
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <patch>",
		Short: "Play a patch and reload it when the file changes",
		Long: `Play a patch on the default audio device.

The patch file is watched while playing. Saving it reconciles the running
engine with the new graph without restarting the transport, so sequencers
keep their place in the pattern.

Example:
  patchbay play demo.json
  patchbay play groove.yaml --duration 30s`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Headless, "no-device", false, "run from a software clock without audio output")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (default until interrupted)")
	cmd.Flags().DurationVar(&opts.Poll, "poll", 500*time.Millisecond, "patch file check interval")

	return cmd
}

func runPlay(cmd *cobra.Command, opts *PlayOptions, path string) error {
	if opts.Poll <= 0 {
		return NewExitError(ExitCommandError, "poll interval must be positive")
	}
	log := opts.logger()

	doc, err := patch.Load(path)
	if err != nil {
		return WrapExitError(ExitFailure, "loading patch", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s := newSession(sessionOptions{
		cfg: opts.Config,
		log: log,
		drv: newDriver(opts.Config, opts.Headless, log),
	})
	defer s.close(log)

	rep, err := s.eng.Load(doc)
	if err != nil {
		return WrapExitError(ExitFailure, "loading patch", err)
	}
	logReport(log, rep)

	if err := s.eng.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "starting playback", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Playing %s at %.0f BPM. Press Ctrl-C to stop.\n", path, s.eng.Tempo())

	watchFile(ctx, path, opts.Poll, func() { reload(s.eng, path, log) })

	s.eng.Stop()
	log.Info("playback stopped")
	return nil
}

// reload reconciles eng with the patch at path. The transport keeps
// running; an unreadable or invalid file leaves the live graph as is.
func reload(eng *engine.Engine, path string, log *slog.Logger) {
	doc, err := patch.Load(path)
	if err != nil {
		log.Warn("patch reload skipped", "path", path, "error", err)
		return
	}
	if doc.BPM > 0 && doc.BPM != eng.Tempo() {
		if err := eng.SetTempo(doc.BPM); err != nil {
			log.Warn("patch tempo rejected", "bpm", doc.BPM, "error", err)
		}
	}
	log.Info("patch reloaded", "path", path)
	logReport(log, eng.Reconcile(doc.Graph()))
}

func logReport(log *slog.Logger, rep engine.Report) {
	log.Debug("graph reconciled",
		"created", len(rep.Created),
		"removed", len(rep.Removed),
		"rebuilt", len(rep.Rebuilt),
		"edges", rep.Edges)
	if err := rep.Err(); err != nil {
		log.Warn("graph reconciled with errors", "error", err)
	}
}
