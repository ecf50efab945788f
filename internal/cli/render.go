package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output     string
	Bars       int
	Tail       time.Duration
	SampleRate float64
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <patch>",
		Short: "Render a patch offline to a WAV file",
		Long: `Render a patch offline, as fast as possible, to a 16-bit stereo WAV file.

The sequencers run for the requested number of bars at the patch tempo,
followed by a tail so that delays and reverbs can ring out.

Example:
  patchbay render demo.json -o demo.wav --bars 4
  patchbay render groove.yaml -o - > groove.wav`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "out.wav", "output file, - for stdout")
	cmd.Flags().IntVar(&opts.Bars, "bars", 2, "number of bars to render")
	cmd.Flags().DurationVar(&opts.Tail, "tail", 2*time.Second, "extra time rendered after the last bar")
	cmd.Flags().Float64Var(&opts.SampleRate, "sample-rate", 0, "sample rate in Hz (default from configuration)")

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions, path string) error {
	if opts.Bars < 0 || opts.Tail < 0 {
		return NewExitError(ExitCommandError, "bars and tail must not be negative")
	}
	log := opts.logger()

	doc, err := patch.Load(path)
	if err != nil {
		return WrapExitError(ExitFailure, "loading patch", err)
	}

	s := newSession(sessionOptions{cfg: opts.Config, log: log, sampleHz: opts.SampleRate})
	defer s.close(log)

	rep, err := s.eng.Load(doc)
	if err != nil {
		return WrapExitError(ExitFailure, "loading patch", err)
	}
	if err := rep.Err(); err != nil {
		log.Warn("patch loaded with errors", "error", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.eng.StartCapture(ctx); err != nil {
		return WrapExitError(ExitFailure, "starting capture", err)
	}
	if err := s.eng.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "starting transport", err)
	}

	sr := s.ctx.SampleRate()
	bar := backend.Bar.Seconds(s.eng.Tempo())
	frames := int(math.Ceil((float64(opts.Bars)*bar + opts.Tail.Seconds()) * sr))
	log.Info("rendering", "patch", path, "bars", opts.Bars, "bpm", s.eng.Tempo(), "frames", frames)
	s.ctx.RenderFrames(frames)

	s.eng.Stop()
	data, err := s.eng.StopCapture()
	if err != nil {
		return WrapExitError(ExitFailure, "finishing capture", err)
	}

	if opts.Output == "-" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return WrapExitError(ExitFailure, "writing output", err)
		}
		return nil
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "writing output", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d frames at %.0f Hz)\n", opts.Output, frames, sr)
	return nil
}
