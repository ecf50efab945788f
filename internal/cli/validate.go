package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/audio"
	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/patch"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <patch>...",
		Short: "Check patch files without playing them",
		Long: `Check that patch files parse and that every node can be built.

Each file is loaded as a document, then reconciled against a silent
engine. Nodes of unknown kinds and connections that cannot carry audio
are reported.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), rootOpts.logger(), args)
		},
	}
	return cmd
}

func runValidate(w io.Writer, log *slog.Logger, paths []string) error {
	failed := 0
	for _, path := range paths {
		if err := validateFile(path, log); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(w, "ok   %s\n", path)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d patches invalid", failed, len(paths)))
	}
	return nil
}

func validateFile(path string, log *slog.Logger) error {
	doc, err := patch.Load(path)
	if err != nil {
		return err
	}

	eng := engine.New(audio.New(audio.WithLogger(log)), engine.WithLogger(log))
	defer eng.Close()

	rep, err := eng.Load(doc)
	if err != nil {
		return err
	}
	return rep.Err()
}
