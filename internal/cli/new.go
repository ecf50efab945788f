package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/patch"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	Output string
	X, Y   float64
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new <kind|demo>",
		Short: "Print a new node or write the demo patch",
		Long: `Print a freshly created node of the given kind as JSON, with the same
defaults an editor assigns to a dropped node. With "demo", write the
starter patch instead.

Kinds: ` + kindList() + `

Example:
  patchbay new synth
  patchbay new demo -o demo.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(args[0], "demo") {
				return writeDemo(cmd, opts)
			}
			return printNode(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the demo patch to this file (.json or .yaml)")
	cmd.Flags().Float64Var(&opts.X, "x", 0, "canvas x position")
	cmd.Flags().Float64Var(&opts.Y, "y", 0, "canvas y position")

	return cmd
}

func kindList() string {
	kinds := patch.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = strings.ToLower(string(k))
	}
	return strings.Join(names, ", ")
}

func printNode(cmd *cobra.Command, opts *NewOptions, name string) error {
	k, ok := patch.ParseKind(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown kind %q (want one of %s)", name, kindList()))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(patch.NewNode(k, patch.Position{X: opts.X, Y: opts.Y})); err != nil {
		return WrapExitError(ExitFailure, "encoding node", err)
	}
	return nil
}

func writeDemo(cmd *cobra.Command, opts *NewOptions) error {
	if opts.Output == "" {
		if err := patch.Demo().WriteJSON(cmd.OutOrStdout()); err != nil {
			return WrapExitError(ExitFailure, "encoding demo", err)
		}
		return nil
	}
	if err := patch.Demo().Save(opts.Output); err != nil {
		return WrapExitError(ExitCommandError, "writing demo", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Output)
	return nil
}
