package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patch/internal/library"
	"github.com/cwbudde/algo-patch/patch"
)

// LibraryOptions holds flags shared by the library subcommands.
type LibraryOptions struct {
	*RootOptions
	Path string
}

// NewLibraryCommand creates the library command and its subcommands.
func NewLibraryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LibraryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the named patch library",
		Long: `Store, list, retrieve and remove named patches in the bbolt library
shared with the serve command.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "library", "", "patch library file (default from configuration)")

	cmd.AddCommand(
		&cobra.Command{
			Use:           "list",
			Short:         "List stored patches",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withLibrary(cmd, opts, func(lib *library.Store) error {
					return listPatches(cmd, lib)
				})
			},
		},
		&cobra.Command{
			Use:           "put <name> <patch>",
			Short:         "Store a patch file under a name",
			Args:          cobra.ExactArgs(2),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := patch.Load(args[1])
				if err != nil {
					return WrapExitError(ExitFailure, "loading patch", err)
				}
				return withLibrary(cmd, opts, func(lib *library.Store) error {
					if err := lib.Put(args[0], doc); err != nil {
						return WrapExitError(ExitFailure, "storing patch", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
					return nil
				})
			},
		},
		newLibraryGetCommand(opts),
		&cobra.Command{
			Use:           "rm <name>",
			Short:         "Remove a stored patch",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLibrary(cmd, opts, func(lib *library.Store) error {
					if err := lib.Delete(args[0]); err != nil {
						return WrapExitError(ExitFailure, "removing patch", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func newLibraryGetCommand(opts *LibraryOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "get <name>",
		Short:         "Print a stored patch or write it to a file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cmd, opts, func(lib *library.Store) error {
				doc, err := lib.Get(args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "reading patch", err)
				}
				if output == "" {
					return doc.WriteJSON(cmd.OutOrStdout())
				}
				if err := doc.Save(output); err != nil {
					return WrapExitError(ExitCommandError, "writing patch", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file (.json or .yaml) instead of stdout")
	return cmd
}

func withLibrary(cmd *cobra.Command, opts *LibraryOptions, fn func(*library.Store) error) error {
	path := firstNonEmpty(opts.Path, opts.Config.Library)
	if path == "" {
		return NewExitError(ExitCommandError, "no library file configured")
	}
	lib, err := library.Open(cmd.Context(), path)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening library", err)
	}
	defer lib.Close()
	return fn(lib)
}

func listPatches(cmd *cobra.Command, lib *library.Store) error {
	names, err := lib.List()
	if err != nil {
		return WrapExitError(ExitFailure, "listing patches", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNODES\tBPM")
	for _, name := range names {
		doc, err := lib.Get(name)
		if err != nil {
			fmt.Fprintf(tw, "%s\t?\t?\n", name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%g\n", name, len(doc.Nodes), doc.BPM)
	}
	return tw.Flush()
}
