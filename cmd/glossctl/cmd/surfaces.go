package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSurfacesCmd(opts *rootOptions) *cobra.Command {
	var ambiguous bool
	cmd := &cobra.Command{
		Use:   "surfaces",
		Short: "List claimed surfaces and their claimant terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SURFACE\tCLAIMANTS")
			for _, sc := range e.Surfaces() {
				if ambiguous && len(sc.Claimants) < 2 {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\n", sc.Surface, strings.Join(sc.Claimants, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&ambiguous, "ambiguous", false, "only surfaces claimed by more than one term")
	return cmd
}

func newTermCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "term <id>",
		Short: "Print the view of one term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			view, err := e.Term(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}
