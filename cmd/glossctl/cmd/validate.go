package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the term directory and report skipped documents",
		Long:  "Loads every term document and fails when any document was skipped or the index could not be built.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, report, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "terms: %d\nsurfaces: %d\nsingle-word surfaces: %d\n",
					report.Terms, report.Surfaces, report.SingleWords)
				for _, le := range report.Skipped {
					fmt.Fprintf(out, "skipped %s: %s\n", le.File, le.Reason)
				}
				if report.IndexErr != nil {
					fmt.Fprintf(out, "index: %v\n", report.IndexErr)
				}
			}
			if report.IndexErr != nil {
				return report.IndexErr
			}
			if n := len(report.Skipped); n > 0 {
				return fmt.Errorf("%d document(s) skipped", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full reload report as JSON")
	return cmd
}
