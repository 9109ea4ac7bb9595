package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var (
		file      string
		contentID string
		fields    []string
		index     bool
	)
	cmd := &cobra.Command{
		Use:   "match [text]",
		Short: "Match text against the glossary and print the payload",
		Long: "Scans text (an argument, a file, or stdin with --file -) and prints the match payload as JSON.\n" +
			"With --field Name=value the fields are joined in the configured scan order instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}

			var text string
			if len(fields) > 0 {
				m := make(map[string]string, len(fields))
				for _, f := range fields {
					name, value, ok := strings.Cut(f, "=")
					if !ok {
						return fmt.Errorf("invalid --field %q, want Name=value", f)
					}
					m[name] = value
				}
				text = e.JoinFields(m)
			} else if text, err = readInput(cmd, args, file); err != nil {
				return err
			}

			if index {
				p, _, err := e.MatchOrIndex(cmd.Context(), contentID, text)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			}
			p, err := e.Match(cmd.Context(), contentID, text)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file (- for stdin)")
	cmd.Flags().StringVar(&contentID, "content-id", "glossctl", "content id used as the cache key")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "content field as Name=value (repeatable)")
	cmd.Flags().BoolVar(&index, "index-fallback", false, "print the index payload when nothing matches")
	return cmd
}
