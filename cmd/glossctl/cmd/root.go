package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
)

type rootOptions struct {
	configPath  string
	termsDir    string
	palettePath string
	muteTags    string
	muteSet     bool
	logLevel    string
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "glossctl",
		Short:        "Offline glossary tooling",
		Long:         "Match text against a term directory, validate term documents, and inspect claimed surfaces.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.muteSet = cmd.Flags().Changed("mute")
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config file (defaults apply when empty)")
	pf.StringVar(&opts.termsDir, "terms-dir", "", "term directory, overrides the config")
	pf.StringVar(&opts.palettePath, "palette", "", "tag palette file, overrides the config")
	pf.StringVar(&opts.muteTags, "mute", "", "comma-separated tags to mute, overrides the config")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newMatchCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newSurfacesCmd(opts))
	root.AddCommand(newTermCmd(opts))
	root.AddCommand(newNotifyCmd(opts))
	root.AddCommand(newLiveCmd(opts))
	return root
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.termsDir != "" {
		cfg.Glossary.TermsDir = o.termsDir
	}
	if o.palettePath != "" {
		cfg.Glossary.PalettePath = o.palettePath
	}
	if o.muteSet {
		cfg.Glossary.MuteTags = o.muteTags
	}
	return cfg, nil
}

// loadEngine builds an engine over the configured directory and runs the
// first reload.
func (o *rootOptions) loadEngine(ctx context.Context) (*glossary.Engine, *glossary.ReloadReport, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	e := glossary.New(glossary.OptionsFromConfig(cfg.Glossary))
	report, err := e.Reload(ctx, cfg.Glossary.MuteTags)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", cfg.Glossary.TermsDir, err)
	}
	return e, report, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		return string(b), err
	case len(args) > 0:
		return args[0], nil
	}
	return "", fmt.Errorf("no text given: pass it as an argument or with --file")
}
