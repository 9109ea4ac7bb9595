package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/updates"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/kafka"
)

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Announce a glossary update so running services reload",
		Long:  "Publishes an update notice on the glossary updates topic. --mute, when given, becomes the services' new mute list.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.GlossaryUpdates)
			defer producer.Close()

			notice := updates.Notice{Source: "glossctl", Reason: reason}
			if opts.muteSet {
				mute := opts.muteTags
				notice.MuteTags = &mute
			}
			if err := updates.Announce(cmd.Context(), producer, notice); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "update announced on %s\n", cfg.Kafka.Topics.GlossaryUpdates)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "free-form reason recorded with the notice")
	return cmd
}
