// Package updates listens for "glossary updated" notices on Kafka and
// reloads the local engine when one arrives. Notices are published by
// whatever synchronises the term directory (the sync client, glossctl).
package updates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
)

// Notice announces that the term documents changed. A nil MuteTags keeps
// the mute list the receiving engine already uses.
type Notice struct {
	Source      string    `json:"source"`
	MuteTags    *string   `json:"mute_tags,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Reloader rebuilds the glossary. *glossary.Engine implements it.
type Reloader interface {
	Reload(ctx context.Context, muteTags string) (*glossary.ReloadReport, error)
	ReloadCurrent(ctx context.Context) (*glossary.ReloadReport, error)
}

// Listener wraps a Kafka consumer on the glossary updates topic.
type Listener struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewListener(consumer *kafka.Consumer) *Listener {
	return &Listener{
		consumer: consumer,
		logger:   logger.WithComponent("update-listener"),
	}
}

// Start blocks until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	l.logger.Info("update listener starting")
	return l.consumer.Start(ctx)
}

// HandleMessage returns a kafka.MessageHandler that reloads the engine for
// every decodable notice. Undecodable notices are logged and committed;
// failed reloads leave the message uncommitted so it is retried.
func HandleMessage(reloader Reloader) kafka.MessageHandler {
	log := logger.WithComponent("update-listener")
	return func(ctx context.Context, key []byte, value []byte) error {
		notice, err := kafka.DecodeJSON[Notice](value)
		if err != nil {
			log.Error("failed to decode update notice",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		var report *glossary.ReloadReport
		if notice.MuteTags != nil {
			report, err = reloader.Reload(ctx, *notice.MuteTags)
		} else {
			report, err = reloader.ReloadCurrent(ctx)
		}
		if err != nil {
			return fmt.Errorf("reloading after notice from %q: %w", notice.Source, err)
		}

		log.Info("glossary reloaded from update notice",
			"source", notice.Source,
			"reason", notice.Reason,
			"generation", report.Generation,
			"terms", report.Terms,
			"skipped", len(report.Skipped),
		)
		return nil
	}
}

// Publisher is the producer side used to announce changes.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Announce publishes a notice keyed by its source.
func Announce(ctx context.Context, pub Publisher, notice Notice) error {
	if notice.PublishedAt.IsZero() {
		notice.PublishedAt = time.Now().UTC()
	}
	if err := pub.Publish(ctx, kafka.Event{Key: notice.Source, Value: notice}); err != nil {
		return fmt.Errorf("announcing glossary update: %w", err)
	}
	return nil
}
