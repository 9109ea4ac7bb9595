// Command glossaryd serves glossary matching over HTTP.
//
// It loads term documents from the configured directory, answers match,
// term, index and reload requests, and keeps the glossary fresh by watching
// the directory and listening for update notices on Kafka. Match events are
// published to Kafka and aggregated for GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/glossaryd [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/changelog"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/handler"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/watcher"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/live"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/updates"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/redis"
)

const (
	eventBufferSize    = 10000
	eventBatchSize     = 100
	eventFlushInterval = 2 * time.Second
	snapshotInterval   = time.Minute
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting glossary service",
		"port", cfg.Server.Port,
		"terms_dir", cfg.Glossary.TermsDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	checker := health.NewChecker()

	var db *postgres.Client
	if cfg.Changelog.Backend == config.ChangelogPostgres {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checker.Register("postgres", health.Ping(db.Ping, false))
	}

	history, err := openChangelog(ctx, cfg.Changelog, db)
	if err != nil {
		slog.Error("failed to open changelog", "backend", cfg.Changelog.Backend, "error", err)
		os.Exit(1)
	}
	defer history.Close()
	slog.Info("changelog ready", "backend", cfg.Changelog.Backend)

	var liveSource live.Source = live.Static{}
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, live status fixed to online", "error", err)
		} else {
			defer redisClient.Close()
			poller := live.NewPoller(redisClient, cfg.Redis.LiveKeyPrefix, cfg.Redis.PollInterval, m)
			go poller.Run(ctx)
			liveSource = poller
			checker.Register("redis", health.Ping(redisClient.Ping, false))
			slog.Info("live status poller started", "addr", cfg.Redis.Addr, "interval", cfg.Redis.PollInterval)
		}
	}

	agg := analytics.NewAggregator()
	var sink glossary.EventSink = agg
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, eventBufferSize, eventBatchSize, eventFlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		sink = collector

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents, agg.HandleMessage)
		go func() {
			if err := agg.Start(ctx, consumer); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
		slog.Info("analytics pipeline started", "topic", cfg.Kafka.Topics.MatchEvents)
	}
	if db != nil {
		snapshots := aggregator.NewStore(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		} else {
			snapshots.StartPeriodicSave(ctx, agg, snapshotInterval)
		}
	}

	engine := glossary.New(glossary.OptionsFromConfig(cfg.Glossary),
		glossary.WithLive(liveSource),
		glossary.WithMetrics(m),
		glossary.WithChangelog(history),
		glossary.WithEventSink(sink),
	)
	report, err := engine.Reload(ctx, cfg.Glossary.MuteTags)
	if err != nil {
		slog.Error("initial glossary load failed", "error", err)
		os.Exit(1)
	}
	slog.Info("glossary loaded",
		"generation", report.Generation,
		"terms", report.Terms,
		"surfaces", report.Surfaces,
		"skipped", len(report.Skipped),
	)

	checker.Register("glossary", func(ctx context.Context) health.ComponentHealth {
		if !engine.Ready() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "glossary not loaded"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d", engine.Generation()),
		}
	})

	if cfg.Glossary.Watch {
		w, err := watcher.New(cfg.Glossary.TermsDir, cfg.Glossary.PalettePath, cfg.Glossary.WatchDebounce, engine)
		if err != nil {
			slog.Warn("term directory watcher disabled", "error", err)
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					slog.Error("term directory watcher error", "error", err)
				}
			}()
		}
	}

	if cfg.Kafka.Enabled {
		// Every instance must see every notice, so the group is per host.
		updatesCfg := cfg.Kafka
		host, _ := os.Hostname()
		updatesCfg.ConsumerGroup = fmt.Sprintf("%s-updates-%s", cfg.Kafka.ConsumerGroup, host)
		consumer := kafka.NewConsumer(updatesCfg, cfg.Kafka.Topics.GlossaryUpdates, updates.HandleMessage(engine))
		listener := updates.NewListener(consumer)
		go func() {
			if err := listener.Start(ctx); err != nil {
				slog.Error("update listener error", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	handler.New(engine, cfg.Glossary.ShipIndexLimit).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	adminLimiter := middleware.NewLimiter(cfg.Server.AdminRateLimit, time.Minute)
	go adminLimiter.Sweep(ctx, 5*time.Minute)

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(cfg.Server.CORSOrigins, 86400),
		middleware.Metrics(m),
		middleware.RateLimit(adminLimiter, "POST /api/v1/reload", "POST /api/v1/cache/invalidate"),
		middleware.Timeout(cfg.Server.WriteTimeout, "/api/v1/reload"),
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     chain,
		ReadTimeout: cfg.Server.ReadTimeout,
		// Reload is exempt from the request timeout; the write deadline
		// still caps it.
		WriteTimeout: cfg.Server.WriteTimeout * 3,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("glossary service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("glossary service stopped")
}

func openChangelog(ctx context.Context, cfg config.ChangelogConfig, db *postgres.Client) (changelog.Store, error) {
	switch cfg.Backend {
	case config.ChangelogBolt:
		store, err := changelog.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.ChangelogPostgres:
		store := changelog.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return changelog.Nop{}, nil
	}
}
