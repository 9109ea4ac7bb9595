// Package live exposes the sync client's connectivity state to the matching
// engine. The engine only ever reads the last known value; polling happens in
// the background.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/resilience"
)

// Status is the state attached to every match payload.
type Status struct {
	Offline  bool `json:"offline"`
	LoggedIn bool `json:"loggedIn"`
}

// Source returns the current status without blocking.
type Source interface {
	Status() Status
}

// Static is a Source with a fixed value.
type Static Status

func (s Static) Status() Status { return Status(s) }

// StateReader is the subset of the Redis client the poller needs.
type StateReader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// failuresBeforeOffline is how many consecutive failed reads flip the state
// to offline.
const failuresBeforeOffline = 2

var errNoState = errors.New("no published state")

// Poller periodically reads the state hash published by the sync client
// under "<prefix>state" with fields "offline" and "logged_in".
type Poller struct {
	reader   StateReader
	key      string
	interval time.Duration
	timeout  time.Duration
	breaker  *resilience.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.RWMutex
	status   Status
	failures int
}

// NewPoller creates a Poller. m may be nil.
func NewPoller(reader StateReader, prefix string, interval time.Duration, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	p := &Poller{
		reader:   reader,
		key:      prefix + "state",
		interval: interval,
		timeout:  interval / 2,
		metrics:  m,
		logger:   slog.Default().With("component", "live-poller"),
	}
	p.breaker = resilience.NewCircuitBreaker("live-state", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return p
}

// Status returns the last known state.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Poll reads the published state once and updates the cached status.
func (p *Poller) Poll(ctx context.Context) error {
	var fields map[string]string
	err := p.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, p.timeout, "live-state", func(ctx context.Context) error {
			var err error
			fields, err = p.reader.HGetAll(ctx, p.key)
			if err == nil && len(fields) == 0 {
				err = errNoState
			}
			return err
		})
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		if p.failures >= failuresBeforeOffline && !p.status.Offline {
			p.status.Offline = true
			p.logger.Warn("sync state unavailable, marking offline", "failures", p.failures, "error", err)
		}
		p.observe()
		return fmt.Errorf("reading live state: %w", err)
	}
	p.failures = 0
	next := Status{
		Offline:  parseBool(fields["offline"]),
		LoggedIn: parseBool(fields["logged_in"]),
	}
	if next != p.status {
		p.logger.Info("live state changed", "offline", next.Offline, "logged_in", next.LoggedIn)
	}
	p.status = next
	p.observe()
	return nil
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	if err := p.Poll(ctx); err != nil {
		p.logger.Debug("initial poll failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				p.logger.Debug("poll failed", "error", err)
			}
		}
	}
}

func (p *Poller) observe() {
	if p.metrics == nil {
		return
	}
	v := 0.0
	if p.status.Offline {
		v = 1
	}
	p.metrics.LiveOffline.Set(v)
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// StateWriter is the subset of the Redis client used to publish state.
type StateWriter interface {
	HSet(ctx context.Context, key string, values ...any) error
}

// Publish writes s under "<prefix>state" in the layout the poller reads.
// The sync client does this in production; glossctl uses it in development.
func Publish(ctx context.Context, w StateWriter, prefix string, s Status) error {
	err := w.HSet(ctx, prefix+"state",
		"offline", strconv.FormatBool(s.Offline),
		"logged_in", strconv.FormatBool(s.LoggedIn),
	)
	if err != nil {
		return fmt.Errorf("publishing live state: %w", err)
	}
	return nil
}
