package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/kafka"
)

// latencyWindow bounds how many recent latencies feed the percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalMatches     int64       `json:"total_matches"`
	CacheHits        int64       `json:"cache_hits"`
	CacheMisses      int64       `json:"cache_misses"`
	ZeroMatchCount   int64       `json:"zero_match_count"`
	ScanErrors       int64       `json:"scan_errors"`
	FuzzyAdditions   int64       `json:"fuzzy_additions"`
	Reloads          int64       `json:"reloads"`
	LastGeneration   uint64      `json:"last_generation"`
	AvgLatencyMicros float64     `json:"avg_latency_us"`
	P50LatencyMicros int64       `json:"p50_latency_us"`
	P95LatencyMicros int64       `json:"p95_latency_us"`
	P99LatencyMicros int64       `json:"p99_latency_us"`
	TopTerms         []TermCount `json:"top_terms"`
	MatchesPerMinute float64     `json:"matches_per_minute"`
}

type TermCount struct {
	TermID string `json:"term_id"`
	Count  int64  `json:"count"`
}

// Aggregator folds match and reload events into running statistics. It can
// be fed in process through Track or from Kafka through HandleMessage.
type Aggregator struct {
	mu             sync.RWMutex
	totalMatches   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	zeroMatches    atomic.Int64
	scanErrors     atomic.Int64
	fuzzyAdditions atomic.Int64
	reloads        atomic.Int64
	lastGeneration atomic.Uint64
	latencies      []int64
	next           int
	termCounts     map[string]int64
	startTime      time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:  make([]int64, 0, 1024),
		termCounts: make(map[string]int64),
		startTime:  time.Now(),
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start consumes events until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// Track records an event produced in the same process.
func (a *Aggregator) Track(event any) {
	switch e := event.(type) {
	case MatchEvent:
		a.recordMatch(e)
	case ReloadEvent:
		a.recordReload(e)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", fmt.Sprintf("%T", event))
	}
}

// HandleMessage is a kafka.MessageHandler. Undecodable messages are logged
// and committed so they do not block the partition.
func (a *Aggregator) HandleMessage(_ context.Context, _ []byte, value []byte) error {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		a.logger.Error("failed to decode analytics event", "error", err)
		return nil
	}
	switch envelope.Type {
	case EventReload:
		e, err := kafka.DecodeJSON[ReloadEvent](value)
		if err != nil {
			a.logger.Error("failed to decode reload event", "error", err)
			return nil
		}
		a.recordReload(e)
	case EventMatch, EventZeroMatch, EventScanError:
		e, err := kafka.DecodeJSON[MatchEvent](value)
		if err != nil {
			a.logger.Error("failed to decode match event", "error", err)
			return nil
		}
		a.recordMatch(e)
	default:
		a.logger.Warn("ignoring analytics event", "type", envelope.Type)
	}
	return nil
}

func (a *Aggregator) recordMatch(e MatchEvent) {
	a.totalMatches.Add(1)
	if e.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	switch e.Type {
	case EventZeroMatch:
		a.zeroMatches.Add(1)
	case EventScanError:
		a.scanErrors.Add(1)
	}
	a.fuzzyAdditions.Add(int64(e.FuzzyAdded))

	a.mu.Lock()
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, e.LatencyMicros)
	} else {
		a.latencies[a.next] = e.LatencyMicros
		a.next = (a.next + 1) % latencyWindow
	}
	for _, id := range e.TermIDs {
		a.termCounts[id]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordReload(e ReloadEvent) {
	a.reloads.Add(1)
	a.lastGeneration.Store(e.Generation)
}

// defaultTopTerms is how many terms Stats ranks.
const defaultTopTerms = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(defaultTopTerms)
}

// StatsTop is Stats with the n most matched terms.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalMatches:   a.totalMatches.Load(),
		CacheHits:      a.cacheHits.Load(),
		CacheMisses:    a.cacheMisses.Load(),
		ZeroMatchCount: a.zeroMatches.Load(),
		ScanErrors:     a.scanErrors.Load(),
		FuzzyAdditions: a.fuzzyAdditions.Load(),
		Reloads:        a.reloads.Load(),
		LastGeneration: a.lastGeneration.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMicros = float64(sum) / float64(len(sorted))
		stats.P50LatencyMicros = percentile(sorted, 50)
		stats.P95LatencyMicros = percentile(sorted, 95)
		stats.P99LatencyMicros = percentile(sorted, 99)
	}
	stats.TopTerms = topN(a.termCounts, n)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.MatchesPerMinute = float64(stats.TotalMatches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for id, count := range counts {
		result = append(result, TermCount{TermID: id, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].TermID < result[j].TermID
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
