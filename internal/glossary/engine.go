// Package glossary wires term loading, pattern indexing, fuzzy matching,
// caching and payload assembly into a single Engine.
//
// An Engine serves matches from an immutable snapshot. Reload builds a new
// snapshot off to the side and publishes it with one atomic swap, so a
// concurrent Match sees either the old or the new glossary, never a mix.
package glossary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/changelog"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/cache"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/index"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/payload"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/term"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/live"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/tracing"
)

// fieldSeparator joins scanned fields so a surface never spans two fields.
const fieldSeparator = " \n "

// Options are the engine's glossary settings.
type Options struct {
	TermsDir             string
	PalettePath          string
	ScanFields           []string
	MaxHighlights        int
	MaxSingleWordLength  int
	MuteTags             string
	ShipIndexIfNoMatches bool
	ShipIndexLimit       int
	Fuzzy                config.FuzzyConfig
}

func OptionsFromConfig(cfg config.GlossaryConfig) Options {
	return Options{
		TermsDir:             cfg.TermsDir,
		PalettePath:          cfg.PalettePath,
		ScanFields:           cfg.ScanFields,
		MaxHighlights:        cfg.MaxHighlights,
		MaxSingleWordLength:  cfg.MaxSingleWordLength,
		MuteTags:             cfg.MuteTags,
		ShipIndexIfNoMatches: cfg.ShipIndexIfNoMatches,
		ShipIndexLimit:       cfg.ShipIndexLimit,
		Fuzzy:                cfg.Fuzzy,
	}
}

// EventSink receives analytics events. Track must not block.
type EventSink interface {
	Track(event any)
}

type Option func(*Engine)

func WithLive(src live.Source) Option {
	return func(e *Engine) { e.live = src }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithChangelog(s changelog.Store) Option {
	return func(e *Engine) { e.changelog = s }
}

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

type snapshot struct {
	generation   uint64
	store        *term.Store
	index        *index.Index
	fuzzy        *fuzzy.Matcher
	assembler    *payload.Assembler
	muteTags     string
	fingerprints map[string]string
}

// ReloadReport summarizes one reload. IndexErr wraps ErrIndexBuild when the
// automaton could not be built; exact matching is then disabled until the
// next reload.
type ReloadReport struct {
	Generation   uint64           `json:"generation"`
	Terms        int              `json:"terms"`
	Surfaces     int              `json:"surfaces"`
	SingleWords  int              `json:"single_words"`
	MuteTags     []string         `json:"mute_tags"`
	Skipped      []term.LoadError `json:"skipped"`
	IndexErr     error            `json:"-"`
	IndexError   string           `json:"index_error,omitempty"`
	CacheCleared int              `json:"cache_cleared"`
	Diff         changelog.Diff   `json:"diff"`
	Duration     time.Duration    `json:"duration_ns"`
	CompletedAt  time.Time        `json:"completed_at"`
}

type Engine struct {
	opts      Options
	current   atomic.Pointer[snapshot]
	cache     *cache.MatchCache
	reloadMu  sync.Mutex
	group     singleflight.Group
	live      live.Source
	metrics   *metrics.Metrics
	changelog changelog.Store
	events    EventSink
	logger    *slog.Logger
	scans     atomic.Int64
	last      atomic.Pointer[ReloadReport]
}

// New returns an engine serving an empty glossary. Call Reload to load terms.
func New(opts Options, options ...Option) *Engine {
	if opts.MaxSingleWordLength <= 0 {
		opts.MaxSingleWordLength = 40
	}
	e := &Engine{
		opts:      opts,
		cache:     cache.New(),
		live:      live.Static{},
		changelog: changelog.Nop{},
		logger:    slog.Default().With("component", "glossary-engine"),
	}
	for _, o := range options {
		o(e)
	}
	store, _ := term.NewStore(nil)
	e.current.Store(e.newSnapshot(0, store, term.Palette{}, opts.MuteTags))
	return e
}

func (e *Engine) newSnapshot(generation uint64, store *term.Store, palette term.Palette, muteTags string) *snapshot {
	ix := index.Build(store.Terms(), index.Options{
		MuteTags:            MuteSet(muteTags),
		MaxSingleWordLength: e.opts.MaxSingleWordLength,
	})
	return &snapshot{
		generation:   generation,
		store:        store,
		index:        ix,
		fuzzy:        fuzzy.New(ix, e.opts.Fuzzy.MinLength),
		assembler:    payload.NewAssembler(store, ix, palette),
		muteTags:     muteTags,
		fingerprints: store.Fingerprints(),
	}
}

// MuteSet parses a comma-separated mute list into lowercased tag names.
func MuteSet(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tag := range config.SplitList(raw) {
		set[strings.ToLower(tag)] = struct{}{}
	}
	return set
}

// Reload rebuilds the glossary from the terms directory and palette with the
// given mute tags and publishes it. Concurrent reloads with the same mute
// tags share one rebuild. A malformed document never fails a reload; only
// an unreadable terms directory does.
func (e *Engine) Reload(ctx context.Context, muteTags string) (*ReloadReport, error) {
	return e.sharedReload(ctx, "reload:"+muteTags, &muteTags)
}

// ReloadCurrent rebuilds the glossary keeping the mute tags in force when
// the rebuild starts, so it never undoes a concurrent Reload with new tags.
func (e *Engine) ReloadCurrent(ctx context.Context) (*ReloadReport, error) {
	return e.sharedReload(ctx, "reload-current", nil)
}

// sharedReload runs the rebuild detached from the caller's cancellation,
// since other callers may be waiting on it. A cancelled caller stops waiting
// and gets its context error; the rebuild still completes.
func (e *Engine) sharedReload(ctx context.Context, key string, muteTags *string) (*ReloadReport, error) {
	ch := e.group.DoChan(key, func() (any, error) {
		return e.reload(context.WithoutCancel(ctx), muteTags)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for glossary reload: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ReloadReport), nil
	}
}

// reload keeps the current mute tags when muteTags is nil. They are read
// under reloadMu so a queued rebuild sees the tags of the one before it.
func (e *Engine) reload(ctx context.Context, muteTags *string) (*ReloadReport, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	mute := e.current.Load().muteTags
	if muteTags != nil {
		mute = *muteTags
	}

	ctx, span := tracing.StartChildSpan(ctx, "glossary.reload")
	defer func() {
		span.End()
		span.Log(e.logger)
	}()
	start := time.Now()

	_, loadSpan := tracing.StartChildSpan(ctx, "glossary.load")
	store, skipped, err := term.Load(ctx, e.opts.TermsDir)
	loadSpan.End()
	if err != nil {
		e.observeReload("failure", 0, time.Since(start))
		return nil, fmt.Errorf("reloading glossary: %w", err)
	}
	for _, le := range skipped {
		e.logger.Warn("skipped term document", "file", le.File, "reason", le.Reason)
	}

	palette, err := term.LoadPalette(e.opts.PalettePath)
	if err != nil {
		e.logger.Warn("tag palette unreadable, continuing without it", "path", e.opts.PalettePath, "error", err)
		palette = term.Palette{}
	}

	_, buildSpan := tracing.StartChildSpan(ctx, "glossary.build")
	prev := e.current.Load()
	next := e.newSnapshot(prev.generation+1, store, palette, mute)
	buildSpan.SetAttr("surfaces", next.index.Len())
	buildSpan.End()

	if ixErr := next.index.Err(); ixErr != nil {
		e.logger.Error("pattern index build failed, exact matching disabled", "error", ixErr)
	}

	e.current.Store(next)
	// Clearing after the swap keeps a late match from repopulating the
	// cache from the old snapshot.
	cleared := e.cache.Clear()

	report := &ReloadReport{
		Generation:   next.generation,
		Terms:        store.Len(),
		Surfaces:     next.index.Len(),
		SingleWords:  next.index.SingleWordCount(),
		MuteTags:     config.SplitList(mute),
		Skipped:      skipped,
		IndexErr:     next.index.Err(),
		CacheCleared: cleared,
		Diff:         changelog.Compute(prev.fingerprints, next.fingerprints),
		Duration:     time.Since(start),
		CompletedAt:  time.Now().UTC(),
	}
	if report.Skipped == nil {
		report.Skipped = []term.LoadError{}
	}
	if report.IndexErr != nil {
		report.IndexError = report.IndexErr.Error()
	}

	entry := changelog.Entry{
		Generation: report.Generation,
		At:         report.CompletedAt,
		Terms:      report.Terms,
		Diff:       report.Diff,
	}
	if err := e.changelog.Record(ctx, entry); err != nil {
		e.logger.Warn("failed to record changelog entry", "generation", entry.Generation, "error", err)
	}

	e.observeReload("success", len(skipped), report.Duration)
	if e.metrics != nil {
		e.metrics.TermsLoaded.Set(float64(report.Terms))
		e.metrics.SurfacesClaimed.Set(float64(report.Surfaces))
	}
	if e.events != nil {
		e.events.Track(analytics.ReloadEvent{
			Type:       analytics.EventReload,
			Generation: report.Generation,
			Terms:      report.Terms,
			Surfaces:   report.Surfaces,
			Skipped:    len(skipped),
			Added:      len(report.Diff.Added),
			Updated:    len(report.Diff.Updated),
			Removed:    len(report.Diff.Removed),
			DurationMs: report.Duration.Milliseconds(),
			Timestamp:  report.CompletedAt,
		})
	}
	e.last.Store(report)

	span.SetAttr("generation", report.Generation)
	e.logger.Info("glossary reloaded",
		"generation", report.Generation,
		"terms", report.Terms,
		"surfaces", report.Surfaces,
		"single_words", report.SingleWords,
		"skipped", len(skipped),
		"added", len(report.Diff.Added),
		"updated", len(report.Diff.Updated),
		"removed", len(report.Diff.Removed),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (e *Engine) observeReload(status string, skipped int, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ReloadsTotal.WithLabelValues(status).Inc()
	e.metrics.ReloadDuration.Observe(d.Seconds())
	e.metrics.LoadErrorsTotal.Add(float64(skipped))
}

// Match returns the payload for text, served from the cache when contentID
// was last matched with the same text against the current glossary. A
// failed scan yields an empty payload and an error wrapping ErrScanFailed;
// the failure is not cached.
func (e *Engine) Match(ctx context.Context, contentID, text string) (payload.Payload, error) {
	start := time.Now()
	s := e.current.Load()

	var added int
	p, hit, err := e.cache.GetOrCompute(contentID, text, s.generation, func() (payload.Payload, error) {
		computeStart := time.Now()
		p, n, err := e.scan(s, text)
		added = n
		if e.metrics != nil {
			e.metrics.ScanLatency.Observe(time.Since(computeStart).Seconds())
		}
		return p, err
	})
	if err != nil {
		logger.FromContext(ctx).Error("scan failed",
			"component", "glossary-engine",
			"content_id", contentID,
			"generation", s.generation,
			"error", err,
		)
		p = payload.Empty()
	}
	p.Live = payload.Live(e.live.Status())

	e.observeMatch(ctx, s, contentID, p, hit, added, err, time.Since(start))
	return p, err
}

func (e *Engine) scan(s *snapshot, text string) (p payload.Payload, added int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrScanFailed, r)
		}
	}()
	e.scans.Add(1)

	hits := s.index.Scan(text, e.opts.MaxHighlights)
	surfaces := make([]string, 0, len(hits))
	claims := make(map[string][]string, len(hits))
	present := make(map[string]struct{})
	for _, h := range hits {
		if _, seen := claims[h.Surface]; seen {
			continue
		}
		ids := s.index.Claimants(h.Surface)
		surfaces = append(surfaces, h.Surface)
		claims[h.Surface] = ids
		for _, id := range ids {
			present[id] = struct{}{}
		}
	}

	if e.opts.Fuzzy.Enabled && e.opts.Fuzzy.MaxAdditions > 0 {
		res := s.fuzzy.Supplement(tokenizer.Unique(text), e.opts.Fuzzy.MaxDistance, e.opts.Fuzzy.MaxAdditions, claims, present)
		for _, surface := range res.Surfaces {
			if _, seen := claims[surface]; seen {
				continue
			}
			surfaces = append(surfaces, surface)
			claims[surface] = res.Claims[surface]
		}
		added = len(res.Added)
	}
	return s.assembler.Assemble(surfaces, claims), added, nil
}

func (e *Engine) observeMatch(ctx context.Context, s *snapshot, contentID string, p payload.Payload, hit bool, added int, err error, d time.Duration) {
	if e.metrics != nil {
		status := "miss"
		if hit {
			status = "hit"
			e.metrics.CacheHitsTotal.Inc()
		} else {
			e.metrics.CacheMissesTotal.Inc()
		}
		e.metrics.MatchesTotal.WithLabelValues(status).Inc()
		e.metrics.TermsPerMatch.Observe(float64(len(p.Terms)))
		e.metrics.FuzzyAdditions.Add(float64(added))
		if err != nil {
			e.metrics.ScanFailuresTotal.Inc()
		}
	}
	if e.events == nil {
		return
	}
	eventType := analytics.EventMatch
	switch {
	case err != nil:
		eventType = analytics.EventScanError
	case p.IsEmpty():
		eventType = analytics.EventZeroMatch
	}
	ids := make([]string, 0, len(p.Terms))
	for _, ref := range p.Terms {
		ids = append(ids, ref.ID)
	}
	e.events.Track(analytics.MatchEvent{
		Type:          eventType,
		ContentID:     contentID,
		TermIDs:       ids,
		FuzzyAdded:    added,
		LatencyMicros: d.Microseconds(),
		CacheHit:      hit,
		Generation:    s.generation,
		Timestamp:     time.Now().UTC(),
		RequestID:     logger.RequestID(ctx),
	})
}

// JoinFields concatenates the configured scan fields that are present in
// fields, in configured order. With no configured fields every field is
// scanned, ordered by name.
func (e *Engine) JoinFields(fields map[string]string) string {
	names := e.opts.ScanFields
	if len(names) == 0 {
		names = make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := fields[name]; ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, fieldSeparator)
}

// MatchFields matches the joined scan fields of a content item.
func (e *Engine) MatchFields(ctx context.Context, contentID string, fields map[string]string) (payload.Payload, error) {
	return e.Match(ctx, contentID, e.JoinFields(fields))
}

// Term returns the popup view of a loaded term, muted or not.
func (e *Engine) Term(id string) (payload.TermView, error) {
	v, ok := e.current.Load().assembler.View(id)
	if !ok {
		return payload.TermView{}, fmt.Errorf("term %q: %w", id, apperrors.ErrTermNotFound)
	}
	return v, nil
}

// IndexPayload lists every loaded term sorted by id, capped at limit, with
// no claims. It is the fallback payload for content without matches.
func (e *Engine) IndexPayload(limit int) payload.Payload {
	s := e.current.Load()
	ids := make([]string, 0, s.store.Len())
	for _, t := range s.store.Terms() {
		ids = append(ids, t.ID)
	}
	p := s.assembler.Index(ids, limit)
	p.Live = payload.Live(e.live.Status())
	return p
}

// MatchOrIndex matches the content and falls back to the index payload
// when nothing matched and the engine is configured to ship it.
func (e *Engine) MatchOrIndex(ctx context.Context, contentID, text string) (payload.Payload, bool, error) {
	p, err := e.Match(ctx, contentID, text)
	if err != nil || !p.IsEmpty() || !e.opts.ShipIndexIfNoMatches {
		return p, false, err
	}
	return e.IndexPayload(e.opts.ShipIndexLimit), true, nil
}

// Surfaces returns every claimed surface of the current glossary with its
// claimants, longest surface first.
func (e *Engine) Surfaces() []SurfaceClaim {
	ix := e.current.Load().index
	keys := ix.Surfaces()
	out := make([]SurfaceClaim, 0, len(keys))
	for _, k := range keys {
		out = append(out, SurfaceClaim{Surface: k, Claimants: append([]string(nil), ix.Claimants(k)...)})
	}
	return out
}

// SurfaceClaim is one row of the claims table.
type SurfaceClaim struct {
	Surface   string   `json:"surface"`
	Claimants []string `json:"claimants"`
}

// MuteTags returns the mute list the current glossary was built with.
func (e *Engine) MuteTags() string {
	return e.current.Load().muteTags
}

// Generation is the number of successful reloads.
func (e *Engine) Generation() uint64 {
	return e.current.Load().generation
}

// LastReload returns the report of the most recent successful reload, or
// nil before the first one.
func (e *Engine) LastReload() *ReloadReport {
	return e.last.Load()
}

// Changelog returns the most recent recorded reload diffs, newest first.
func (e *Engine) Changelog(ctx context.Context, limit int) ([]changelog.Entry, error) {
	return e.changelog.Latest(ctx, limit)
}

func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// InvalidateCache drops every cached payload.
func (e *Engine) InvalidateCache() int {
	return e.cache.Clear()
}

// Scans counts scans actually executed, cache misses only.
func (e *Engine) Scans() int64 {
	return e.scans.Load()
}

// Ready reports whether at least one reload has completed.
func (e *Engine) Ready() bool {
	return e.Generation() > 0
}
