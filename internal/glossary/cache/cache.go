// Package cache memoizes match payloads per content id. An entry is valid
// only while both the content fingerprint and the index generation it was
// computed against are unchanged.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/payload"
)

type entry struct {
	fingerprint string
	generation  uint64
	payload     payload.Payload
}

// MatchCache holds the last payload computed for each content id.
type MatchCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	// computes counts compute callbacks actually run.
	computes atomic.Int64
}

func New() *MatchCache {
	return &MatchCache{
		entries: make(map[string]entry),
		logger:  slog.Default().With("component", "match-cache"),
	}
}

// Fingerprint is the SHA-256 hex digest of the scanned text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached payload for contentID when it was
// computed from the same text against the same index generation.
func (c *MatchCache) Get(contentID, fingerprint string, generation uint64) (payload.Payload, bool) {
	c.mu.RLock()
	e, ok := c.entries[contentID]
	c.mu.RUnlock()
	if !ok || e.fingerprint != fingerprint || e.generation != generation {
		return payload.Payload{}, false
	}
	return e.payload.Clone(), true
}

func (c *MatchCache) set(contentID, fingerprint string, generation uint64, p payload.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A slow compute against an older generation must not replace a newer entry.
	if cur, ok := c.entries[contentID]; ok && cur.generation > generation {
		return
	}
	c.entries[contentID] = entry{fingerprint: fingerprint, generation: generation, payload: p.Clone()}
}

// GetOrCompute returns the cached payload for (contentID, text) or runs
// compute and stores its result. Concurrent misses for the same content and
// text share one compute. Errors are returned and never cached.
func (c *MatchCache) GetOrCompute(
	contentID, text string,
	generation uint64,
	compute func() (payload.Payload, error),
) (payload.Payload, bool, error) {
	fp := Fingerprint(text)
	if p, ok := c.Get(contentID, fp, generation); ok {
		c.hits.Add(1)
		return p, true, nil
	}
	c.misses.Add(1)

	key := fmt.Sprintf("%s|%s|%d", contentID, fp, generation)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if p, ok := c.Get(contentID, fp, generation); ok {
			return p, nil
		}
		c.computes.Add(1)
		p, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(contentID, fp, generation, p)
		return p, nil
	})
	if err != nil {
		return payload.Payload{}, false, err
	}
	return val.(payload.Payload).Clone(), false, nil
}

// Clear drops every entry and returns how many there were.
func (c *MatchCache) Clear() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	c.logger.Debug("cache cleared", "entries", n)
	return n
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
}

func (c *MatchCache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Entries:  n,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}
