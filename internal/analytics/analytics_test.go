package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/kafka"
)

type fakePublisher struct {
	mu       sync.Mutex
	batches  [][]kafka.Event
	failures int
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.Event
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollector_FlushesOnBatchSize(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 2, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	c.Track(MatchEvent{Type: EventMatch, ContentID: "card-1"})
	c.Track(MatchEvent{Type: EventMatch, ContentID: "card-2"})

	require.Eventually(t, func() bool { return len(pub.events()) == 2 }, time.Second, 5*time.Millisecond)
	events := pub.events()
	assert.Equal(t, "card-1", events[0].Key)
	assert.Equal(t, "card-2", events[1].Key)
}

func TestCollector_CloseFlushesPending(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 100, time.Hour)
	c.Start(context.Background())

	c.Track(ReloadEvent{Type: EventReload, Generation: 3})
	c.Close()

	events := pub.events()
	require.Len(t, events, 1)
	assert.Equal(t, "reload", events[0].Key)
}

func TestCollector_RetriesFailedBatch(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	c := NewCollector(pub, 16, 1, time.Hour)
	c.Start(context.Background())

	c.Track(MatchEvent{Type: EventMatch, ContentID: "card-1"})
	c.Close()

	require.Len(t, pub.events(), 1)
	assert.Equal(t, 0, pub.failures)
}

func TestCollector_DropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 1, 100, time.Hour)
	// Not started: the second event cannot be buffered.
	c.Track(MatchEvent{ContentID: "a"})
	c.Track(MatchEvent{ContentID: "b"})
	assert.Len(t, c.eventCh, 1)
}

func TestAggregator_Track(t *testing.T) {
	a := NewAggregator()
	a.Track(MatchEvent{Type: EventMatch, TermIDs: []string{"acth", "cortisol"}, LatencyMicros: 100, FuzzyAdded: 1})
	a.Track(MatchEvent{Type: EventMatch, TermIDs: []string{"acth"}, LatencyMicros: 300, CacheHit: true})
	a.Track(MatchEvent{Type: EventZeroMatch, LatencyMicros: 200})
	a.Track(MatchEvent{Type: EventScanError})
	a.Track(ReloadEvent{Type: EventReload, Generation: 4})
	a.Track("unknown")

	s := a.Stats()
	assert.Equal(t, int64(4), s.TotalMatches)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(3), s.CacheMisses)
	assert.Equal(t, int64(1), s.ZeroMatchCount)
	assert.Equal(t, int64(1), s.ScanErrors)
	assert.Equal(t, int64(1), s.FuzzyAdditions)
	assert.Equal(t, int64(1), s.Reloads)
	assert.Equal(t, uint64(4), s.LastGeneration)
	assert.Equal(t, []TermCount{{TermID: "acth", Count: 2}, {TermID: "cortisol", Count: 1}}, s.TopTerms)
	assert.InDelta(t, 150.0, s.AvgLatencyMicros, 0.001)
	assert.Equal(t, int64(300), s.P99LatencyMicros)
}

func TestAggregator_HandleMessage(t *testing.T) {
	a := NewAggregator()
	ctx := context.Background()

	match, err := json.Marshal(MatchEvent{Type: EventMatch, TermIDs: []string{"sepsis"}})
	require.NoError(t, err)
	reload, err := json.Marshal(ReloadEvent{Type: EventReload, Generation: 9})
	require.NoError(t, err)

	require.NoError(t, a.HandleMessage(ctx, nil, match))
	require.NoError(t, a.HandleMessage(ctx, nil, reload))
	require.NoError(t, a.HandleMessage(ctx, nil, []byte("not json")), "bad messages are skipped")
	require.NoError(t, a.HandleMessage(ctx, nil, []byte(`{"type":"other"}`)))

	s := a.Stats()
	assert.Equal(t, int64(1), s.TotalMatches)
	assert.Equal(t, uint64(9), s.LastGeneration)
}

func TestAggregator_LatencyWindowIsBounded(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < latencyWindow+10; i++ {
		a.Track(MatchEvent{Type: EventMatch, LatencyMicros: int64(i)})
	}
	assert.Len(t, a.latencies, latencyWindow)
}

func TestHandler_Stats(t *testing.T) {
	a := NewAggregator()
	a.Track(MatchEvent{Type: EventMatch, TermIDs: []string{"acth"}})

	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(1), got.TotalMatches)

	rec = httptest.NewRecorder()
	NewHandler(nil).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	assert.Contains(t, rec.Body.String(), "disabled")
}

func TestHandler_StatsTop(t *testing.T) {
	a := NewAggregator()
	a.Track(MatchEvent{Type: EventMatch, TermIDs: []string{"acth", "sepsis"}})
	a.Track(MatchEvent{Type: EventMatch, TermIDs: []string{"sepsis"}})

	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []TermCount{{TermID: "sepsis", Count: 2}}, got.TopTerms)

	for _, bad := range []string{"0", "101", "x"} {
		rec = httptest.NewRecorder()
		NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "card-9", Key(MatchEvent{ContentID: "card-9"}))
	assert.Equal(t, "reload", Key(ReloadEvent{}))
	assert.Equal(t, "analytics", Key(42))
}
