package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/payload"
)

func payloadFor(id string) payload.Payload {
	p := payload.Empty()
	p.Terms = append(p.Terms, payload.TermRef{ID: id, Patterns: []string{id}})
	p.Claims[id] = []string{id}
	return p
}

func TestGetOrCompute_HitsOnSameText(t *testing.T) {
	c := New()
	var calls int
	compute := func() (payload.Payload, error) {
		calls++
		return payloadFor("acth"), nil
	}

	first, hit, err := c.GetOrCompute("card-1", "Low ACTH", 1, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute("card-1", "Low ACTH", 1, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	_, hit, err = c.GetOrCompute("card-1", "Low ACTh", 1, compute)
	require.NoError(t, err)
	assert.False(t, hit, "edited text invalidates")
	assert.Equal(t, 2, calls)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Computes)
	assert.Equal(t, 1, stats.Entries)
}

func TestGetOrCompute_GenerationChangeMisses(t *testing.T) {
	c := New()
	_, _, err := c.GetOrCompute("card-1", "text", 1, func() (payload.Payload, error) { return payloadFor("a"), nil })
	require.NoError(t, err)

	p, hit, err := c.GetOrCompute("card-1", "text", 2, func() (payload.Payload, error) { return payloadFor("b"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "b", p.Terms[0].ID)
}

func TestGetOrCompute_StaleGenerationDoesNotOverwrite(t *testing.T) {
	c := New()
	_, _, err := c.GetOrCompute("card-1", "text", 2, func() (payload.Payload, error) { return payloadFor("new"), nil })
	require.NoError(t, err)
	_, _, err = c.GetOrCompute("card-1", "text", 1, func() (payload.Payload, error) { return payloadFor("old"), nil })
	require.NoError(t, err)

	p, ok := c.Get("card-1", Fingerprint("text"), 2)
	require.True(t, ok)
	assert.Equal(t, "new", p.Terms[0].ID)
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute("card-1", "text", 1, func() (payload.Payload, error) { return payload.Payload{}, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestGetOrCompute_ReturnsCopies(t *testing.T) {
	c := New()
	p, _, err := c.GetOrCompute("card-1", "text", 1, func() (payload.Payload, error) { return payloadFor("a"), nil })
	require.NoError(t, err)
	p.Terms[0].ID = "mutated"

	again, hit, err := c.GetOrCompute("card-1", "text", 1, nil)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a", again.Terms[0].ID)
}

func TestGetOrCompute_Concurrent(t *testing.T) {
	c := New()
	var calls atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, _, err := c.GetOrCompute("card-1", "text", 1, func() (payload.Payload, error) {
				calls.Add(1)
				return payloadFor("a"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "a", p.Terms[0].ID)
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestClear(t *testing.T) {
	c := New()
	for _, id := range []string{"a", "b"} {
		_, _, err := c.GetOrCompute(id, "text", 1, func() (payload.Payload, error) { return payloadFor(id), nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Clear())
	_, ok := c.Get("a", Fingerprint("text"), 1)
	assert.False(t, ok)
}

func TestFingerprint(t *testing.T) {
	assert.Len(t, Fingerprint(""), 64)
	assert.NotEqual(t, Fingerprint("a"), Fingerprint("b"))
}
