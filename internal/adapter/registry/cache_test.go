package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/identity"
	"github.com/couchcryptid/storm-atcf-tracker/internal/observability"
)

// --- mock for cache tests ---

type countingMatcher struct {
	calls int
	id    domain.StormID
	found bool
	err   error
}

func (m *countingMatcher) MatchByPositionTime(_ context.Context, _ identity.Query) (domain.StormID, bool, error) {
	m.calls++
	return m.id, m.found, m.err
}

var wp01 = domain.StormID{Basin: "WP", Number: 1, Year: 2025}

// --- CachedMatcher tests ---

func TestCachedMatcher_Hit(t *testing.T) {
	inner := &countingMatcher{id: wp01, found: true}
	cached := NewCachedMatcher(inner, 10, observability.NewMetricsForTesting())

	for range 3 {
		id, found, err := cached.MatchByPositionTime(context.Background(), testQuery)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, wp01, id)
	}
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedMatcher_NearbyFixShareEntry(t *testing.T) {
	inner := &countingMatcher{id: wp01, found: true}
	cached := NewCachedMatcher(inner, 10, observability.NewMetricsForTesting())

	q := testQuery
	_, _, _ = cached.MatchByPositionTime(context.Background(), q)
	q.Lat += 0.01
	_, _, _ = cached.MatchByPositionTime(context.Background(), q)
	assert.Equal(t, 1, inner.calls)

	q.Time = q.Time.Add(6 * time.Hour)
	_, _, _ = cached.MatchByPositionTime(context.Background(), q)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedMatcher_MissesAndErrorsNotCached(t *testing.T) {
	tests := []struct {
		name  string
		inner *countingMatcher
	}{
		{"no match", &countingMatcher{}},
		{"error", &countingMatcher{err: errors.New("unavailable")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cached := NewCachedMatcher(tt.inner, 10, observability.NewMetricsForTesting())
			_, _, _ = cached.MatchByPositionTime(context.Background(), testQuery)
			_, _, _ = cached.MatchByPositionTime(context.Background(), testQuery)
			assert.Equal(t, 2, tt.inner.calls)
		})
	}
}

// --- LRU cache unit tests ---

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	a := domain.StormID{Basin: "WP", Number: 1, Year: 2025}
	b := domain.StormID{Basin: "WP", Number: 2, Year: 2025}
	d := domain.StormID{Basin: "WP", Number: 3, Year: 2025}

	c.put("a", a)
	c.put("b", b)
	c.get("a") // promote "a"
	c.put("c", d)

	_, ok := c.get("b")
	assert.False(t, ok, "b should have been evicted")

	got, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, a, got)

	got, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, d, got)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.StormID{Basin: "WP", Number: 1, Year: 2025})
	c.put("a", domain.StormID{Basin: "WP", Number: 9, Year: 2025})

	got, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 9, got.Number)
}
