package irrigation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agrosense/irrigation-backend/internal/clock"
	"github.com/agrosense/irrigation-backend/internal/model"
)

func testClock(t *testing.T, at time.Time) *clock.Clock {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return clock.NewAt(loc, func() time.Time { return at })
}

func TestStatusCache_DefaultsToOffAndPersists(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, testClock(t, time.Date(2025, 4, 26, 9, 30, 0, 0, time.UTC)))

	st, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatusOff, st.Status)

	// the lazily created default must hit the store, not stay in memory only
	require.Equal(t, []string{model.StatusOff}, store.setStatusCalls)

	// a later read returns the stored record instead of re-defaulting
	st2, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatusOff, st2.Status)
	require.Len(t, store.setStatusCalls, 1)
}

func TestStatusCache_ReturnsExistingRecord(t *testing.T) {
	store := newFakeStore()
	store.status = model.IrrigationStatus{Status: model.StatusOn, UpdatedAt: time.Now()}
	store.hasStatus = true

	cache := NewStatusCache(store, testClock(t, time.Now()))
	st, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatusOn, st.Status)
	require.Empty(t, store.setStatusCalls)
}

func TestStatusCache_SetUpperCasesAndUpserts(t *testing.T) {
	store := newFakeStore()
	cache := NewStatusCache(store, testClock(t, time.Now()))

	require.NoError(t, cache.Set(context.Background(), " on "))
	require.Equal(t, []string{model.StatusOn}, store.setStatusCalls)

	st, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatusOn, st.Status)

	// last write wins, no transition validation
	require.NoError(t, cache.Set(context.Background(), "whatever"))
	st, err = cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "WHATEVER", st.Status)
}
