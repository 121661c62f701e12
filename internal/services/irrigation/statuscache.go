package irrigation

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/agrosense/irrigation-backend/internal/clock"
	"github.com/agrosense/irrigation-backend/internal/metrics"
	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/storage"
)

// StatusCache is the single source of truth for the last-known pump status.
// Automated decisions, manual toggles and hardware pump reports all write
// through it; last write wins.
type StatusCache struct {
	mu     sync.Mutex
	store  storage.Store
	clk    *clock.Clock
	loaded bool
	cur    model.IrrigationStatus
}

func NewStatusCache(store storage.Store, clk *clock.Clock) *StatusCache {
	return &StatusCache{store: store, clk: clk}
}

// Get returns the current status, loading it from the store on first use.
// A missing row is a normal case: it defaults to OFF and persists the
// default, so a later read finds the same record instead of re-defaulting.
func (c *StatusCache) Get(ctx context.Context) (model.IrrigationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.cur, nil
	}

	st, err := c.store.GetStatus(ctx)
	if errors.Is(err, storage.ErrNoStatus) {
		st = model.IrrigationStatus{Status: model.StatusOff, UpdatedAt: c.clk.Now()}
		if werr := c.store.SetStatus(ctx, st.Status); werr != nil {
			log.Printf("status: could not persist default OFF: %v", werr)
			return st, nil
		}
	} else if err != nil {
		return model.IrrigationStatus{Status: model.StatusOff}, err
	}

	c.cur = st
	c.loaded = true
	metrics.SetState(st.Status)
	return st, nil
}

// Set upserts the status record and refreshes the in-memory copy. The raw
// value is upper-cased; transition legality is not validated.
func (c *StatusCache) Set(ctx context.Context, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SetStatus(ctx, status); err != nil {
		return err
	}
	c.cur = model.IrrigationStatus{Status: status, UpdatedAt: c.clk.Now()}
	c.loaded = true
	metrics.SetState(status)
	return nil
}
