package irrigation

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agrosense/irrigation-backend/internal/clock"
	"github.com/agrosense/irrigation-backend/internal/metrics"
	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/storage"
)

const storeTimeout = 5 * time.Second

// Tracker measures how many minutes the pump spends ON vs OFF, driven by a
// per-minute tick that is independent of message arrival. At the top of each
// civil hour it flushes the counters into the daily log, attributed to the
// hour that just finished, and starts over.
type Tracker struct {
	store storage.Store
	clk   *clock.Clock

	mu         sync.Mutex
	onMinutes  int
	offMinutes int
	lastStatus string

	cron *cron.Cron
}

func NewTracker(store storage.Store, clk *clock.Clock) *Tracker {
	return &Tracker{store: store, clk: clk, lastStatus: model.StatusOff}
}

// Resume seeds the active counter from the status cache after a restart.
// Partial minutes accumulated before the restart are lost by design.
func (t *Tracker) Resume(ctx context.Context, cache *StatusCache) {
	st, err := cache.Get(ctx)
	if err != nil {
		log.Printf("tracker: could not read status on resume, assuming OFF: %v", err)
		return
	}
	t.StartTracking(st.Status)
}

// StartTracking re-points which counter future ticks increment. Counters are
// not reset; they persist until the next hourly flush.
func (t *Tracker) StartTracking(status string) {
	status = strings.ToUpper(strings.TrimSpace(status))
	t.mu.Lock()
	t.lastStatus = status
	t.mu.Unlock()
	log.Printf("tracker: now counting %s time", status)
}

// Tick adds one minute to whichever counter matches the last-known status.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastStatus == model.StatusOn {
		t.onMinutes++
	} else {
		t.offMinutes++
	}
}

// FlushHour writes the finished hour into the daily log and zeroes the
// counters. Runs at minute zero, so the activity belongs to the previous
// civil hour (hour 0 wraps to 23 of the same civil date). Counters reset
// even when the write fails; the hour is lost, ingestion is not.
func (t *Tracker) FlushHour(ctx context.Context) error {
	now := t.clk.Now()
	date := t.clk.DateOf(now)
	hour := now.Hour() - 1
	if hour < 0 {
		hour = 23
	}

	t.mu.Lock()
	on, off := t.onMinutes, t.offMinutes
	t.onMinutes, t.offMinutes = 0, 0
	t.mu.Unlock()

	if err := t.store.AppendDailyLogHour(ctx, date, hour, on, off); err != nil {
		metrics.FlushErrors.Inc()
		return err
	}
	metrics.HourlyFlushes.Inc()
	log.Printf("tracker: logged hour=%d on=%dmin off=%dmin for %s", hour, on, off, date)
	return nil
}

// minuteJob runs once per minute. At minute zero the flush happens before
// the tick, so a logged hour carries exactly the ticks recorded since the
// previous flush and the minute-zero tick counts toward the new hour.
func (t *Tracker) minuteJob() {
	if t.clk.Minute() == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := t.FlushHour(ctx); err != nil {
			log.Printf("tracker: flush error: %v", err)
		}
		cancel()
	}
	t.Tick()
}

// Start schedules the minute job in the civil timezone. The schedule stops
// when ctx is cancelled.
func (t *Tracker) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(t.clk.Location()))
	if _, err := c.AddFunc("* * * * *", t.minuteJob); err != nil {
		return err
	}
	c.Start()
	t.cron = c

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Snapshot exposes the counters and active status for the API and tests.
func (t *Tracker) Snapshot() (onMinutes, offMinutes int, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onMinutes, t.offMinutes, t.lastStatus
}
