package ingest

import (
	"sync"

	"github.com/agrosense/irrigation-backend/internal/model"
)

// Accumulator holds the in-memory running sums for the current civil hour,
// one bucket per metric. It is process-local and never persisted: a crash
// loses at most the in-flight hour.
type Accumulator struct {
	mu      sync.Mutex
	date    string
	hour    int
	buckets map[model.MetricKind]*bucket
}

type bucket struct {
	sum   float64
	count int
}

func NewAccumulator(date string, hour int) *Accumulator {
	return &Accumulator{
		date: date,
		hour: hour,
		buckets: map[model.MetricKind]*bucket{
			model.MetricMoisture: {},
			model.MetricHumidity: {},
		},
	}
}

// Advance moves the accumulator to the civil (date, hour) of an incoming
// sample. When the hour changed it returns the finished hour's aggregates,
// attributed to the captured previous key (not the triggering sample's hour),
// and resets the sums. Append and Advance share one mutex so a flush can
// never interleave with an append.
func (a *Accumulator) Advance(date string, hour int) ([]model.HourlyAggregate, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if date == a.date && hour == a.hour {
		return nil, false
	}
	finished := a.snapshotLocked()
	a.date, a.hour = date, hour
	for _, b := range a.buckets {
		b.sum, b.count = 0, 0
	}
	return finished, true
}

// Append adds one decoded sample to the current hour's bucket.
func (a *Accumulator) Append(sample model.TelemetrySample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.buckets[sample.Metric]
	if b == nil {
		b = &bucket{}
		a.buckets[sample.Metric] = b
	}
	b.sum += sample.Value
	b.count++
}

// HourKey returns the civil hour the accumulator is currently filling.
func (a *Accumulator) HourKey() (string, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.date, a.hour
}

// Snapshot returns the current aggregates without resetting.
func (a *Accumulator) Snapshot() []model.HourlyAggregate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Accumulator) snapshotLocked() []model.HourlyAggregate {
	order := []model.MetricKind{model.MetricMoisture, model.MetricHumidity}
	out := make([]model.HourlyAggregate, 0, len(order))
	for _, m := range order {
		b := a.buckets[m]
		avg := 0.0
		if b.count > 0 {
			avg = b.sum / float64(b.count)
		}
		out = append(out, model.HourlyAggregate{
			Date:    a.date,
			Hour:    a.hour,
			Metric:  m,
			Average: avg,
			Count:   b.count,
		})
	}
	return out
}
