package api

import (
	"context"
	"sync"
	"time"

	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/storage"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu sync.Mutex

	aggregates []model.HourlyAggregate

	status         model.IrrigationStatus
	hasStatus      bool
	setStatusCalls []string

	logEntries map[string][]model.HourUsage
	audits     []model.AuditSample
	flags      map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		logEntries: make(map[string][]model.HourUsage),
		flags:      make(map[string]bool),
	}
}

func (f *fakeStore) UpsertHourlyAggregate(_ context.Context, date string, hour int, metric model.MetricKind, average float64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregates = append(f.aggregates, model.HourlyAggregate{Date: date, Hour: hour, Metric: metric, Average: average, Count: count})
	return nil
}

func (f *fakeStore) AppendDailyLogHour(_ context.Context, date string, hour, on, off int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logEntries[date] = append(f.logEntries[date], model.HourUsage{Hour: hour, OnMinutes: on, OffMinutes: off})
	return nil
}

func (f *fakeStore) GetStatus(context.Context) (model.IrrigationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasStatus {
		return model.IrrigationStatus{}, storage.ErrNoStatus
	}
	return f.status, nil
}

func (f *fakeStore) SetStatus(_ context.Context, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = model.IrrigationStatus{Status: status, UpdatedAt: time.Now()}
	f.hasStatus = true
	f.setStatusCalls = append(f.setStatusCalls, status)
	return nil
}

func (f *fakeStore) AppendAuditSample(_ context.Context, moisture, humidity float64, decided string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, model.AuditSample{Moisture: moisture, Humidity: humidity, Decided: decided, Timestamp: time.Now()})
	return nil
}

func (f *fakeStore) SetDailyFlag(_ context.Context, date string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[date] = on
	return nil
}

// LatestAuditSamples returns newest first, matching the Influx sort order.
func (f *fakeStore) LatestAuditSamples(_ context.Context, limit int) ([]model.AuditSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AuditSample, 0, limit)
	for i := len(f.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.audits[i])
	}
	return out, nil
}

func (f *fakeStore) AuditSamplesByDate(context.Context, string) ([]model.AuditSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AuditSample(nil), f.audits...), nil
}

func (f *fakeStore) HourlyAggregates(_ context.Context, date string, metric model.MetricKind) ([]model.HourlyAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.HourlyAggregate
	for _, a := range f.aggregates {
		if a.Date == date && a.Metric == metric {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) DailyLog(_ context.Context, date string) (model.IrrigationDailyLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.IrrigationDailyLog{Date: date, PerHour: append([]model.HourUsage(nil), f.logEntries[date]...)}, nil
}

func (f *fakeStore) DailyFlags(context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.flags))
	for k, v := range f.flags {
		out[k] = v
	}
	return out, nil
}
