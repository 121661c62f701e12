package irrigation

import (
	"context"
	"sync"

	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/storage"
)

type loggedHour struct {
	date          string
	hour, on, off int
}

// fakeStore records every write so tests can assert on persistence effects.
type fakeStore struct {
	mu sync.Mutex

	status    model.IrrigationStatus
	hasStatus bool
	statusErr error

	setStatusCalls []string
	logEntries     []loggedHour
	logErr         error
	flags          map[string]bool
	audits         []model.AuditSample
	aggregates     []model.HourlyAggregate
}

func newFakeStore() *fakeStore {
	return &fakeStore{flags: make(map[string]bool)}
}

func (f *fakeStore) UpsertHourlyAggregate(_ context.Context, date string, hour int, metric model.MetricKind, average float64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregates = append(f.aggregates, model.HourlyAggregate{Date: date, Hour: hour, Metric: metric, Average: average, Count: count})
	return nil
}

func (f *fakeStore) AppendDailyLogHour(_ context.Context, date string, hour, onMinutes, offMinutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	f.logEntries = append(f.logEntries, loggedHour{date: date, hour: hour, on: onMinutes, off: offMinutes})
	return nil
}

func (f *fakeStore) GetStatus(_ context.Context) (model.IrrigationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return model.IrrigationStatus{}, f.statusErr
	}
	if !f.hasStatus {
		return model.IrrigationStatus{}, storage.ErrNoStatus
	}
	return f.status, nil
}

func (f *fakeStore) SetStatus(_ context.Context, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = model.IrrigationStatus{Status: status}
	f.hasStatus = true
	f.setStatusCalls = append(f.setStatusCalls, status)
	return nil
}

func (f *fakeStore) AppendAuditSample(_ context.Context, moisture, humidity float64, decided string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, model.AuditSample{Moisture: moisture, Humidity: humidity, Decided: decided})
	return nil
}

func (f *fakeStore) SetDailyFlag(_ context.Context, date string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[date] = on
	return nil
}

func (f *fakeStore) LatestAuditSamples(_ context.Context, limit int) ([]model.AuditSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.audits) > limit {
		return f.audits[len(f.audits)-limit:], nil
	}
	return f.audits, nil
}

func (f *fakeStore) AuditSamplesByDate(_ context.Context, _ string) ([]model.AuditSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audits, nil
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
	out := model.IrrigationDailyLog{Date: date}
	for _, e := range f.logEntries {
		if e.date == date {
			out.PerHour = append(out.PerHour, model.HourUsage{Hour: e.hour, OnMinutes: e.on, OffMinutes: e.off})
		}
	}
	return out, nil
}

func (f *fakeStore) DailyFlags(_ context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.flags))
	for k, v := range f.flags {
		out[k] = v
	}
	return out, nil
}
