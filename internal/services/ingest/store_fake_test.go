package ingest

import (
	"context"
	"sync"

	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/storage"
)

// fakeStore records writes and can be told to fail aggregate upserts.
type fakeStore struct {
	mu sync.Mutex

	aggregates []model.HourlyAggregate
	aggErr     error

	status         model.IrrigationStatus
	hasStatus      bool
	setStatusCalls []string

	audits []model.AuditSample
	flags  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{flags: make(map[string]bool)}
}

func (f *fakeStore) UpsertHourlyAggregate(_ context.Context, date string, hour int, metric model.MetricKind, average float64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aggErr != nil {
		return f.aggErr
	}
	f.aggregates = append(f.aggregates, model.HourlyAggregate{Date: date, Hour: hour, Metric: metric, Average: average, Count: count})
	return nil
}

func (f *fakeStore) AppendDailyLogHour(context.Context, string, int, int, int) error { return nil }

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

func (f *fakeStore) LatestAuditSamples(context.Context, int) ([]model.AuditSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audits, nil
}

func (f *fakeStore) AuditSamplesByDate(context.Context, string) ([]model.AuditSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audits, nil
}

func (f *fakeStore) HourlyAggregates(context.Context, string, model.MetricKind) ([]model.HourlyAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aggregates, nil
}

func (f *fakeStore) DailyLog(_ context.Context, date string) (model.IrrigationDailyLog, error) {
	return model.IrrigationDailyLog{Date: date}, nil
}

func (f *fakeStore) DailyFlags(context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags, nil
}
