package storage

import (
	"context"
	"errors"

	"github.com/agrosense/irrigation-backend/internal/model"
)

// ErrNoStatus is returned by GetStatus when no status row has ever been
// written. Callers treat it as a normal case and default to OFF.
var ErrNoStatus = errors.New("storage: no irrigation status recorded")

// Store is the persistence gateway consumed by the core. Writes are
// best-effort: callers log failures and keep ingesting.
type Store interface {
	// UpsertHourlyAggregate writes at most one row per (date, hour, metric).
	UpsertHourlyAggregate(ctx context.Context, date string, hour int, metric model.MetricKind, average float64, count int) error
	// AppendDailyLogHour upsert-merges one hour entry into the day's log.
	AppendDailyLogHour(ctx context.Context, date string, hour, onMinutes, offMinutes int) error
	GetStatus(ctx context.Context) (model.IrrigationStatus, error)
	SetStatus(ctx context.Context, status string) error
	AppendAuditSample(ctx context.Context, moisture, humidity float64, decided string) error
	// SetDailyFlag keeps the coarse per-date on/off flag for the calendar view.
	SetDailyFlag(ctx context.Context, date string, on bool) error

	LatestAuditSamples(ctx context.Context, limit int) ([]model.AuditSample, error)
	AuditSamplesByDate(ctx context.Context, date string) ([]model.AuditSample, error)
	HourlyAggregates(ctx context.Context, date string, metric model.MetricKind) ([]model.HourlyAggregate, error)
	DailyLog(ctx context.Context, date string) (model.IrrigationDailyLog, error)
	DailyFlags(ctx context.Context) (map[string]bool, error)
}
