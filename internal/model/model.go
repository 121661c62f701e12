package model

import "time"

// MetricKind identifies which sensor a telemetry value came from.
type MetricKind string

const (
	MetricMoisture MetricKind = "moisture"
	MetricHumidity MetricKind = "humidity"
)

const (
	StatusOn  = "ON"
	StatusOff = "OFF"
)

// TelemetrySample is a decoded sensor reading. It is never persisted as-is:
// the ingestion pipeline owns it until it hands the value to the hourly
// accumulator.
type TelemetrySample struct {
	Metric     MetricKind `json:"metric"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observed_at"`
}

// HourlyAggregate is one flushed hour of a metric. At most one row exists
// per (date, hour, metric); rewrites of the same key overwrite.
type HourlyAggregate struct {
	Date    string     `json:"date"`
	Hour    int        `json:"hour"`
	Metric  MetricKind `json:"metric"`
	Average float64    `json:"average"`
	Count   int        `json:"count"`
}

// HourUsage records how many minutes the pump spent ON vs OFF during one
// civil hour. onMinutes+offMinutes == ticks since the previous flush.
type HourUsage struct {
	Hour       int `json:"hour"`
	OnMinutes  int `json:"on_minutes"`
	OffMinutes int `json:"off_minutes"`
}

// IrrigationDailyLog grows across the day, one HourUsage per completed hour.
type IrrigationDailyLog struct {
	Date    string      `json:"date"`
	PerHour []HourUsage `json:"per_hour"`
}

// IrrigationStatus is the single current pump status row.
type IrrigationStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditSample pairs a co-occurring moisture/humidity reading with the
// automated decision computed from it, kept for historical display.
type AuditSample struct {
	Moisture  float64   `json:"moisture"`
	Humidity  float64   `json:"humidity"`
	Decided   string    `json:"irrigation_status"`
	Timestamp time.Time `json:"timestamp"`
}
