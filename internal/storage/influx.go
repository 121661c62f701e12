package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/agrosense/irrigation-backend/internal/model"
)

const (
	measAggregate = "hourly_aggregate"
	measDailyLog  = "irrigation_log"
	measStatus    = "irrigation_status"
	measAudit     = "audit_sample"
	measFlag      = "irrigation_flag"
)

// Influx implements Store on InfluxDB. Record keys map to point identity:
// a rewrite of the same (measurement, tags, timestamp) overwrites the point,
// which gives the upsert semantics the hourly and daily records need.
type Influx struct {
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	loc      *time.Location
	now      func() time.Time
}

func NewInflux(client influxdb2.Client, org, bucket string, loc *time.Location) (*Influx, error) {
	if bucket == "" || org == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Influx{
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (s *Influx) UpsertHourlyAggregate(ctx context.Context, date string, hour int, metric model.MetricKind, average float64, count int) error {
	ts, err := s.hourTime(date, hour)
	if err != nil {
		return err
	}
	point := influxdb2.NewPoint(measAggregate,
		map[string]string{"metric": string(metric), "date": date},
		map[string]interface{}{"average": average, "count": int64(count)},
		ts)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *Influx) AppendDailyLogHour(ctx context.Context, date string, hour, onMinutes, offMinutes int) error {
	ts, err := s.hourTime(date, hour)
	if err != nil {
		return err
	}
	point := influxdb2.NewPoint(measDailyLog,
		map[string]string{"date": date},
		map[string]interface{}{"on_minutes": int64(onMinutes), "off_minutes": int64(offMinutes)},
		ts)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *Influx) GetStatus(ctx context.Context) (model.IrrigationStatus, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q and r._field == "status")
  |> last()
`, s.bucket, measStatus)

	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return model.IrrigationStatus{}, err
	}
	defer func() { _ = res.Close() }()

	for res.Next() {
		rec := res.Record()
		status, _ := rec.Value().(string)
		if status == "" {
			continue
		}
		return model.IrrigationStatus{Status: status, UpdatedAt: rec.Time()}, nil
	}
	if res.Err() != nil {
		return model.IrrigationStatus{}, res.Err()
	}
	return model.IrrigationStatus{}, ErrNoStatus
}

func (s *Influx) SetStatus(ctx context.Context, status string) error {
	point := influxdb2.NewPoint(measStatus,
		nil,
		map[string]interface{}{"status": strings.ToUpper(status)},
		s.now())
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *Influx) AppendAuditSample(ctx context.Context, moisture, humidity float64, decided string) error {
	point := influxdb2.NewPoint(measAudit,
		nil,
		map[string]interface{}{"moisture": moisture, "humidity": humidity, "status": decided},
		s.now())
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *Influx) SetDailyFlag(ctx context.Context, date string, on bool) error {
	ts, err := s.hourTime(date, 0)
	if err != nil {
		return err
	}
	point := influxdb2.NewPoint(measFlag,
		map[string]string{"date": date},
		map[string]interface{}{"is_on": on},
		ts)
	return s.writeAPI.WritePoint(ctx, point)
}

func (s *Influx) LatestAuditSamples(ctx context.Context, limit int) ([]model.AuditSample, error) {
	if limit <= 0 {
		limit = 20
	}
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -30d)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)
`, s.bucket, measAudit, limit)
	return s.queryAudit(ctx, flux)
}

func (s *Influx) AuditSamplesByDate(ctx context.Context, date string) ([]model.AuditSample, error) {
	start, stop, err := s.dayRange(date)
	if err != nil {
		return nil, err
	}
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])
`, s.bucket, start, stop, measAudit)
	return s.queryAudit(ctx, flux)
}

func (s *Influx) queryAudit(ctx context.Context, flux string) ([]model.AuditSample, error) {
	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	var out []model.AuditSample
	for res.Next() {
		rec := res.Record()
		status, _ := rec.ValueByKey("status").(string)
		out = append(out, model.AuditSample{
			Moisture:  toF64(rec.ValueByKey("moisture")),
			Humidity:  toF64(rec.ValueByKey("humidity")),
			Decided:   status,
			Timestamp: rec.Time(),
		})
	}
	return out, res.Err()
}

func (s *Influx) HourlyAggregates(ctx context.Context, date string, metric model.MetricKind) ([]model.HourlyAggregate, error) {
	start, stop, err := s.dayRange(date)
	if err != nil {
		return nil, err
	}
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r.metric == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])
`, s.bucket, start, stop, measAggregate, string(metric))

	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	var out []model.HourlyAggregate
	for res.Next() {
		rec := res.Record()
		out = append(out, model.HourlyAggregate{
			Date:    date,
			Hour:    rec.Time().In(s.loc).Hour(),
			Metric:  metric,
			Average: toF64(rec.ValueByKey("average")),
			Count:   int(toF64(rec.ValueByKey("count"))),
		})
	}
	return out, res.Err()
}

func (s *Influx) DailyLog(ctx context.Context, date string) (model.IrrigationDailyLog, error) {
	start, stop, err := s.dayRange(date)
	if err != nil {
		return model.IrrigationDailyLog{}, err
	}
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r.date == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])
`, s.bucket, start, stop, measDailyLog, date)

	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return model.IrrigationDailyLog{}, err
	}
	defer func() { _ = res.Close() }()

	logDoc := model.IrrigationDailyLog{Date: date}
	for res.Next() {
		rec := res.Record()
		logDoc.PerHour = append(logDoc.PerHour, model.HourUsage{
			Hour:       rec.Time().In(s.loc).Hour(),
			OnMinutes:  int(toF64(rec.ValueByKey("on_minutes"))),
			OffMinutes: int(toF64(rec.ValueByKey("off_minutes"))),
		})
	}
	if res.Err() != nil {
		return model.IrrigationDailyLog{}, res.Err()
	}
	sort.Slice(logDoc.PerHour, func(i, j int) bool { return logDoc.PerHour[i].Hour < logDoc.PerHour[j].Hour })
	return logDoc, nil
}

func (s *Influx) DailyFlags(ctx context.Context) (map[string]bool, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %q and r._field == "is_on")
  |> group(columns: ["date"])
  |> last()
`, s.bucket, measFlag)

	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	out := make(map[string]bool)
	for res.Next() {
		rec := res.Record()
		date, _ := rec.ValueByKey("date").(string)
		if date == "" {
			continue
		}
		on, _ := rec.Value().(bool)
		out[date] = on
	}
	return out, res.Err()
}

// hourTime pins a (date, hour) key to its civil instant so rewrites of the
// same key land on the same point.
func (s *Influx) hourTime(date string, hour int) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad civil date %q: %w", date, err)
	}
	return day.Add(time.Duration(hour) * time.Hour), nil
}

func (s *Influx) dayRange(date string) (start, stop string, err error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return "", "", fmt.Errorf("bad civil date %q: %w", date, err)
	}
	return day.UTC().Format(time.RFC3339), day.Add(24 * time.Hour).UTC().Format(time.RFC3339), nil
}

// toF64 converts the loosely typed values Flux hands back.
func toF64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case uint64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
