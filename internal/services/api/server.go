package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/agrosense/irrigation-backend/internal/clock"
	"github.com/agrosense/irrigation-backend/internal/metrics"
	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/services/irrigation"
	"github.com/agrosense/irrigation-backend/internal/storage"
	"github.com/agrosense/irrigation-backend/pkg/mqttbus"
)

// Server is the HTTP surface the dashboard consumes. Reads from the store go
// through a circuit breaker so a slow or down Influx degrades to fast errors
// instead of piling up requests.
type Server struct {
	store      storage.Store
	status     *irrigation.StatusCache
	tracker    *irrigation.Tracker
	publisher  mqttbus.IPublisher
	clk        *clock.Clock
	mqtt       mqtt.Client
	readCB     *gobreaker.CircuitBreaker
	auditLimit int
}

func NewServer(store storage.Store, status *irrigation.StatusCache, tracker *irrigation.Tracker,
	publisher mqttbus.IPublisher, clk *clock.Clock, mqttClient mqtt.Client, auditLimit int) *Server {
	if auditLimit <= 0 {
		auditLimit = 20
	}
	return &Server{
		store:      store,
		status:     status,
		tracker:    tracker,
		publisher:  publisher,
		clk:        clk,
		mqtt:       mqttClient,
		readCB:     mkCB("influx-read", 5, 10*time.Second, 30*time.Second),
		auditLimit: auditLimit,
	}
}

func mkCB(name string, fails uint32, openFor, interval time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: interval,
		Timeout:  openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
	})
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/irrigation-status", s.handleStatus)
	mux.HandleFunc("/toggle-irrigation", s.handleToggle)
	mux.HandleFunc("/toggle-irrigation-track", s.handleToggleTrack)
	mux.HandleFunc("/set-default-mode", s.handleDefaultMode)
	mux.HandleFunc("/irrigation-statistics/", s.handleStatistics)
	mux.HandleFunc("/irrigation-log", s.handleLog)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status        string `json:"status"`
		MQTTConnected bool   `json:"mqtt_connected"`
	}
	st := status{MQTTConnected: s.mqtt != nil && s.mqtt.IsConnectionOpen()}
	if st.MQTTConnected {
		st.Status = "ok"
	} else {
		st.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.mqtt != nil && s.mqtt.IsConnectionOpen()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]bool{"ready": ready})
}

// GET /data -> last N audit samples, newest first, timestamps in civil time.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	limit := s.auditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.readCB.Execute(func() (interface{}, error) {
		return s.store.LatestAuditSamples(ctx, limit)
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"msg": "store unavailable"})
		return
	}
	samples := res.([]model.AuditSample)

	type outT struct {
		Moisture  float64 `json:"moisture"`
		Humidity  float64 `json:"humidity"`
		Decided   string  `json:"irrigation_status"`
		Timestamp string  `json:"timestamp"`
	}
	out := make([]outT, 0, len(samples))
	for _, a := range samples {
		out = append(out, outT{
			Moisture:  a.Moisture,
			Humidity:  a.Humidity,
			Decided:   a.Decided,
			Timestamp: a.Timestamp.In(s.clk.Location()).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /irrigation-status -> status cache snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": "error reading status"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type togglePayload struct {
	Status string `json:"status"`
}

// POST /toggle-irrigation -> manual override. The only path that publishes a
// control command; the automated decision path is passive.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body togglePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "status is required"})
		return
	}
	status := strings.ToUpper(strings.TrimSpace(body.Status))

	if err := s.status.Set(r.Context(), status); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": "error toggling irrigation status"})
		return
	}

	cmd := model.StatusOff
	if status == model.StatusOn {
		cmd = model.StatusOn
	}
	if err := s.publisher.PublishMessage(cmd); err != nil {
		log.Printf("api: control publish failed: %v", err)
	} else {
		metrics.ControlCommands.WithLabelValues(cmd).Inc()
	}

	today := s.clk.CivilDate()
	if err := s.store.SetDailyFlag(r.Context(), today, status == model.StatusOn); err != nil {
		log.Printf("api: daily flag update failed for %s: %v", today, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Status updated and MQTT message sent",
		"newStatus": status,
	})
}

// POST /toggle-irrigation-track -> re-points the tracker's active counter.
func (s *Server) handleToggleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body togglePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "status is required"})
		return
	}
	status := strings.ToUpper(strings.TrimSpace(body.Status))
	s.tracker.StartTracking(status)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Irrigation status toggled",
		"newStatus": status,
	})
}

// POST /set-default-mode -> hands control back to the field hardware.
// Publishes DEFAULT without touching the status cache.
func (s *Server) handleDefaultMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.publisher.PublishMessage("DEFAULT"); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to send default mode command"})
		return
	}
	metrics.ControlCommands.WithLabelValues("DEFAULT").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Default mode activated and MQTT message sent"})
}

// GET /irrigation-statistics/{date} -> aggregates + daily log + audit
// samples for that date, with overall averages.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimPrefix(r.URL.Path, "/irrigation-statistics/")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "date must be YYYY-MM-DD"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	type stats struct {
		MoistureData    []model.HourlyAggregate  `json:"moistureData"`
		HumidityData    []model.HourlyAggregate  `json:"humidityData"`
		IrrigationLog   model.IrrigationDailyLog `json:"irrigationLog"`
		AuditSamples    []model.AuditSample      `json:"auditSamples"`
		AverageMoisture float64                  `json:"averageMoisture"`
		AverageHumidity float64                  `json:"averageHumidity"`
	}

	res, err := s.readCB.Execute(func() (interface{}, error) {
		var out stats
		var err error
		if out.MoistureData, err = s.store.HourlyAggregates(ctx, date, model.MetricMoisture); err != nil {
			return nil, err
		}
		if out.HumidityData, err = s.store.HourlyAggregates(ctx, date, model.MetricHumidity); err != nil {
			return nil, err
		}
		if out.IrrigationLog, err = s.store.DailyLog(ctx, date); err != nil {
			return nil, err
		}
		if out.AuditSamples, err = s.store.AuditSamplesByDate(ctx, date); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"msg": "store unavailable"})
		return
	}

	out := res.(stats)
	out.AverageMoisture = meanAverage(out.MoistureData)
	out.AverageHumidity = meanAverage(out.HumidityData)
	writeJSON(w, http.StatusOK, out)
}

// GET /irrigation-log -> date -> coarse on/off flag for the calendar view.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.readCB.Execute(func() (interface{}, error) {
		return s.store.DailyFlags(ctx)
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"msg": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, res.(map[string]bool))
}

// meanAverage is the mean over the flushed hourly averages, matching the
// dashboard's expectation for the statistics view.
func meanAverage(aggs []model.HourlyAggregate) float64 {
	if len(aggs) == 0 {
		return 0
	}
	var sum float64
	for _, a := range aggs {
		sum += a.Average
	}
	return sum / float64(len(aggs))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
