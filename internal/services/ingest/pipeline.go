package ingest

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/agrosense/irrigation-backend/internal/clock"
	"github.com/agrosense/irrigation-backend/internal/config"
	"github.com/agrosense/irrigation-backend/internal/metrics"
	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/internal/services/irrigation"
	"github.com/agrosense/irrigation-backend/internal/storage"
	"github.com/agrosense/irrigation-backend/pkg/dedup"
	"github.com/agrosense/irrigation-backend/pkg/mqttbus"
)

const storeTimeout = 5 * time.Second

// Pipeline consumes the sensor topic namespace and routes every message:
// moisture/humidity into the hourly accumulator and the decision engine,
// pump status reports into the status cache. Hour rollover is detected from
// the messages themselves, so a quiet boundary defers the flush until the
// next sample arrives.
type Pipeline struct {
	consumer mqttbus.IConsumer
	store    storage.Store
	status   *irrigation.StatusCache
	clk      *clock.Clock
	topics   config.TopicsConfig
	acc      *Accumulator
	deduper  *dedup.Deduper

	mu           sync.Mutex
	lastMoisture float64
	lastHumidity float64
	haveMoisture bool
	haveHumidity bool
}

func NewPipeline(consumer mqttbus.IConsumer, store storage.Store, status *irrigation.StatusCache,
	clk *clock.Clock, topics config.TopicsConfig) *Pipeline {
	p := &Pipeline{
		consumer: consumer,
		store:    store,
		status:   status,
		clk:      clk,
		topics:   topics,
		acc:      NewAccumulator(clk.CivilDate(), clk.Hour()),
		deduper:  dedup.New(10*time.Minute, 20000),
	}
	consumer.SetHandler(p.handleMessage)
	return p
}

// Start runs the consumer until ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	go p.consumer.ConsumeMessage(ctx)
	<-ctx.Done()
}

func (p *Pipeline) handleMessage(topic string, msg mqtt.Message) error {
	payload := strings.TrimSpace(string(msg.Payload()))

	if topic == p.topics.Pump {
		return p.handlePumpStatus(msg, payload)
	}

	var metric model.MetricKind
	switch topic {
	case p.topics.Moisture:
		metric = model.MetricMoisture
	case p.topics.Humidity:
		metric = model.MetricHumidity
	default:
		return nil
	}

	value, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		metrics.SamplesDropped.Inc()
		log.Printf("ingest: dropping malformed %s payload %q", metric, payload)
		return nil
	}

	now := p.clk.Now()
	sample := model.TelemetrySample{Metric: metric, Value: value, ObservedAt: now}
	if finished, rolled := p.acc.Advance(p.clk.DateOf(now), p.clk.HourOf(now)); rolled {
		p.flush(finished)
	}
	p.acc.Append(sample)
	metrics.SamplesIngested.WithLabelValues(string(metric)).Inc()

	p.evaluate(metric, value, p.clk.HourOf(now))
	return nil
}

// flush persists the finished hour. Failures are logged and the hour is
// discarded; ingestion of the next samples is never blocked.
func (p *Pipeline) flush(finished []model.HourlyAggregate) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	for _, agg := range finished {
		if err := p.store.UpsertHourlyAggregate(ctx, agg.Date, agg.Hour, agg.Metric, agg.Average, agg.Count); err != nil {
			metrics.FlushErrors.Inc()
			log.Printf("ingest: flush %s %s h=%d failed, hour discarded: %v", agg.Metric, agg.Date, agg.Hour, err)
			continue
		}
		metrics.HourlyFlushes.Inc()
		log.Printf("ingest: flushed %s %s h=%d avg=%.2f n=%d", agg.Metric, agg.Date, agg.Hour, agg.Average, agg.Count)
	}
}

// handlePumpStatus stores whatever the hardware reports, upper-cased and
// unvalidated, last write wins. Pump reports ride at QoS 1, so every packet
// carries an id; the id is recorded on first delivery and a redelivery of an
// already handled packet is dropped.
func (p *Pipeline) handlePumpStatus(msg mqtt.Message, payload string) error {
	if id := msg.MessageID(); id != 0 && !p.deduper.ShouldProcess(strconv.Itoa(int(id))) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	status := strings.ToUpper(payload)
	if err := p.status.Set(ctx, status); err != nil {
		log.Printf("ingest: pump status update failed: %v", err)
	}
	return nil
}

// evaluate runs the decision engine once both metrics have been observed at
// least once since process start. The decided status goes to the status
// cache and an audit sample; the automated path never publishes a control
// command.
func (p *Pipeline) evaluate(metric model.MetricKind, value float64, hour int) {
	p.mu.Lock()
	switch metric {
	case model.MetricMoisture:
		p.lastMoisture = value
		p.haveMoisture = true
	case model.MetricHumidity:
		p.lastHumidity = value
		p.haveHumidity = true
	}
	both := p.haveMoisture && p.haveHumidity
	moisture, humidity := p.lastMoisture, p.lastHumidity
	p.mu.Unlock()

	if !both {
		return
	}

	decided := irrigation.Decide(moisture, hour)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := p.status.Set(ctx, decided); err != nil {
		log.Printf("ingest: decision status update failed: %v", err)
	}
	if err := p.store.AppendAuditSample(ctx, moisture, humidity, decided); err != nil {
		log.Printf("ingest: audit sample write failed: %v", err)
	}
}
