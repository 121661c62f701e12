package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SamplesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_samples_ingested_total",
		Help: "Sensor samples accepted by the ingestion pipeline.",
	}, []string{"metric"})

	SamplesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_samples_dropped_total",
		Help: "Sensor payloads dropped at decode time.",
	})

	HourlyFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_hourly_flushes_total",
		Help: "Hourly aggregate and tracker flushes performed.",
	})

	FlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_flush_errors_total",
		Help: "Flush attempts that failed to persist.",
	})

	IrrigationState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "irrigation_state",
		Help: "Last known pump state, 1 when ON.",
	})

	ControlCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_control_commands_total",
		Help: "Pump control commands published over MQTT.",
	}, []string{"command"})
)

// SetState mirrors the status cache into the state gauge.
func SetState(status string) {
	if status == "ON" {
		IrrigationState.Set(1)
		return
	}
	IrrigationState.Set(0)
}
