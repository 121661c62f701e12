package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"

	"github.com/agrosense/irrigation-backend/internal/clock"
	"github.com/agrosense/irrigation-backend/internal/config"
	"github.com/agrosense/irrigation-backend/internal/services/api"
	"github.com/agrosense/irrigation-backend/internal/services/ingest"
	"github.com/agrosense/irrigation-backend/internal/services/irrigation"
	"github.com/agrosense/irrigation-backend/internal/storage"
	"github.com/agrosense/irrigation-backend/pkg/mqttbus"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	clk := clock.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MQTT ---
	mqCfg := &mqttbus.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID + "-" + uuid.NewString()[:8],
	}
	mqClient, err := mqttbus.NewConn(mqCfg, ctx)
	if err != nil {
		log.Fatalf("mqtt connect failed: %v", err)
	}

	// --- InfluxDB ---
	influxClient := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
	defer influxClient.Close()
	store, err := storage.NewInflux(influxClient, cfg.Influx.Org, cfg.Influx.Bucket, clk.Location())
	if err != nil {
		log.Fatalf("influx init failed: %v", err)
	}

	// --- Core services ---
	statusCache := irrigation.NewStatusCache(store, clk)

	tracker := irrigation.NewTracker(store, clk)
	tracker.Resume(ctx, statusCache)
	if err := tracker.Start(ctx); err != nil {
		log.Fatalf("tracker start failed: %v", err)
	}

	consumer := mqttbus.NewMultiConsumer(mqClient,
		[]string{cfg.Topics.Moisture, cfg.Topics.Humidity, cfg.Topics.Pump}, nil)
	pipeline := ingest.NewPipeline(consumer, store, statusCache, clk, cfg.Topics)
	go pipeline.Start(ctx)

	// --- HTTP API ---
	controlPub := mqttbus.NewPublisher(mqClient, cfg.Topics.PumpControl)
	server := api.NewServer(store, statusCache, tracker, controlPub, clk, mqClient, cfg.AuditLimit)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("irrigation backend HTTP listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("irrigation backend: shutdown complete")
}
