package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/agrosense/irrigation-backend/internal/config"
	"github.com/agrosense/irrigation-backend/internal/simulator"
	"github.com/agrosense/irrigation-backend/pkg/mqttbus"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	interval := 10 * time.Second
	if v := os.Getenv("SIM_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mqCfg := &mqttbus.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: "field-simulator-" + uuid.NewString()[:8],
	}
	mqClient, err := mqttbus.NewConn(mqCfg, ctx)
	if err != nil {
		log.Fatalf("mqtt connect failed: %v", err)
	}

	consumer := mqttbus.NewConsumer(mqClient, cfg.Topics.PumpControl, nil)
	publisher := mqttbus.NewPublisher(mqClient, cfg.Topics.Moisture)

	sim := simulator.New(consumer, publisher, cfg.Topics)
	log.Printf("field simulator running, publishing every %s", interval)
	sim.Start(ctx, interval)
}
