package config

import (
	"os"
	"strconv"
)

// Config collects everything the backend reads from the environment.
type Config struct {
	HTTPPort string
	MQTT     MQTTConfig
	Influx   InfluxConfig
	Topics   TopicsConfig

	// AuditLimit caps how many audit samples GET /data returns.
	AuditLimit int
}

type MQTTConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// TopicsConfig holds the sensor topic namespace. The defaults match the
// field hardware firmware.
type TopicsConfig struct {
	Moisture    string
	Humidity    string
	Pump        string
	PumpControl string
}

// Load reads the configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		HTTPPort: env("PORT", "8080"),
		MQTT: MQTTConfig{
			Host:     env("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     env("MQTT_USER", ""),
			Password: env("MQTT_PASS", ""),
			ClientID: env("MQTT_CLIENT_ID", "irrigation-backend"),
		},
		Influx: InfluxConfig{
			URL:    env("INFLUX_URL", "http://localhost:8086"),
			Token:  env("INFLUX_TOKEN", ""),
			Org:    env("INFLUX_ORG", "org"),
			Bucket: env("INFLUX_BUCKET", "irrigation"),
		},
		Topics: TopicsConfig{
			Moisture:    env("TOPIC_MOISTURE", "iot/field/moisture"),
			Humidity:    env("TOPIC_HUMIDITY", "iot/field/humidity"),
			Pump:        env("TOPIC_PUMP", "iot/field/pump"),
			PumpControl: env("TOPIC_PUMP_CONTROL", "iot/field/pump/control"),
		},
		AuditLimit: envInt("AUDIT_LIMIT", 20),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
