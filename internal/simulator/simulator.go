package simulator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/agrosense/irrigation-backend/internal/config"
	"github.com/agrosense/irrigation-backend/internal/model"
	"github.com/agrosense/irrigation-backend/pkg/mqttbus"
)

// Simulator stands in for the field hardware during local development: it
// publishes raw numeric moisture/humidity payloads, reports pump state, and
// obeys ON/OFF/DEFAULT commands on the control topic the way the firmware
// does.
type Simulator struct {
	publisher mqttbus.IPublisher
	consumer  mqttbus.IConsumer
	topics    config.TopicsConfig

	mu       sync.Mutex
	moisture float64
	humidity float64
	pumpOn   bool
	manual   bool
	rnd      *rand.Rand
}

func New(consumer mqttbus.IConsumer, publisher mqttbus.IPublisher, topics config.TopicsConfig) *Simulator {
	s := &Simulator{
		publisher: publisher,
		consumer:  consumer,
		topics:    topics,
		moisture:  45,
		humidity:  60,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	consumer.SetHandler(s.handleControl)
	return s
}

// Start publishes one round of readings every interval until ctx is done.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	go s.consumer.ConsumeMessage(ctx)

	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-time.After(interval):
			s.step()
		}
	}
}

func (s *Simulator) step() {
	s.mu.Lock()

	// soil dries slowly, recovers while the pump runs
	drift := 0.4 + s.rnd.Float64()*0.3
	if s.pumpOn {
		s.moisture += 1.5
	} else {
		s.moisture -= drift
	}
	s.moisture = clamp(s.moisture, 5, 95)

	s.humidity += (s.rnd.Float64() - 0.5) * 2
	s.humidity = clamp(s.humidity, 20, 95)

	// in default mode the firmware switches the pump on its own threshold
	prevPump := s.pumpOn
	if !s.manual {
		s.pumpOn = s.moisture < 30
	}

	moisture := int(s.moisture)
	humidity := s.humidity
	pumpChanged := s.pumpOn != prevPump
	pumpOn := s.pumpOn
	s.mu.Unlock()

	s.publish(s.topics.Moisture, strconv.Itoa(moisture))
	s.publish(s.topics.Humidity, fmt.Sprintf("%.1f", humidity))
	if pumpChanged {
		state := model.StatusOff
		if pumpOn {
			state = model.StatusOn
		}
		s.publish(s.topics.Pump, state)
	}
}

func (s *Simulator) publish(topic, payload string) {
	if err := s.publisher.PublishToQos(topic, 0, false, payload); err != nil {
		log.Printf("simulator: publish error on %s: %v", topic, err)
	}
}

func (s *Simulator) handleControl(_ string, msg mqtt.Message) error {
	cmd := strings.ToUpper(strings.TrimSpace(string(msg.Payload())))

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.pumpOn
	switch cmd {
	case model.StatusOn:
		s.manual = true
		s.pumpOn = true
	case model.StatusOff:
		s.manual = true
		s.pumpOn = false
	case "DEFAULT":
		s.manual = false
	default:
		log.Printf("simulator: ignoring unknown command %q", cmd)
		return nil
	}
	log.Printf("simulator: control command %s (manual=%v)", cmd, s.manual)

	if s.pumpOn != prev {
		state := model.StatusOff
		if s.pumpOn {
			state = model.StatusOn
		}
		go s.publish(s.topics.Pump, state)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
