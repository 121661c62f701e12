package mqttbus

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one inbound message. Returning an error only logs it;
// the subscription stays alive.
type Handler func(topic string, message mqtt.Message) error

// IConsumer is the subscription side of the bus.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer subscribes to a single topic on the shared client.
type Consumer struct {
	client  mqtt.Client
	topic   string
	handler Handler
}

func NewConsumer(client mqtt.Client, topic string, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) { c.handler = handler }

// qosFor picks the subscription QoS per topic. Pump status reports must
// survive a flaky link, so they ride at QoS 1 and redeliveries arrive with
// the DUP flag set; raw sensor readings are lossy by nature and stay at 0.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasSuffix(t, "/pump") || strings.HasSuffix(t, "/pump/control") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes and blocks until ctx is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	subscribe(c.client, c.topic, func() Handler { return c.handler })
	<-ctx.Done()
	c.client.Unsubscribe(c.topic).Wait()
}

// MultiConsumer subscribes to several topics and feeds them into one handler.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler Handler) *MultiConsumer {
	return &MultiConsumer{client: client, topics: topics, handler: handler}
}

func (m *MultiConsumer) SetHandler(handler Handler) { m.handler = handler }

func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range m.topics {
		subscribe(m.client, topic, func() Handler { return m.handler })
	}
	<-ctx.Done()
	for _, topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}

func subscribe(client mqtt.Client, topic string, handler func() Handler) {
	token := client.Subscribe(topic, qosFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
		h := handler()
		if h == nil {
			log.Printf("mqtt: no handler set for topic %s", topic)
			return
		}
		if err := h(topic, msg); err != nil {
			log.Printf("mqtt: error handling message on %s: %v", topic, err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		log.Printf("mqtt: error subscribing to topic %s: %v", topic, token.Error())
		return
	}
	log.Printf("mqtt: subscribed to topic %s", topic)
}
