package mqttbus

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher is the publish side of the bus, bound to a default topic.
type IPublisher interface {
	PublishMessage(payload string) error
	PublishToQos(topic string, qos byte, retained bool, payload string) error
	Close()
}

type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher binds a publisher to topic on the shared MQTT client.
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// PublishMessage publishes payload to the bound topic at QoS 0.
func (p *Publisher) PublishMessage(payload string) error {
	return p.PublishToQos(p.topic, 0, false, payload)
}

// PublishToQos publishes to an explicit topic with explicit QoS.
func (p *Publisher) PublishToQos(topic string, qos byte, retained bool, payload string) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	log.Printf("mqtt: published %q to topic %s", payload, topic)
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("mqtt: publisher client disconnected")
	}
}
