package uplink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/store"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// MQTTPublisher forwards messages to an MQTT broker topic at QoS 1.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", broker, token.Error())
	}
	return &MQTTPublisher{client: client, topic: topic}, nil
}

func (p *MQTTPublisher) Notify(ctx context.Context, msg store.Message) error {
	payload, err := json.Marshal(map[string]string{
		"id":      msg.ID,
		"origin":  msg.OriginID,
		"kind":    msg.Kind,
		"payload": msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish timed out after %s", publishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish: %w", token.Error())
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
