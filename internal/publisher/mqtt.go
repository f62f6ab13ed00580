// Package publisher pushes the current congestion of each charge type to
// an MQTT broker so home-automation dashboards can show it.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ev-dashboard/internal/config"
	"ev-dashboard/internal/congestion"
	"ev-dashboard/pkg/logging"
)

const (
	defaultTopicPrefix = "ev_dashboard/congestion"
	publishTimeout     = 10 * time.Second
	disconnectQuiesce  = 250
)

// Publisher publishes retained congestion messages, one topic per charge type
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	logger      *logging.StructuredLogger
}

// New connects to the configured broker
func New(cfg config.MQTTConfig, logger *logging.StructuredLogger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", broker, err)
	}

	logger.Info(context.Background(), "[MQTT_CONNECTED] Connected to broker", logging.Fields{
		"broker":    broker,
		"client_id": cfg.ClientID,
	})

	return NewWithClient(client, cfg.TopicPrefix, logger), nil
}

// NewWithClient wraps an already configured client
func NewWithClient(client mqtt.Client, topicPrefix string, logger *logging.StructuredLogger) *Publisher {
	topicPrefix = strings.Trim(topicPrefix, "/")
	if topicPrefix == "" {
		topicPrefix = defaultTopicPrefix
	}
	return &Publisher{client: client, topicPrefix: topicPrefix, logger: logger}
}

// Payload is the JSON body of a congestion message
type Payload struct {
	ChargeType  string           `json:"charge_type"`
	Hour        int              `json:"hour"`
	Congestion  congestion.Level `json:"congestion"`
	Label       string           `json:"label"`
	Message     string           `json:"message"`
	PublishedAt time.Time        `json:"published_at"`
}

// Message is one topic and its encoded payload
type Message struct {
	Topic   string
	Payload []byte
}

// Topic returns prefix/<charge type>, with MQTT wildcard and level
// characters in the charge type replaced by underscores
func Topic(prefix, chargeType string) string {
	segment := strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		}
		return r
	}, strings.TrimSpace(chargeType))
	return prefix + "/" + segment
}

// BuildMessages encodes one message per current congestion entry
func BuildMessages(prefix string, currents []congestion.Current, at time.Time) ([]Message, error) {
	messages := make([]Message, 0, len(currents))
	for _, c := range currents {
		body, err := json.Marshal(Payload{
			ChargeType:  c.ChargeType,
			Hour:        c.Hour,
			Congestion:  c.Congestion,
			Label:       c.Label,
			Message:     c.Message,
			PublishedAt: at.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload for %s: %w", c.ChargeType, err)
		}
		messages = append(messages, Message{Topic: Topic(prefix, c.ChargeType), Payload: body})
	}
	return messages, nil
}

// Publish sends the current congestion of every entry as a retained
// QoS 1 message. It stops at the first failed publish.
func (p *Publisher) Publish(ctx context.Context, currents []congestion.Current) error {
	messages, err := BuildMessages(p.topicPrefix, currents, time.Now())
	if err != nil {
		return err
	}

	for _, m := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := p.client.Publish(m.Topic, 1, true, m.Payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("timed out publishing to %s", m.Topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", m.Topic, err)
		}
	}

	p.logger.Info(ctx, "[MQTT_PUBLISH] Congestion published", logging.Fields{
		"topic_prefix": p.topicPrefix,
		"messages":     len(messages),
	})
	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesce)
	}
}
