// Package mqtt publishes energy tracker events to an MQTT broker, for example
// the one Home Assistant listens on.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"energytracker/internal/core"
	"energytracker/internal/events"
	"energytracker/internal/log"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	qos            = 1
)

// Options configures the broker connection.
type Options struct {
	Broker      string // host:port
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// client is the subset of mqtt.Client used by the publisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

type Publisher struct {
	client      client
	topicPrefix string
	logger      *log.Logger
}

var _ events.Publisher = (*Publisher)(nil)

// RatePayload is the retained state published on the rate topic.
type RatePayload struct {
	RatePerKWh    float64 `json:"rate_per_kwh"`
	EffectiveDate string  `json:"effective_date"`
}

// NewPublisher connects to the broker described by opts.
func NewPublisher(opts Options, logger *log.Logger) (*Publisher, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentMQTT)

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(fmt.Sprintf("tcp://%s", opts.Broker))
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(connectTimeout)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", log.FieldError, err)
	})

	c := mqtt.NewClient(clientOpts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}

	logger.Info("MQTT publisher connected", "broker", opts.Broker, "topic_prefix", opts.TopicPrefix)
	return newPublisher(c, opts.TopicPrefix, logger), nil
}

func newPublisher(c client, prefix string, logger *log.Logger) *Publisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "energy_tracker"
	}
	return &Publisher{client: c, topicPrefix: prefix, logger: logger}
}

// EntryTopic returns the topic entry events are published on.
func (p *Publisher) EntryTopic() string { return p.topicPrefix + "/entry" }

// RateTopic returns the topic holding the retained current rate.
func (p *Publisher) RateTopic() string { return p.topicPrefix + "/rate" }

func (p *Publisher) PublishEntryRecorded(ctx context.Context, e core.EnergyEntry) error {
	body, err := events.NewEntryRecordedMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := p.publish(ctx, p.EntryTopic(), false, body); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Published entry to MQTT", "topic", p.EntryTopic(), log.FieldEntryID, e.ID)
	return nil
}

func (p *Publisher) PublishRateUpdated(ctx context.Context, r core.BillingRate) error {
	body, err := json.Marshal(RatePayload{
		RatePerKWh:    r.RatePerKWh,
		EffectiveDate: r.EffectiveDate.String(),
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := p.publish(ctx, p.RateTopic(), true, body); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Published rate to MQTT", "topic", p.RateTopic(), log.FieldRate, r.RatePerKWh)
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, body []byte) error {
	token := p.client.Publish(topic, qos, retained, body)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	case <-time.After(timeout):
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}
