// Package amqp publishes energy tracker events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"energytracker/internal/core"
	"energytracker/internal/events"
	"energytracker/internal/log"
)

const (
	publishTimeout = 5 * time.Second
	maxDialRetries = 5
)

// channel is the subset of *amqp091.Channel used by the publisher.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  channel
	exchange string
	logger   *log.Logger
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher dials url, retrying with exponential backoff, and declares a
// durable topic exchange.
func NewPublisher(ctx context.Context, url, exchange string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAMQP)

	var (
		conn *amqp091.Connection
		err  error
	)
	for attempt := 0; attempt < maxDialRetries; attempt++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			break
		}
		if !isConnectionError(err) || attempt == maxDialRetries-1 {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		wait := exponentialBackoff(attempt)
		logger.WarnContext(ctx, "AMQP dial failed, retrying", log.FieldError, err, "attempt", attempt+1, "wait", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn

	logger.InfoContext(ctx, "AMQP publisher ready", "exchange", exchange)
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *log.Logger) (*Publisher, error) {
	p := &Publisher{channel: ch, exchange: exchange, logger: logger}
	if err := p.setup(); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	return p.channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
}

func (p *Publisher) PublishEntryRecorded(ctx context.Context, e core.EnergyEntry) error {
	body, err := events.NewEntryRecordedMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := p.publish(ctx, events.EventEntryRecorded, body); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Published entry recorded event",
		log.FieldEntryID, e.ID,
		log.FieldEnergyKWh, e.EnergyKWh,
		"exchange", p.exchange)
	return nil
}

func (p *Publisher) PublishRateUpdated(ctx context.Context, r core.BillingRate) error {
	body, err := events.NewRateUpdatedMessage(r).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := p.publish(ctx, events.EventRateUpdated, body); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "Published rate updated event",
		log.FieldRate, r.RatePerKWh,
		"exchange", p.exchange)
	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return 30 * time.Second
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
