// Package events publishes processing events to an AMQP broker so the web
// application can react to accepted and failed mail. Publishing is strictly
// best-effort: a broker outage never affects mail handling.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/vaulty/mailvault/internal/logger"
)

const (
	ExchangeMailvault = "mailvault-events"

	RoutingKeyMailAccepted = "mail.accepted"
	RoutingKeyMailFailed   = "mail.failed"

	publishTimeout = 5 * time.Second
)

// MailEvent is the payload published for both accepted and failed mail.
type MailEvent struct {
	EmailID        string    `json:"emailId"`
	Recipient      string    `json:"recipient"`
	Sender         string    `json:"sender"`
	NumAttachments int       `json:"numAttachments"`
	TotalSize      int64     `json:"totalSize"`
	Detail         string    `json:"detail,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type Publisher struct {
	url string
	log logger.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewPublisher connects to the broker. An empty URL disables publishing and
// returns a nil publisher; all methods are nil-safe.
func NewPublisher(url string, log logger.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	p := &Publisher{
		url: url,
		log: log,
	}
	if err := p.connect(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to broker")
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	err = channel.ExchangeDeclare(
		ExchangeMailvault,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return err
	}

	p.conn = conn
	p.channel = channel
	return nil
}

// Publish sends one event. Failures are logged locally and swallowed; the
// connection is dropped so the next publish reconnects.
func (p *Publisher) Publish(ctx context.Context, routingKey string, event MailEvent) {
	if p == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Errorf("failed to encode %s event: %v", routingKey, err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		if err := p.connect(); err != nil {
			p.log.Errorf("failed to reconnect to broker: %v", err)
			return
		}
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(publishCtx,
		ExchangeMailvault,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.log.Errorf("failed to publish %s event: %v", routingKey, err)
		p.teardownLocked()
	}
}

func (p *Publisher) teardownLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}
