package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

// AMQPPublisher publishes JSON messages to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
}

// NewAMQPPublisher dials RabbitMQ and opens a channel.
func NewAMQPPublisher(amqpURL string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, channel: ch, declared: make(map[string]bool)}, nil
}

// Publish declares the exchange once and sends body as JSON. A failed
// publish reopens the channel and tries once more.
func (p *AMQPPublisher) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.publishLocked(ctx, exchange, routingKey, data); err != nil {
		if reopenErr := p.reopenLocked(); reopenErr != nil {
			return errors.Join(err, reopenErr)
		}
		return p.publishLocked(ctx, exchange, routingKey, data)
	}
	return nil
}

func (p *AMQPPublisher) publishLocked(ctx context.Context, exchange, routingKey string, data []byte) error {
	if !p.declared[exchange] {
		if err := p.channel.ExchangeDeclare(
			exchange, // name
			"topic",  // type
			true,     // durable
			false,    // autoDelete
			false,    // internal
			false,    // noWait
			nil,      // args
		); err != nil {
			return err
		}
		p.declared[exchange] = true
	}

	return p.channel.PublishWithContext(ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         data,
		},
	)
}

func (p *AMQPPublisher) reopenLocked() error {
	if p.conn == nil || p.conn.IsClosed() {
		return amqp.ErrClosed
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if p.channel != nil {
		p.channel.Close()
	}
	p.channel = ch
	p.declared = make(map[string]bool)
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// FallbackPublisher logs instead of publishing. It is used when RabbitMQ is
// unreachable at startup so the service can still run.
type FallbackPublisher struct {
	Logger *slog.Logger
}

func (p *FallbackPublisher) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	p.Logger.DebugContext(ctx, "amqp unavailable, audit event not published", "exchange", exchange, "routing_key", routingKey)
	return nil
}

func (p *FallbackPublisher) Close() {}

// AMQPSink publishes audit records to an exchange with routing key
// "audit.<event_kind>".
type AMQPSink struct {
	publisher Publisher
	exchange  string
}

// NewAMQPSink creates a sink over publisher.
func NewAMQPSink(publisher Publisher, exchange string) *AMQPSink {
	return &AMQPSink{publisher: publisher, exchange: exchange}
}

// Append publishes rec.
func (s *AMQPSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	return s.publisher.Publish(ctx, s.exchange, RoutingKey(rec.EventKind), rec)
}

// RoutingKey returns the topic routing key for an event kind.
func RoutingKey(kind domain.AuditEventKind) string {
	return "audit." + string(kind)
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// Drop stray characters before the scheme
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
