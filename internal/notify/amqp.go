package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue receives booking events when no queue is configured.
const DefaultQueue = "booking.confirmed"

// Event is the JSON body published for each message.
type Event struct {
	Kind       string            `json:"kind"`
	To         []string          `json:"to"`
	Subject    string            `json:"subject"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes booking confirmations as persistent events on a
// durable queue. Other message kinds are ignored.
type AMQPNotifier struct {
	url   string
	queue string
	now   func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	channel publisher
}

// NewAMQPNotifier constructs a notifier for the broker at url. The connection
// is opened on first use and reopened after failures.
func NewAMQPNotifier(url, queue string) *AMQPNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPNotifier{url: url, queue: queue, now: time.Now}
}

func (n *AMQPNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.Kind != KindBookingConfirmed {
		return nil
	}

	body, err := json.Marshal(Event{
		Kind:       msg.Kind,
		To:         msg.Recipients(),
		Subject:    msg.Subject,
		Metadata:   msg.Metadata,
		OccurredAt: n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now().UTC(),
		Body:         body,
	})
	if err != nil {
		n.resetLocked()
		return fmt.Errorf("notify: amqp publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn, n.channel = nil, nil
	return err
}

func (n *AMQPNotifier) channelLocked() (publisher, error) {
	if n.channel != nil {
		return n.channel, nil
	}
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return nil, fmt.Errorf("notify: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: amqp queue declare: %w", err)
	}
	n.conn, n.channel = conn, ch
	return ch, nil
}

func (n *AMQPNotifier) resetLocked() {
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.conn, n.channel = nil, nil
}
