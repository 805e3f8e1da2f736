package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishTimeout   = 5 * time.Second
	dialAttempts     = 5
	dialInitialDelay = 500 * time.Millisecond
	dialMaxDelay     = 10 * time.Second
)

// AMQPNotifier publishes email requests to a topic exchange consumed by an
// external mailer. Routing key is "mail.<template>".
type AMQPNotifier struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPNotifier dials the broker with back-off and declares the exchange.
func NewAMQPNotifier(url, exchange string, logger *zap.Logger) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: url, exchange: exchange, logger: logger}
	err := retry.Do(
		n.connect,
		retry.Attempts(dialAttempts),
		retry.Delay(dialInitialDelay),
		retry.MaxDelay(dialMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Warn("amqp dial failed", zap.Uint("attempt", attempt+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	logger.Info("connected to rabbitmq", zap.String("exchange", exchange))
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		n.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.channel = ch
	n.mu.Unlock()
	return nil
}

// Send publishes msg. A closed connection is re-dialled once before giving up.
func (n *AMQPNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if n.closed() {
		if err := n.connect(); err != nil {
			return err
		}
	}

	n.mu.RLock()
	ch := n.channel
	n.mu.RUnlock()
	if ch == nil {
		return errors.New("channel not available")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		n.exchange,
		RoutingKey(msg.Template),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel != nil {
		_ = n.channel.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}

func (n *AMQPNotifier) closed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn == nil || n.conn.IsClosed() || n.channel == nil || n.channel.IsClosed()
}

// RoutingKey derives the topic routing key for a template.
func RoutingKey(template string) string {
	return "mail." + template
}
