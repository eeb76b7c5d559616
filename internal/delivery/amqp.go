package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/ukaji3/cashreport-go/internal/log"
)

const (
	maxAttempts    = 3
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// publisher is the part of *amqp091.Channel the sender uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPSender publishes messages as persistent JSON to a direct exchange.
type AMQPSender struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	pub     publisher

	sleep func(ctx context.Context, d time.Duration) error
}

// NewAMQPSender connects and declares the exchange, queue and binding.
func NewAMQPSender(url, exchangeName, queueName string, logger *log.Logger) (*AMQPSender, error) {
	s := &AMQPSender{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
		sleep:        sleepContext,
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AMQPSender) connect() error {
	conn, err := amqp091.Dial(s.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, s.exchangeName, s.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	s.conn = conn
	s.channel = channel
	s.pub = channel
	return nil
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Send publishes msg, retrying with exponential backoff. A closed connection
// is redialed before the next attempt.
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := NewOutboundMessage(msg).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := exponentialBackoff(attempt - 1)
			s.logger.WarnContext(ctx, "Retrying publish",
				log.FieldAttempt, attempt+1,
				log.FieldDelay, delay,
				log.FieldError, lastErr)
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.pub == nil {
			if lastErr = s.connect(); lastErr != nil {
				continue
			}
		}
		lastErr = s.publish(ctx, body)
		if lastErr == nil {
			s.logger.InfoContext(ctx, "Published message",
				log.FieldDocument, msg.Document,
				"exchange", s.exchangeName,
				"queue", s.queueName)
			return nil
		}
		if errors.Is(lastErr, amqp091.ErrClosed) {
			s.close()
		}
	}
	return fmt.Errorf("publish message after %d attempts: %w", maxAttempts, lastErr)
}

func (s *AMQPSender) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return s.pub.PublishWithContext(
		ctx,
		s.exchangeName, // exchange
		s.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (s *AMQPSender) close() {
	s.pub = nil
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
