// Package service holds the outbound integrations of the ETL runner.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/config"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
)

// confirmTimeout bounds the wait for a broker acknowledgement.
const confirmTimeout = 5 * time.Second

// RunPublisher announces finished pipeline runs.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error
	Close() error
}

// MessagePublisher publishes run summaries to a RabbitMQ topic exchange with
// publisher confirms.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewMessagePublisher connects to RabbitMQ and declares the exchange.
func NewMessagePublisher(cfg *config.RabbitMQConfig, logger *zap.Logger) (*MessagePublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mp := &MessagePublisher{
		config: cfg,
		logger: logger,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	conn, err := amqp.Dial(mp.config.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// Declare exchange
	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	mp.conn = conn
	mp.channel = ch

	mp.logger.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("routing_key", mp.config.RoutingKey),
	)

	return nil
}

// PublishRunCompleted publishes summary as a persistent JSON message and waits
// for the broker to confirm it.
func (mp *MessagePublisher) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	confirmation, err := mp.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		mp.config.Exchange,   // exchange
		mp.config.RoutingKey, // routing key
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
			MessageId:     uuid.NewString(),
			CorrelationId: summary.RunID,
			Type:          "etl.run.completed",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	acked, err := confirmation.WaitContext(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("timeout waiting for publish confirmation")
		}
		return err
	}
	if !acked {
		return fmt.Errorf("message was not acknowledged by broker")
	}

	mp.logger.Debug("Published run summary",
		zap.String("run_id", summary.RunID),
		zap.String("routing_key", mp.config.RoutingKey),
	)

	return nil
}

// Close closes the channel and connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %w", errors.Join(errs...))
	}

	mp.logger.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil && !mp.channel.IsClosed()
}
