package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/pkg/rabbitmq"
)

// Routing keys for workflow events.
const (
	KeySubmissionCreated = "submission.created"
	KeySubmissionRevised = "submission.revised"
	KeyFeedbackCreated   = "feedback.created"
)

// EventPublisher notifies downstream consumers (notification senders,
// analytics) about workflow transitions. Publishing is fire-and-forget from
// the engine's point of view: a failed publish is logged, never bubbled
// into the operation result.
type EventPublisher interface {
	PublishSubmissionEvent(ctx context.Context, routingKey string, event *models.SubmissionEvent) error
	PublishFeedbackEvent(ctx context.Context, event *models.FeedbackEvent) error
	Close() error
}

type eventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   zerolog.Logger
}

func NewEventPublisher(url, exchange string, logger zerolog.Logger) (EventPublisher, error) {
	conn, err := rabbitmq.NewConnection(url)
	if err != nil {
		return nil, err
	}

	channel, err := rabbitmq.NewChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().
		Str("exchange", exchange).
		Msg("Connected to RabbitMQ")

	return &eventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *eventPublisher) PublishSubmissionEvent(ctx context.Context, routingKey string, event *models.SubmissionEvent) error {
	if err := p.publish(ctx, routingKey, event); err != nil {
		return err
	}

	p.logger.Info().
		Str("submission_id", event.SubmissionID).
		Int("version", event.Version).
		Str("routing_key", routingKey).
		Msg("Submission event published")

	return nil
}

func (p *eventPublisher) PublishFeedbackEvent(ctx context.Context, event *models.FeedbackEvent) error {
	if err := p.publish(ctx, KeyFeedbackCreated, event); err != nil {
		return err
	}

	p.logger.Info().
		Str("feedback_id", event.FeedbackID).
		Str("submission_id", event.SubmissionID).
		Msg("Feedback event published")

	return nil
}

func (p *eventPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		publishCtx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (p *eventPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}
