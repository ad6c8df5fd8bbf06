package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/config"
	"github.com/ngamolsky/Curbd/pkg/models"
)

type Publisher interface {
	PublishPostGenerated(ctx context.Context, event models.PostGeneratedEvent) error
	Close() error
}

// RabbitPublisher pushes events to a durable queue through the default exchange.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewRabbitPublisher(cfg config.RabbitMQ) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	zap.L().Info("connected to RabbitMQ", zap.String("queue", cfg.Queue))
	return &RabbitPublisher{conn: conn, ch: ch, queue: cfg.Queue}, nil
}

func (p *RabbitPublisher) PublishPostGenerated(ctx context.Context, event models.PostGeneratedEvent) error {
	msg, err := NewPostGeneratedMessage(event)
	if err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish post generated event: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		zap.L().Warn("failed to close RabbitMQ channel", zap.Error(err))
	}
	return p.conn.Close()
}

// NewPostGeneratedMessage builds the persistent JSON message for event.
func NewPostGeneratedMessage(event models.PostGeneratedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         "post.generated",
		Timestamp:    time.Now(),
		Body:         body,
	}
	if event.GenerationID != 0 {
		msg.MessageId = strconv.Itoa(event.GenerationID)
	}
	return msg, nil
}
