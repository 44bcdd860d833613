package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"video-library/config"
	"video-library/dto"
)

type Publisher interface {
	Publish(ctx context.Context, event dto.VideoEvent) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ

	mu       sync.Mutex
	ch       *amqp.Channel
	declared bool
}

// Publish sends event to the lifecycle exchange, routed by its type.
func (p *publisher) Publish(ctx context.Context, event dto.VideoEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.cfg.ExchangeName, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		// Drop the channel so the next publish reopens it.
		_ = p.ch.Close()
		p.ch = nil
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("event", string(event.Type)).Str("video_id", event.VideoID.String()).Msg("published event")
	return nil
}

func (p *publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if !p.declared {
		if err := ch.ExchangeDeclare(p.cfg.ExchangeName, p.cfg.Kind, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, err
		}
		p.declared = true
	}
	p.ch = ch
	return ch, nil
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) Publisher {
	return &publisher{
		conn: conn,
		cfg:  cfg,
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, event dto.VideoEvent) error {
	zerolog.Ctx(ctx).Debug().Str("event", string(event.Type)).Msg("queue disabled, event not published")
	return nil
}

// NewNoopPublisher returns a Publisher for deployments without a broker.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}
