package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

// Publisher sends inventory events to a topic exchange, routed by event type.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Publish(ctx context.Context, event domain.InventoryEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s for %s: %w", event.Type, event.ProductUID, err)
	}
	return nil
}

// LogPublisher stands in when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event domain.InventoryEvent) error {
	log.Info().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("product_uid", event.ProductUID).
		Int("available", event.QuantityAvailable).
		Int("reserved", event.ReservedQuantity).
		Msg("inventory event")
	return nil
}
