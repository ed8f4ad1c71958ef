package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/inventory-service/internal/core/domain"
)

type StockLedger interface {
	Reserve(ctx context.Context, requestID, productUID string, amount int) error
	Release(ctx context.Context, requestID, productUID string, amount int) error
}

type StockCommand struct {
	RequestID  string `json:"request_id"`
	ProductUID string `json:"product_uid"`
	Amount     int    `json:"amount"`
}

type Disposition int

const (
	Ack Disposition = iota
	Requeue
)

// Consumer applies reserve and release commands from two durable queues.
type Consumer struct {
	ch           *amqp.Channel
	ledger       StockLedger
	reserveQueue string
	releaseQueue string
	prefetch     int
}

func NewConsumer(ch *amqp.Channel, ledger StockLedger, reserveQueue, releaseQueue string, prefetch int) *Consumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &Consumer{
		ch:           ch,
		ledger:       ledger,
		reserveQueue: reserveQueue,
		releaseQueue: releaseQueue,
		prefetch:     prefetch,
	}
}

// Run blocks until ctx is cancelled or the broker closes a delivery channel.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("could not set qos: %w", err)
	}

	reserves, err := c.consume(c.reserveQueue)
	if err != nil {
		return err
	}
	releases, err := c.consume(c.releaseQueue)
	if err != nil {
		return err
	}

	log.Info().Str("reserve_queue", c.reserveQueue).Str("release_queue", c.releaseQueue).Msg("amqp consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-reserves:
			if !ok {
				return fmt.Errorf("queue %s: delivery channel closed", c.reserveQueue)
			}
			settle(d, HandleCommand(ctx, c.ledger.Reserve, "reserve", d.Body))
		case d, ok := <-releases:
			if !ok {
				return fmt.Errorf("queue %s: delivery channel closed", c.releaseQueue)
			}
			settle(d, HandleCommand(ctx, c.ledger.Release, "release", d.Body))
		}
	}
}

func (c *Consumer) consume(queue string) (<-chan amqp.Delivery, error) {
	q, err := c.ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("could not declare queue %s: %w", queue, err)
	}

	msgs, err := c.ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return nil, fmt.Errorf("could not start consume on %s: %w", queue, err)
	}
	return msgs, nil
}

// HandleCommand decodes one command and applies it. Only transient failures,
// which are known not to have been applied, are redelivered; everything else
// is settled for good.
func HandleCommand(ctx context.Context, apply func(context.Context, string, string, int) error, op string, body []byte) Disposition {
	var cmd StockCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		log.Warn().Err(err).Str("op", op).Bytes("body", body).Msg("dropping malformed command")
		return Ack
	}

	err := apply(ctx, cmd.RequestID, cmd.ProductUID, cmd.Amount)
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, domain.ErrTransient):
		log.Error().Err(err).Str("op", op).Str("request_id", cmd.RequestID).Msg("command failed, requeueing")
		return Requeue
	case errors.Is(err, domain.ErrPersistence):
		log.Error().Err(err).Str("op", op).Str("request_id", cmd.RequestID).Str("product_uid", cmd.ProductUID).
			Msg("command failed permanently or with unknown outcome, dropping")
		return Ack
	default:
		log.Warn().Err(err).Str("op", op).Str("request_id", cmd.RequestID).Str("product_uid", cmd.ProductUID).Msg("command rejected")
		return Ack
	}
}

func settle(d amqp.Delivery, disposition Disposition) {
	var err error
	if disposition == Requeue {
		err = d.Nack(false, true)
	} else {
		err = d.Ack(false)
	}
	if err != nil {
		log.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("failed to settle delivery")
	}
}
