package rabbitmq

import (
	"context"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// mailPrefetch caps unacked deliveries per consumer. Mail volume is low and
// every delivery hits an external SMTP server, so a small window is enough
// and keeps a slow server from draining the queue into memory.
const mailPrefetch = 5

// ConsumerMessage consumes queueName until ctx is canceled, handing each
// delivery body to handler. Deliveries are handled one at a time in queue
// order; a handler error nacks with requeue so the broker redelivers.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"

	if err := ch.Qos(mailPrefetch, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := ch.Consume(
		queueName,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				settle(d, handler(d.Body))
			}
		}
	}()
	return nil
}

// settle acks a handled delivery or nacks it back onto the queue.
func settle(d amqp.Delivery, handlerErr error) {
	if handlerErr != nil {
		if err := d.Nack(false, true); err != nil {
			log.Printf("failed to nack message: %v", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Printf("failed to ack message: %v", err)
	}
}
