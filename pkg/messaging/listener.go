package messaging

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/goto/salt/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded change message. Returning an error rejects
// the delivery without requeueing it.
type Handler func(ctx context.Context, msg ChangeMessage) error

// Listen binds an exclusive queue to the exchange of topic and hands every
// delivery to handle until ctx is done or the delivery channel closes. The
// returned channel is closed when the consumer goroutine exits.
func Listen(ctx context.Context, ch ConsumeChannel, prefix string, topic ChangeTopic, handle Handler, logger log.Logger) (<-chan struct{}, error) {
	if logger == nil {
		logger = log.NewNoop()
	}

	deliveries, err := declareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				consume(ctx, d, handle, logger)
			}
		}
	}()
	return done, nil
}

func consume(ctx context.Context, d amqp.Delivery, handle Handler, logger log.Logger) {
	var msg ChangeMessage
	if err := sonic.Unmarshal(d.Body, &msg); err != nil {
		logger.Warn("discard malformed change message", "message_id", d.MessageId, "err", err)
		if err := d.Reject(false); err != nil {
			logger.Error("reject change message", "message_id", d.MessageId, "err", err)
		}
		return
	}

	if err := handle(ctx, msg); err != nil {
		logger.Warn("change message handler failed", "event", msg.ID, "err", err)
		if err := d.Nack(false, false); err != nil {
			logger.Error("nack change message", "event", msg.ID, "err", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Error("ack change message", "event", msg.ID, "err", err)
	}
}

func declareBindAndConsume(ch ConsumeChannel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := ExchangeName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue for %s: %w", name, err)
	}
	if err := ch.QueueBind(q.Name, name, name, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue to %s: %w", name, err)
	}
	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", name, err)
	}
	return deliveries, nil
}
