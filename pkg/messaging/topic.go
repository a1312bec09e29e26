package messaging

import (
	"context"
	"fmt"

	"github.com/goto/sieve/core/view"
	amqp "github.com/rabbitmq/amqp091-go"
)

type ChangeTopic string

const (
	SortingChanged ChangeTopic = ChangeTopic(view.KindSortingChanged)
	FilterChanged  ChangeTopic = ChangeTopic(view.KindFilterChanged)
)

// Topics lists every topic a Publisher writes to.
var Topics = []ChangeTopic{SortingChanged, FilterChanged}

// Channel is the part of *amqp.Channel used to declare and publish.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ConsumeChannel is the part of *amqp.Channel used by Listen.
type ConsumeChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// DefineTopic declares the durable topic exchange for topic.
func DefineTopic(ch Channel, prefix string, topic ChangeTopic) error {
	name := ExchangeName(prefix, topic)
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-delete
		false,   // internal
		false,   // noWait
		nil,     // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

func ExchangeName(prefix string, topic ChangeTopic) string {
	if prefix == "" {
		return string(topic)
	}
	return fmt.Sprintf("%s_%s", prefix, topic)
}
