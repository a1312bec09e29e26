package messaging

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/goto/salt/log"
	"github.com/goto/sieve/core/view"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher forwards view change events to AMQP topic exchanges. It is a
// view.Observer; delivery failures are logged and never reach the notifier.
type Publisher struct {
	ch      Channel
	prefix  string
	logger  log.Logger
	timeout time.Duration
}

type PublisherOption func(*Publisher)

func WithLogger(logger log.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPublisher declares the exchange of every topic on ch.
func NewPublisher(ch Channel, prefix string, opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		ch:      ch,
		prefix:  prefix,
		logger:  log.NewNoop(),
		timeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, topic := range Topics {
		if err := DefineTopic(ch, prefix, topic); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Publisher) OnSortingChanged(e view.SortingChanged) {
	p.publish(SortingChanged, e)
}

func (p *Publisher) OnFilterChanged(e view.FilterChanged) {
	p.publish(FilterChanged, e)
}

func (p *Publisher) publish(topic ChangeTopic, e view.Event) {
	msg, err := NewChangeMessage(e)
	if err != nil {
		p.logger.Error("build change message", "event", e.ID().String(), "err", err)
		return
	}
	body, err := sonic.Marshal(msg)
	if err != nil {
		p.logger.Error("encode change message", "event", msg.ID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	name := ExchangeName(p.prefix, topic)
	if err := p.ch.PublishWithContext(ctx,
		name, // exchange
		name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.NewString(),
			Timestamp:   msg.Timestamp,
			Type:        string(msg.Kind),
			Body:        body,
		},
	); err != nil {
		p.logger.Error("publish change message", "exchange", name, "event", msg.ID, "err", err)
		return
	}
	p.logger.Debug("change message published", "exchange", name, "event", msg.ID)
}
