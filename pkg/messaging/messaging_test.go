package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goto/salt/log"
	"github.com/goto/sieve/core/view"
	"github.com/goto/sieve/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func clock() view.Clock {
	return view.ClockFunc(func() time.Time { return at })
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	published  []published
	publishErr error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, name+"/"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p, err := messaging.NewPublisher(ch, "quiz", messaging.WithLogger(log.NewNoop()))
	require.NoError(t, err)
	assert.Equal(t, []string{"quiz_sorting_changed/topic", "quiz_filter_changed/topic"}, ch.exchanges)

	n := view.NewNotifier(log.NewNoop())
	n.Subscribe(p)

	newSort, err := view.NewSortCriteria(view.SortByCreatedAt, view.Descending)
	require.NoError(t, err)
	sortEvent := view.NewSortingChanged(clock(), view.SortCriteria{}, newSort)
	n.Publish(sortEvent)
	n.Publish(view.NewFilterChanged(clock(), view.NewFilterCriteria(), view.NewFilterCriteria(view.WithText("capital"))))

	require.Len(t, ch.published, 2)
	first := ch.published[0]
	assert.Equal(t, "quiz_sorting_changed", first.exchange)
	assert.Equal(t, "quiz_sorting_changed", first.key)
	assert.Equal(t, "application/json", first.msg.ContentType)
	assert.NotEmpty(t, first.msg.MessageId)
	assert.Equal(t, string(view.KindSortingChanged), first.msg.Type)

	var msg messaging.ChangeMessage
	require.NoError(t, sonic.Unmarshal(first.msg.Body, &msg))
	assert.Equal(t, sortEvent.ID().String(), msg.ID)
	assert.True(t, msg.Timestamp.Equal(at))
	assert.ElementsMatch(t, []string{"update field", "update direction"}, msg.Changes)

	oldState, newState, err := msg.SortStates()
	require.NoError(t, err)
	assert.Equal(t, view.SortState{Field: "title", Direction: "asc"}, oldState)
	assert.Equal(t, view.SortState{Field: "created_at", Direction: "desc"}, newState)
	_, _, err = msg.FilterStates()
	assert.Error(t, err)

	second := ch.published[1]
	assert.Equal(t, "quiz_filter_changed", second.exchange)
	require.NoError(t, sonic.Unmarshal(second.msg.Body, &msg))
	_, filterState, err := msg.FilterStates()
	require.NoError(t, err)
	assert.Equal(t, "capital", filterState.Text)
}

func TestPublisher_FailureIsNotPropagated(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := messaging.NewPublisher(ch, "")
	require.NoError(t, err)

	var after int
	n := view.NewNotifier(log.NewNoop())
	n.Subscribe(p)
	n.Subscribe(&view.ObserverFuncs{Sorting: func(view.SortingChanged) { after++ }})

	assert.NotPanics(t, func() {
		n.Publish(view.NewSortingChanged(clock(), view.SortCriteria{}, view.SortCriteria{}.Toggled()))
	})
	assert.Equal(t, 1, after)
	assert.Empty(t, ch.published)
}

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	return a.Nack(tag, false, false)
}

type fakeConsumeChannel struct {
	deliveries chan amqp.Delivery
	bound      string
}

func (c *fakeConsumeChannel) QueueDeclare(string, bool, bool, bool, bool, amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "amq.gen-test"}, nil
}

func (c *fakeConsumeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	c.bound = name + "->" + exchange
	return nil
}

func (c *fakeConsumeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func TestListen(t *testing.T) {
	event := view.NewFilterChanged(clock(), view.NewFilterCriteria(), view.NewFilterCriteria(view.WithText("q")))
	msg, err := messaging.NewChangeMessage(event)
	require.NoError(t, err)
	body, err := sonic.Marshal(msg)
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	ch := &fakeConsumeChannel{deliveries: make(chan amqp.Delivery, 3)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("not json")}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: body}
	close(ch.deliveries)

	var received []string
	calls := 0
	done, err := messaging.Listen(context.Background(), ch, "quiz", messaging.FilterChanged,
		func(_ context.Context, m messaging.ChangeMessage) error {
			calls++
			if calls == 2 {
				return errors.New("handler failed")
			}
			received = append(received, m.ID)
			return nil
		}, log.NewNoop())
	require.NoError(t, err)
	<-done

	assert.Equal(t, "amq.gen-test->quiz_filter_changed", ch.bound)
	assert.Equal(t, []string{event.ID().String()}, received)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2, 3}, ack.nacked)
}

func TestListen_StopsOnContextCancel(t *testing.T) {
	ch := &fakeConsumeChannel{deliveries: make(chan amqp.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())

	done, err := messaging.Listen(ctx, ch, "quiz", messaging.SortingChanged,
		func(context.Context, messaging.ChangeMessage) error { return nil }, nil)
	require.NoError(t, err)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
