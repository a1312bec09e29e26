package view

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/goto/salt/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Notifier delivers change events to observers synchronously, in
// registration order. Events are delivered one at a time, so each event
// reaches every observer before the next one starts.
type Notifier struct {
	mu        sync.RWMutex
	observers []Observer

	queueMu  sync.Mutex
	pending  []Event
	draining bool

	logger    log.Logger
	published metric.Int64Counter
}

func NewNotifier(logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.NewNoop()
	}
	published, err := otel.Meter("github.com/goto/sieve/core/view").
		Int64Counter("sieve.view.notifier.published")
	if err != nil {
		otel.Handle(err)
	}
	return &Notifier{
		logger:    logger,
		published: published,
	}
}

// Subscribe registers o for future events. Subscribing twice delivers twice.
func (n *Notifier) Subscribe(o Observer) {
	if o == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	observers := make([]Observer, len(n.observers), len(n.observers)+1)
	copy(observers, n.observers)
	n.observers = append(observers, o)
}

// Unsubscribe removes every registration of o. It is a no-op when o is not
// registered.
func (n *Notifier) Unsubscribe(o Observer) {
	if o == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	observers := make([]Observer, 0, len(n.observers))
	for _, cur := range n.observers {
		if sameObserver(cur, o) {
			continue
		}
		observers = append(observers, cur)
	}
	n.observers = observers
}

// Len returns the number of registrations.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Publish hands e to every observer registered when its delivery starts.
// When no other event is being delivered, Publish returns once all observers
// ran. Otherwise, and always when called from inside an observer, e is queued
// and the call already delivering hands it out after the current event,
// before that call returns.
func (n *Notifier) Publish(e Event) {
	if e == nil {
		return
	}
	n.enqueue(e)
	n.drain()
}

func (n *Notifier) enqueue(e Event) {
	n.queueMu.Lock()
	defer n.queueMu.Unlock()
	n.pending = append(n.pending, e)
}

// drain delivers queued events until none are left. Only one caller drains at
// a time; the others return at once.
func (n *Notifier) drain() {
	n.queueMu.Lock()
	if n.draining {
		n.queueMu.Unlock()
		return
	}
	n.draining = true
	for len(n.pending) > 0 {
		e := n.pending[0]
		n.pending[0] = nil
		n.pending = n.pending[1:]
		n.queueMu.Unlock()

		n.deliverAll(e)

		n.queueMu.Lock()
	}
	n.pending = nil
	n.draining = false
	n.queueMu.Unlock()
}

func (n *Notifier) deliverAll(e Event) {
	n.mu.RLock()
	observers := n.observers
	n.mu.RUnlock()

	for _, o := range observers {
		n.deliver(o, e)
	}

	if n.published != nil {
		n.published.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("sieve.event_kind", string(e.Kind())),
		))
	}
}

func (n *Notifier) deliver(o Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("view observer panicked",
				"event", e.ID().String(), "kind", string(e.Kind()), "panic", fmt.Sprint(r))
		}
	}()

	switch ev := e.(type) {
	case SortingChanged:
		o.OnSortingChanged(ev)
	case FilterChanged:
		o.OnFilterChanged(ev)
	}
}

func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
