package view_test

import (
	"sync"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sieve/core/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name string
	mu   *sync.Mutex
	log  *[]string
}

func (r *recorder) OnSortingChanged(e view.SortingChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, r.name+":"+e.New().String())
}

func (r *recorder) OnFilterChanged(e view.FilterChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, r.name+":filter:"+e.New().Text())
}

func sortEvent(field view.SortField, d view.Direction) view.SortingChanged {
	return view.NewSortingChanged(fixedClock(t0), view.SortCriteria{}, mustSort(view.NewSortCriteria(field, d)))
}

func TestNotifier_DeliversInRegistrationOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	a := &recorder{name: "A", mu: &mu, log: &got}
	b := &recorder{name: "B", mu: &mu, log: &got}

	n := view.NewNotifier(log.NewNoop())
	n.Subscribe(a)
	n.Subscribe(b)

	n.Publish(sortEvent(view.SortByTitle, view.Descending))
	n.Publish(view.NewFilterChanged(fixedClock(t0), view.NewFilterCriteria(), view.NewFilterCriteria(view.WithText("q"))))

	assert.Equal(t, []string{"A:title desc", "B:title desc", "A:filter:q", "B:filter:q"}, got)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	a := &recorder{name: "A", mu: &mu, log: &got}
	b := &recorder{name: "B", mu: &mu, log: &got}

	n := view.NewNotifier(nil)
	n.Subscribe(a)
	n.Subscribe(b)
	n.Subscribe(a)
	require.Equal(t, 3, n.Len())

	n.Publish(sortEvent(view.SortByTitle, view.Ascending))
	assert.Equal(t, []string{"A:title asc", "B:title asc", "A:title asc"}, got)

	n.Unsubscribe(a)
	assert.Equal(t, 1, n.Len())
	n.Unsubscribe(a)
	n.Unsubscribe(nil)
	assert.Equal(t, 1, n.Len())

	got = got[:0]
	n.Publish(sortEvent(view.SortByCreatedAt, view.Ascending))
	assert.Equal(t, []string{"B:created_at asc"}, got)
}

func TestNotifier_PanickingObserverDoesNotStopDelivery(t *testing.T) {
	var delivered []view.EventKind
	n := view.NewNotifier(log.NewNoop())
	n.Subscribe(&view.ObserverFuncs{
		Sorting: func(view.SortingChanged) { panic("observer failure") },
	})
	n.Subscribe(&view.ObserverFuncs{
		Sorting: func(e view.SortingChanged) { delivered = append(delivered, e.Kind()) },
	})

	assert.NotPanics(t, func() {
		n.Publish(sortEvent(view.SortByTitle, view.Descending))
	})
	assert.Equal(t, []view.EventKind{view.KindSortingChanged}, delivered)
}

func TestNotifier_ObserverMaySubscribeDuringDelivery(t *testing.T) {
	n := view.NewNotifier(log.NewNoop())
	var late int
	lateObserver := &view.ObserverFuncs{Sorting: func(view.SortingChanged) { late++ }}
	n.Subscribe(&view.ObserverFuncs{
		Sorting: func(view.SortingChanged) { n.Subscribe(lateObserver) },
	})

	n.Publish(sortEvent(view.SortByTitle, view.Ascending))
	assert.Equal(t, 0, late)
	n.Publish(sortEvent(view.SortByTitle, view.Ascending))
	assert.Equal(t, 1, late)
}

func TestNotifier_PublishFromObserverIsQueued(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	n := view.NewNotifier(log.NewNoop())
	follow := view.NewFilterChanged(fixedClock(t0), view.NewFilterCriteria(), view.NewFilterCriteria(view.WithText("next")))
	n.Subscribe(&view.ObserverFuncs{
		Sorting: func(e view.SortingChanged) {
			mu.Lock()
			got = append(got, "A:"+e.New().String())
			mu.Unlock()
			n.Publish(follow)
		},
		Filter: func(e view.FilterChanged) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, "A:filter:"+e.New().Text())
		},
	})
	n.Subscribe(&recorder{name: "B", mu: &mu, log: &got})

	done := make(chan struct{})
	go func() {
		defer close(done)
		n.Publish(sortEvent(view.SortByTitle, view.Descending))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish did not return")
	}

	assert.Equal(t, []string{"A:title desc", "B:title desc", "A:filter:next", "B:filter:next"}, got)
}

func TestNotifier_ConcurrentPublishDoesNotInterleave(t *testing.T) {
	const publishers = 8
	var (
		mu  sync.Mutex
		got []string
	)
	a := &recorder{name: "A", mu: &mu, log: &got}
	b := &recorder{name: "B", mu: &mu, log: &got}

	n := view.NewNotifier(log.NewNoop())
	n.Subscribe(a)
	n.Subscribe(b)

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := view.Ascending
			if i%2 == 1 {
				d = view.Descending
			}
			n.Publish(sortEvent(view.SortByTitle, d))
		}(i)
	}
	wg.Wait()

	require.Len(t, got, 2*publishers)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, "A:"+got[i][2:], got[i])
		assert.Equal(t, "B:"+got[i][2:], got[i+1])
	}
}
