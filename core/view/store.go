package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/goto/salt/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const writeQueueSize = 16

// Store keeps the most recently saved Configuration. Reads are served from an
// atomically replaced in-memory snapshot; durable writes are performed in
// call order by a single background writer. A Store without a Repository
// only keeps the in-memory snapshot.
type Store struct {
	repo     Repository
	registry *Registry
	logger   log.Logger
	key      string

	slot   atomic.Pointer[Configuration]
	loadMu sync.Mutex

	queueMu sync.Mutex
	closed  bool
	queue   chan pendingWrite
	wg      sync.WaitGroup

	opCounter metric.Int64Counter
}

type pendingWrite struct {
	ctx  context.Context
	cfg  Configuration
	errc chan error
}

type StoreOption func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithRegistry(r *Registry) StoreOption {
	return func(s *Store) {
		s.registry = r
	}
}

func WithLogger(logger log.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore starts the background writer; Close stops it.
func NewStore(repo Repository, opts ...StoreOption) *Store {
	opCounter, err := otel.Meter("github.com/goto/sieve/core/view").
		Int64Counter("sieve.view.store.operation")
	if err != nil {
		otel.Handle(err)
	}

	s := &Store{
		repo:      repo,
		logger:    log.NewNoop(),
		key:       DefaultKey,
		queue:     make(chan pendingWrite, writeQueueSize),
		opCounter: opCounter,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Store) Key() string { return s.key }

// Load returns the most recently saved configuration. When nothing was saved,
// or the stored value cannot be read, it returns DefaultConfiguration and
// logs the reason.
func (s *Store) Load(ctx context.Context) Configuration {
	if cfg := s.slot.Load(); cfg != nil {
		return *cfg
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if cfg := s.slot.Load(); cfg != nil {
		return *cfg
	}

	cfg, cache := s.fetch(ctx)
	if cache {
		s.slot.CompareAndSwap(nil, &cfg)
		if cur := s.slot.Load(); cur != nil {
			return *cur
		}
	}
	return cfg
}

// fetch reads the durable value. cache is false when the failure may be
// transient and the next Load should retry.
func (s *Store) fetch(ctx context.Context) (cfg Configuration, cache bool) {
	if s.repo == nil {
		return DefaultConfiguration(), true
	}

	blob, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("no stored view configuration, using default", "key", s.key)
			s.instrument(ctx, "load", nil)
			return DefaultConfiguration(), true
		}
		perr := &PersistenceError{Op: "get", Key: s.key, Err: err}
		s.logger.Warn("load view configuration", "err", perr)
		s.instrument(ctx, "load", perr)
		return DefaultConfiguration(), false
	}

	cfg, err = DecodeConfiguration(blob, s.registry)
	if err != nil {
		perr := &PersistenceError{Op: "decode", Key: s.key, Err: err}
		s.logger.Warn("stored view configuration is unreadable, using default", "err", perr)
		s.instrument(ctx, "load", perr)
		return DefaultConfiguration(), true
	}

	s.instrument(ctx, "load", nil)
	return cfg, true
}

// Save replaces the stored configuration and waits for the durable write.
// The in-memory snapshot is replaced before the write, so a failed write
// still leaves this process seeing cfg; the failure is returned as *SaveError.
func (s *Store) Save(ctx context.Context, cfg Configuration) error {
	errc, err := s.enqueue(ctx, cfg)
	if err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveAsync replaces the in-memory snapshot immediately and hands the durable
// write to the background writer. The returned channel yields the write
// result once and is then closed.
func (s *Store) SaveAsync(cfg Configuration) <-chan error {
	errc, err := s.enqueue(context.Background(), cfg)
	if err != nil {
		errc = make(chan error, 1)
		errc <- err
		close(errc)
	}
	return errc
}

func (s *Store) enqueue(ctx context.Context, cfg Configuration) (chan error, error) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	snapshot := cfg
	s.slot.Store(&snapshot)

	errc := make(chan error, 1)
	s.queue <- pendingWrite{ctx: ctx, cfg: cfg, errc: errc}
	return errc, nil
}

func (s *Store) run() {
	defer s.wg.Done()
	for w := range s.queue {
		err := s.persist(w.ctx, w.cfg)
		w.errc <- err
		close(w.errc)
	}
}

func (s *Store) persist(ctx context.Context, cfg Configuration) (err error) {
	if s.repo == nil {
		return nil
	}
	defer func() {
		s.instrument(ctx, "save", err)
	}()

	if err := ctx.Err(); err != nil {
		return &SaveError{Key: s.key, Err: err}
	}

	blob, err := EncodeConfiguration(cfg)
	if err != nil {
		return &SaveError{Key: s.key, Err: err}
	}
	if err := s.repo.Put(ctx, s.key, blob); err != nil {
		s.logger.Error("save view configuration", "key", s.key, "err", err)
		return &SaveError{Key: s.key, Err: err}
	}
	return nil
}

// Close waits for pending writes and stops the background writer. Saving to a
// closed Store returns ErrStoreClosed; Load keeps working.
func (s *Store) Close() error {
	s.queueMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.queueMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Store) instrument(ctx context.Context, op string, err error) {
	if s.opCounter == nil {
		return
	}
	s.opCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sieve.store_operation", op),
		attribute.String("store.key", s.key),
		attribute.Bool("operation.success", err == nil),
	))
}
