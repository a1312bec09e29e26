package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goto/salt/log"
	"github.com/goto/sieve/core/question"
	"github.com/goto/sieve/core/view"
	"github.com/goto/sieve/pkg/messaging"
	"github.com/goto/sieve/pkg/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// session wires a view.Service to the configured store and broker for the
// lifetime of one command.
type session struct {
	svc      *view.Service
	store    *view.Store
	repo     view.Repository
	registry *view.Registry
	logger   log.Logger
	async    bool

	pending []<-chan error
	closers []func()
}

func newSession(ctx context.Context, cfg *Config, logger log.Logger) (*session, error) {
	s := &session{
		registry: view.NewRegistry(),
		logger:   logger,
		async:    cfg.Store.AsyncWrites,
	}
	if err := question.Register(s.registry); err != nil {
		return nil, fmt.Errorf("register question predicates: %w", err)
	}

	telemetryCfg := cfg.Telemetry
	telemetryCfg.AppVersion = Version
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, shutdownTelemetry)

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	s.closers = append(s.closers, closeRepo)
	s.repo = repo

	s.store = view.NewStore(repo,
		view.WithKey(cfg.Store.Key),
		view.WithRegistry(s.registry),
		view.WithLogger(logger),
	)

	notifier := view.NewNotifier(logger)
	notifier.Subscribe(&changeLogger{logger: logger})
	if cfg.Broker.Enabled {
		if err := s.connectBroker(cfg.Broker, notifier); err != nil {
			s.close()
			return nil, err
		}
	}

	s.svc = view.NewService(view.ServiceDeps{
		Store:    s.store,
		Notifier: notifier,
		Logger:   logger,
	})
	return s, nil
}

func (s *session) connectBroker(cfg BrokerConfig, notifier *view.Notifier) error {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open broker channel: %w", err)
	}
	s.closers = append(s.closers, func() {
		ch.Close()
		conn.Close()
	})

	publisher, err := messaging.NewPublisher(ch, cfg.Prefix, messaging.WithLogger(s.logger))
	if err != nil {
		return err
	}
	notifier.Subscribe(publisher)
	return nil
}

// revisioner is implemented by repositories that version every write.
type revisioner interface {
	Revision(ctx context.Context, key string) (string, error)
}

// revision returns the id of the last write to the configured key, or ""
// when the store does not keep one or nothing was saved yet.
func (s *session) revision(ctx context.Context) string {
	r, ok := s.repo.(revisioner)
	if !ok {
		return ""
	}
	rev, err := r.Revision(ctx, s.store.Key())
	if err != nil {
		if !errors.Is(err, view.ErrNotFound) {
			s.logger.Warn("read view revision", "err", err)
		}
		return ""
	}
	return rev
}

// persist saves the active criteria, in the background when async writes
// are configured.
func (s *session) persist(ctx context.Context) error {
	if s.async {
		s.pending = append(s.pending, s.store.SaveAsync(s.svc.Snapshot()))
		return nil
	}
	return s.svc.Persist(ctx)
}

func (s *session) save(ctx context.Context, cfg view.Configuration) error {
	if s.async {
		s.pending = append(s.pending, s.store.SaveAsync(cfg))
		return nil
	}
	return s.store.Save(ctx, cfg)
}

// close drains pending writes and releases the store and broker.
func (s *session) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	for _, errc := range s.pending {
		if err := <-errc; err != nil {
			s.logger.Error("background save failed", "err", err)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// changeLogger writes every change event to the log.
type changeLogger struct {
	logger log.Logger
}

func (l *changeLogger) OnSortingChanged(e view.SortingChanged) {
	l.log(e, "from", e.Old().String(), "to", e.New().String())
}

func (l *changeLogger) OnFilterChanged(e view.FilterChanged) {
	l.log(e, "text", e.New().Text())
}

func (l *changeLogger) log(e view.Event, kv ...interface{}) {
	changes, err := e.Changelog()
	if err != nil {
		l.logger.Warn("diff view change", "event", e.ID().String(), "err", err)
		return
	}
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, strings.Join(c.Path, "."))
	}
	kv = append([]interface{}{"event", e.ID().String(), "changed", strings.Join(paths, ",")}, kv...)
	l.logger.Debug(string(e.Kind()), kv...)
}
