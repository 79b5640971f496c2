package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/junioryono/servreg"
)

// The demo host registers one component per role.

// Store is a key/value store shared by the demo components.
type Store interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// memoryStore is the Singleton Store. It is closed on shutdown.
type memoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	logger *slog.Logger
}

func (s *memoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memoryStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *memoryStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.logger.Info("store closed", "keys", len(s.data))
	return nil
}

// migrator writes the schema version when the host starts.
type migrator struct {
	store  Store
	logger *slog.Logger
}

func (m *migrator) Setup(ctx context.Context) error {
	m.store.Put("schema", "v1")
	m.logger.Info("schema migrated", "version", "v1")
	return nil
}

// cacheWarmer fills the store from a scope of its own.
type cacheWarmer struct {
	logger *slog.Logger
}

func (w *cacheWarmer) Setup(ctx context.Context, r servreg.Resolver) error {
	store, err := servreg.Resolve[Store](r)
	if err != nil {
		return err
	}
	uow, err := servreg.Resolve[*unitOfWork](r)
	if err != nil {
		return err
	}
	req, err := servreg.Resolve[*requestID](r)
	if err != nil {
		return err
	}

	store.Put("warmed-by", req.value)
	uow.touched++
	w.logger.Info("cache warmed", "request", req.value, "unit_of_work", uow.id)
	return nil
}

// heartbeat logs on an interval while the host runs.
type heartbeat struct {
	interval time.Duration
	logger   *slog.Logger

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (h *heartbeat) Start() {
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case t := <-ticker.C:
				h.logger.Info("heartbeat", "at", t.Format(time.RFC3339))
			}
		}
	}()
}

func (h *heartbeat) Close() error {
	h.once.Do(func() {
		close(h.stop)
	})
	select {
	case <-h.done:
	case <-time.After(h.interval):
	}
	h.logger.Info("heartbeat stopped")
	return nil
}

// requestID is a Transient value, new on every resolution.
type requestID struct {
	value string
}

// unitOfWork is Scoped and shut down when its scope closes.
type unitOfWork struct {
	id      string
	touched int
	logger  *slog.Logger
}

func (u *unitOfWork) Shutdown(ctx context.Context) error {
	u.logger.Info("unit of work committed", "id", u.id, "changes", u.touched)
	return nil
}

// demoCatalog lists the demo components.
func demoCatalog(logger *slog.Logger, interval time.Duration) (*servreg.Catalog, error) {
	defs := make([]*servreg.Definition, 0, 6)
	add := func(def *servreg.Definition, err error) error {
		if err != nil {
			return err
		}
		defs = append(defs, def)
		return nil
	}

	errs := []error{
		add(servreg.Define(func(servreg.Resolver) (*memoryStore, error) {
			return &memoryStore{data: make(map[string]string), logger: logger}, nil
		}, servreg.As(new(Store)), servreg.AsSingleton())),

		add(servreg.Define(func(r servreg.Resolver) (*migrator, error) {
			store, err := servreg.Resolve[Store](r)
			if err != nil {
				return nil, err
			}
			return &migrator{store: store, logger: logger}, nil
		})),

		add(servreg.Define(func(servreg.Resolver) (*cacheWarmer, error) {
			return &cacheWarmer{logger: logger}, nil
		})),

		add(servreg.Define(func(servreg.Resolver) (*heartbeat, error) {
			return &heartbeat{
				interval: interval,
				logger:   logger,
				stop:     make(chan struct{}),
				done:     make(chan struct{}),
			}, nil
		})),

		add(servreg.Define(func(servreg.Resolver) (*requestID, error) {
			return &requestID{value: uuid.NewString()}, nil
		}, servreg.AsTransient())),

		add(servreg.Define(func(servreg.Resolver) (*unitOfWork, error) {
			return &unitOfWork{id: uuid.NewString(), logger: logger}, nil
		}, servreg.AsScoped())),
	}

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("demo catalog: %w", err)
		}
	}

	return servreg.NewCatalog(defs...), nil
}
