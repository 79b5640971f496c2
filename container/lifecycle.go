package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/junioryono/servreg"
)

// lifecycle tracks the disposable instances a resolution context created.
type lifecycle struct {
	mu        sync.Mutex
	instances []any
}

// track records instance if it can be disposed.
func (l *lifecycle) track(instance any) {
	switch instance.(type) {
	case servreg.AsyncDisposable, servreg.Disposable:
	default:
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.instances = append(l.instances, instance)
}

func (l *lifecycle) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.instances)
}

// dispose disposes the tracked instances in reverse creation order.
// An instance with both capabilities is shut down asynchronously only.
func (l *lifecycle) dispose(ctx context.Context) error {
	l.mu.Lock()
	instances := l.instances
	l.instances = nil
	l.mu.Unlock()

	var errs []error
	for i := len(instances) - 1; i >= 0; i-- {
		var err error
		switch d := instances[i].(type) {
		case servreg.AsyncDisposable:
			err = d.Shutdown(ctx)
		case servreg.Disposable:
			err = d.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("dispose %T: %w", instances[i], err))
		}
	}

	return errors.Join(errs...)
}
