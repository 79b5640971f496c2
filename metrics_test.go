package servreg

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSetup struct{ err error }

func (s *countingSetup) Setup(context.Context) error { return s.err }

type failingDisposable struct{}

func (failingDisposable) Close() error { return errors.New("boom") }

// mapContainer resolves from a fixed map and never scopes.
type mapContainer map[reflect.Type]any

func (m mapContainer) Resolve(t reflect.Type) (any, error) {
	if v, ok := m[t]; ok {
		return v, nil
	}
	return nil, ErrServiceNotFound
}

func (m mapContainer) TryAdd(Binding) bool { return false }

func (m mapContainer) CreateScope(context.Context) (Scope, error) { return nil, errors.New("no scopes") }

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	setupType := reflect.TypeFor[*countingSetup]()
	missingType := reflect.TypeFor[*struct{ missing bool }]()
	disposableType := reflect.TypeFor[failingDisposable]()

	c := mapContainer{
		setupType:      &countingSetup{},
		disposableType: failingDisposable{},
	}
	regs := Registries{
		AsyncSetup:  []reflect.Type{missingType, setupType},
		Disposables: []reflect.Type{disposableType, missingType},
	}

	o, err := NewOrchestrator(c, nil, regs, DefaultSetupOptions(), WithMetrics(m))
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state))

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.setups.WithLabelValues("AsyncSetup", outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.setups.WithLabelValues("AsyncSetup", outcomeSkipped)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.setupDuration))

	require.NoError(t, o.Stop(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.state))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disposals.WithLabelValues("sync", outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disposals.WithLabelValues("sync", outcomeSkipped)))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordSetup(RoleAsyncSetup, outcomeOK)
		m.observeSetup(RoleAsyncSetup, 0)
		m.recordDisposal(true, outcomeOK)
		m.setState(StateStarted)
	})
}

func TestMetrics_DispatchedSetups(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	setupType := reflect.TypeFor[*countingSetup]()

	opts := DefaultSetupOptions()
	opts.FireAndForgetSetups = true
	o, err := NewOrchestrator(mapContainer{setupType: &countingSetup{}}, nil,
		Registries{AsyncSetup: []reflect.Type{setupType}}, opts, WithMetrics(m))
	require.NoError(t, err)

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.setups.WithLabelValues("AsyncSetup", outcomeDispatched)))
}
