package servreg

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of an Orchestrator.
type State int32

const (
	// StateConstructed is the state before Start.
	StateConstructed State = iota

	// StateStarted is the state after Start.
	StateStarted

	// StateStopped is the terminal state after Stop.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateStarted:
		return "Started"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Orchestrator drives the startup and shutdown phases of the components
// recorded by a Registrar. One orchestrator serves one host run.
//
// Start runs the setup routines of AsyncSetup and AsyncSetupWithResolver
// components. Stop disposes every recorded disposable singleton, suppressing
// failures so one component cannot block the others. LifetimeHosted
// components are wired to the host notifications at construction.
type Orchestrator struct {
	container Container
	regs      Registries
	options   SetupOptions

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	tp      trace.TracerProvider

	state atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracerProvider sets the tracer provider spans are created from.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tp = tp
	}
}

// NewOrchestrator creates an orchestrator over regs resolving from c.
//
// When host is not nil, every LifetimeHosted contract is resolved now and its
// Start and Close are subscribed to the host's started and stopping
// notifications. A LifetimeHosted contract that cannot be resolved is a
// ConfigurationError.
func NewOrchestrator(c Container, host Host, regs Registries, opts SetupOptions, options ...Option) (*Orchestrator, error) {
	if c == nil {
		return nil, ErrContainerNil
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		container: c,
		regs:      regs.clone(),
		options:   opts,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	o.tracer = newTracer(o.tp)
	o.metrics.setState(StateConstructed)

	if err := o.wireLifetimeHosted(host); err != nil {
		return nil, err
	}

	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Options returns the setup options the orchestrator runs with.
func (o *Orchestrator) Options() SetupOptions {
	return o.options
}

// Registries returns a copy of the registries the orchestrator consumes.
func (o *Orchestrator) Registries() Registries {
	return o.regs.clone()
}

func (o *Orchestrator) wireLifetimeHosted(host Host) error {
	if host == nil || len(o.regs.LifetimeHosted) == 0 {
		return nil
	}

	for _, contract := range o.regs.LifetimeHosted {
		instance, err := o.container.Resolve(contract)
		if err != nil {
			return ConfigurationError{Contract: contract, Role: RoleLifetimeHosted, Cause: err}
		}

		svc, ok := instance.(LifetimeHosted)
		if !ok {
			return ConfigurationError{
				Contract: contract,
				Role:     RoleLifetimeHosted,
				Cause:    TypeMismatchError{Expected: lifetimeHostedType, Actual: reflect.TypeOf(instance)},
			}
		}

		host.OnStopping(func() {
			if err := o.closeHosted(contract, svc); err != nil {
				o.logger.Warn("failed to close lifetime-hosted service", "contract", contract, "error", err)
			}
		})
		host.OnStarted(func() {
			o.startHosted(contract, svc)
		})
	}

	return nil
}

func (o *Orchestrator) startHosted(contract reflect.Type, svc LifetimeHosted) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("lifetime-hosted service panicked on start", "contract", contract, "panic", r)
		}
	}()
	svc.Start()
}

func (o *Orchestrator) closeHosted(contract reflect.Type, svc LifetimeHosted) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = DisposalError{Contract: contract, Cause: fmt.Errorf("%w: %v", ErrDisposalPanicked, r)}
		}
	}()
	return svc.Close()
}

// Start runs the startup phase. It is called once, when the host starts;
// later calls return nil without doing anything.
//
// Both setup procedures walk their registry in registration order and stop
// early, without error, once ctx is cancelled. In awaited mode a setup failure
// is returned and halts its procedure. In fire-and-forget mode Start returns
// without waiting for the dispatched setups and their failures are only logged.
func (o *Orchestrator) Start(ctx context.Context) (err error) {
	if !o.state.CompareAndSwap(int32(StateConstructed), int32(StateStarted)) {
		o.logger.Debug("orchestrator already started", "state", o.State())
		return nil
	}
	o.metrics.setState(StateStarted)

	if !o.options.TriggersSetupOnStartup {
		return nil
	}

	order := o.options.Order()
	ctx, span := startSpan(ctx, o.tracer, SpanStart,
		attribute.String(AttrOrder, order.String()),
		attribute.Bool(AttrFireAndForget, o.options.FireAndForgetSetups),
	)
	defer func() { endSpan(span, err) }()

	switch order {
	case OrderResolverFirst:
		if err := o.setupResolverAware(ctx); err != nil {
			return err
		}
		return o.setupPlain(ctx)

	case OrderPlainFirst:
		if err := o.setupPlain(ctx); err != nil {
			return err
		}
		return o.setupResolverAware(ctx)

	default:
		var g errgroup.Group
		g.Go(func() error { return o.setupResolverAware(ctx) })
		g.Go(func() error { return o.setupPlain(ctx) })
		return g.Wait()
	}
}

// setupResolverAware runs every AsyncSetupWithResolver component with a
// resolver bound to a scope of its own. An entry missing from the container
// is a ConfigurationError.
func (o *Orchestrator) setupResolverAware(ctx context.Context) error {
	for _, contract := range o.regs.AsyncSetupWithResolver {
		if ctx.Err() != nil {
			o.logger.Debug("setup cancelled", "role", RoleAsyncSetupWithResolver, "error", ctx.Err())
			return nil
		}

		instance, err := o.container.Resolve(contract)
		if err != nil {
			if IsNotFound(err) {
				return ConfigurationError{Contract: contract, Role: RoleAsyncSetupWithResolver, Cause: err}
			}
			return SetupError{Contract: contract, Role: RoleAsyncSetupWithResolver, Cause: err}
		}

		svc, ok := instance.(AsyncSetupWithResolver)
		if !ok {
			return ConfigurationError{
				Contract: contract,
				Role:     RoleAsyncSetupWithResolver,
				Cause:    TypeMismatchError{Expected: asyncSetupWithResolverType, Actual: reflect.TypeOf(instance)},
			}
		}

		scope, err := o.container.CreateScope(ctx)
		if err != nil {
			return SetupError{Contract: contract, Role: RoleAsyncSetupWithResolver, Cause: err}
		}

		release := func() {
			if err := scope.Close(); err != nil {
				o.logger.Warn("failed to close setup scope", "contract", contract, "error", err)
			}
		}

		call := func(ctx context.Context) error { return svc.Setup(ctx, scope) }
		if err := o.invoke(ctx, RoleAsyncSetupWithResolver, contract, call, release); err != nil {
			return err
		}
	}

	return nil
}

// setupPlain runs every AsyncSetup component. Entries missing from the
// container are skipped.
func (o *Orchestrator) setupPlain(ctx context.Context) error {
	for _, contract := range o.regs.AsyncSetup {
		if ctx.Err() != nil {
			o.logger.Debug("setup cancelled", "role", RoleAsyncSetup, "error", ctx.Err())
			return nil
		}

		instance, err := o.container.Resolve(contract)
		if err != nil {
			if IsNotFound(err) {
				o.logger.Debug("skipping unregistered setup", "contract", contract)
				o.metrics.recordSetup(RoleAsyncSetup, outcomeSkipped)
				continue
			}
			return SetupError{Contract: contract, Role: RoleAsyncSetup, Cause: err}
		}

		svc, ok := instance.(AsyncSetup)
		if !ok {
			return SetupError{
				Contract: contract,
				Role:     RoleAsyncSetup,
				Cause:    TypeMismatchError{Expected: asyncSetupType, Actual: reflect.TypeOf(instance)},
			}
		}

		if err := o.invoke(ctx, RoleAsyncSetup, contract, svc.Setup, nil); err != nil {
			return err
		}
	}

	return nil
}

// invoke runs one setup call, awaiting it or detaching it depending on the
// options. release, when set, runs after the call completes.
func (o *Orchestrator) invoke(ctx context.Context, role Role, contract reflect.Type, call func(context.Context) error, release func()) error {
	if o.options.FireAndForgetSetups {
		o.metrics.recordSetup(role, outcomeDispatched)

		// The detached call outlives Start, so it must not inherit its cancellation.
		detached := context.WithoutCancel(ctx)
		go func() {
			if release != nil {
				defer release()
			}
			if err := o.run(detached, role, contract, call); err != nil {
				o.logger.Warn("fire-and-forget setup failed", "contract", contract, "role", role, "error", err)
			}
		}()
		return nil
	}

	if release != nil {
		defer release()
	}

	start := time.Now()
	err := o.run(ctx, role, contract, call)
	o.metrics.observeSetup(role, time.Since(start))

	if err != nil {
		o.metrics.recordSetup(role, outcomeError)
		return err
	}

	o.metrics.recordSetup(role, outcomeOK)
	return nil
}

// run calls a setup inside a span, turning failures and panics into a SetupError.
func (o *Orchestrator) run(ctx context.Context, role Role, contract reflect.Type, call func(context.Context) error) (err error) {
	ctx, span := startSpan(ctx, o.tracer, SpanSetup, contractAttr(contract), roleAttr(role))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSetupPanicked, r)
		}
		if err != nil {
			err = SetupError{Contract: contract, Role: role, Cause: err}
		}
		endSpan(span, err)
	}()

	return call(ctx)
}

// Stop runs the shutdown phase: asynchronous and synchronous disposables are
// disposed by two concurrent procedures, each in registration order. Failures
// are logged and suppressed, so Stop always returns nil. Calling Stop again
// repeats the disposal attempts.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.state.Store(int32(StateStopped))
	o.metrics.setState(StateStopped)

	ctx, span := startSpan(ctx, o.tracer, SpanStop)
	defer span.End()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.disposeAll(ctx, o.regs.AsyncDisposables, true)
	}()
	go func() {
		defer wg.Done()
		o.disposeAll(ctx, o.regs.Disposables, false)
	}()
	wg.Wait()

	return nil
}

func (o *Orchestrator) disposeAll(ctx context.Context, contracts []reflect.Type, async bool) {
	for _, contract := range contracts {
		if ctx.Err() != nil {
			o.logger.Debug("disposal cancelled", "async", async, "error", ctx.Err())
			return
		}

		instance, err := o.container.Resolve(contract)
		if err != nil {
			o.logger.Debug("skipping unresolvable disposable", "contract", contract, "error", err)
			o.metrics.recordDisposal(async, outcomeSkipped)
			continue
		}

		if err := o.dispose(ctx, contract, instance, async); err != nil {
			o.logger.Warn("disposal failed", "contract", contract, "error", err)
			o.metrics.recordDisposal(async, outcomeError)
			continue
		}

		o.metrics.recordDisposal(async, outcomeOK)
	}
}

func (o *Orchestrator) dispose(ctx context.Context, contract reflect.Type, instance any, async bool) (err error) {
	kind := "sync"
	if async {
		kind = "async"
	}

	ctx, span := startSpan(ctx, o.tracer, SpanDispose, contractAttr(contract), attribute.String(AttrDisposalKind, kind))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDisposalPanicked, r)
		}
		if err != nil {
			err = DisposalError{Contract: contract, Async: async, Cause: err}
		}
		endSpan(span, err)
	}()

	if async {
		d, ok := instance.(AsyncDisposable)
		if !ok {
			return TypeMismatchError{Expected: asyncDisposableType, Actual: reflect.TypeOf(instance)}
		}
		return d.Shutdown(ctx)
	}

	d, ok := instance.(Disposable)
	if !ok {
		return TypeMismatchError{Expected: disposableType, Actual: reflect.TypeOf(instance)}
	}
	return d.Close()
}
