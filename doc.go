// Package servreg registers application components by the capabilities they
// declare and drives their startup and shutdown around the host's lifetime.
//
// # Overview
//
// A component declares roles:
//   - AsyncSetup: Setup(ctx) runs when the host starts
//   - AsyncSetupWithResolver: Setup(ctx, resolver) runs with a resolver bound to a fresh scope
//   - LifetimeHosted: Start runs when the host is ready, Close when it is stopping
//   - Singleton, Transient, Scoped: the lifetime it is registered with
//
// Capability roles and disposal (Disposable, AsyncDisposable) are detected from
// the interfaces a component implements. Lifetime roles are declared explicitly.
//
// # Basic Usage
//
// Describe components, configure registration, start and stop:
//
//	c := container.New()
//	lt := hosting.NewLifetime()
//
//	orch, err := servreg.Configure(c, lt, func(b *servreg.Builder) {
//	    b.UseDefinitions(
//	        servreg.MustDefine(NewMigrator),
//	        servreg.MustDefine(NewRedisCache, servreg.As(new(Cache)), servreg.AsSingleton()),
//	    ).RegisterAllServices()
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := orch.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer orch.Stop(context.Background())
//
// # Contracts
//
// A component is bound to the first interface given with As that is not one of
// the capability or disposal contracts, or to its own type when there is none.
// The first binding registered for a contract wins, so a host can override a
// default by registering its own component first.
//
// # Startup
//
// Start runs the resolver-aware and the plain setups. By default both groups
// run concurrently; ExecuteResolverAwareSetupsFirst and ExecutePlainSetupsFirst
// sequence them. Within a group setups run in registration order, each one
// awaited before the next, unless FireAndForgetSetups is set. A cancelled
// context stops the walk without error.
//
// # Shutdown
//
// Stop disposes every singleton recorded as Disposable or AsyncDisposable.
// Failures are logged and suppressed so one component cannot keep the others
// from being disposed.
//
// # Error Handling
//
//   - ConfigurationError: a resolver-aware setup or lifetime-hosted component is not registered
//   - SetupError: a setup failed or panicked
//   - DisposalError: a disposal failed (logged, never returned)
//   - DefinitionError: a component definition is invalid
//   - OptionsError: lifecycle options are invalid
package servreg
