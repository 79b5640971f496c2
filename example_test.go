package servreg_test

import (
	"context"
	"fmt"
	"log"

	"github.com/junioryono/servreg"
	"github.com/junioryono/servreg/container"
	"github.com/junioryono/servreg/hosting"
)

type schemaMigrator struct{}

func (m *schemaMigrator) Setup(context.Context) error {
	fmt.Println("schema migrated")
	return nil
}

func (m *schemaMigrator) Close() error {
	fmt.Println("migrator closed")
	return nil
}

type ticker struct{}

func (t *ticker) Start() { fmt.Println("ticker started") }

func (t *ticker) Close() error {
	fmt.Println("ticker stopped")
	return nil
}

// Example registers every discovered component and runs one host lifecycle.
func Example() {
	c := container.New()
	defer c.Close()

	lt := hosting.NewLifetime()

	orch, err := servreg.AddAllServicesFrom(c, lt, true,
		servreg.MustDefine(func(servreg.Resolver) (*schemaMigrator, error) { return &schemaMigrator{}, nil }),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		log.Fatal(err)
	}
	_ = orch.Stop(ctx)
	// Output:
	// schema migrated
	// migrator closed
}

// ExampleConfigure wires a LifetimeHosted component to the host notifications.
func ExampleConfigure() {
	c := container.New()
	defer c.Close()

	lt := hosting.NewLifetime()

	_, err := servreg.Configure(c, lt, func(b *servreg.Builder) {
		b.UseDefinitions(
			servreg.MustDefine(func(servreg.Resolver) (*ticker, error) { return &ticker{}, nil }),
		).RegisterAllServices()
	})
	if err != nil {
		log.Fatal(err)
	}

	lt.NotifyStarted()
	lt.NotifyStopping()
	// Output:
	// ticker started
	// ticker stopped
}

// ExampleResolve resolves a component registered by the registrar.
func ExampleResolve() {
	c := container.New()
	defer c.Close()

	reg, err := servreg.NewRegistrar(c)
	if err != nil {
		log.Fatal(err)
	}

	def := servreg.MustDefine(func(servreg.Resolver) (*smsNotifier, error) { return &smsNotifier{}, nil },
		servreg.As(new(Notifier)), servreg.AsSingleton())
	if err := reg.Register(servreg.RoleSingleton, servreg.Singleton, []*servreg.Definition{def}); err != nil {
		log.Fatal(err)
	}

	n, err := servreg.Resolve[Notifier](c)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(n.Notify("hello"))
	// Output: sms:hello
}
