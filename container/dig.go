package container

import (
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/servreg"
)

var errorType = reflect.TypeFor[error]()

type invoker interface {
	Invoke(function interface{}, opts ...dig.InvokeOption) error
}

type provider interface {
	Provide(constructor interface{}, opts ...dig.ProvideOption) error
}

// provide registers a dig constructor for b.Contract that calls the factory
// with r and hands every created instance to track.
func provide(p provider, b servreg.Binding, r servreg.Resolver, track func(any)) error {
	fnType := reflect.FuncOf(nil, []reflect.Type{b.Contract, errorType}, false)
	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		instance, err := build(b, r)
		if err != nil {
			return []reflect.Value{reflect.Zero(b.Contract), reflect.ValueOf(&err).Elem()}
		}
		track(instance)

		out := reflect.New(b.Contract).Elem()
		out.Set(reflect.ValueOf(instance))
		return []reflect.Value{out, reflect.Zero(errorType)}
	})

	return p.Provide(fn.Interface())
}

// invoke asks dig for the cached instance of t.
func invoke(i invoker, t reflect.Type) (any, error) {
	var instance any
	fnType := reflect.FuncOf([]reflect.Type{t}, nil, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		instance = args[0].Interface()
		return nil
	})

	if err := i.Invoke(fn.Interface()); err != nil {
		return nil, dig.RootCause(err)
	}
	return instance, nil
}

// build runs the factory and checks the instance fits the contract.
func build(b servreg.Binding, r servreg.Resolver) (any, error) {
	instance, err := b.Factory(r)
	if err != nil {
		return nil, err
	}

	v := reflect.ValueOf(instance)
	if !v.IsValid() {
		return nil, ErrNilInstance
	}
	if !v.Type().AssignableTo(b.Contract) {
		return nil, servreg.TypeMismatchError{Expected: b.Contract, Actual: v.Type()}
	}
	return instance, nil
}
