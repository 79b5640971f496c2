package servreg_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/servreg"
)

type Cache interface {
	Get(key string) string
}

type Warmer interface {
	Warm() error
}

type redisCache struct{}

func (redisCache) Get(string) string { return "" }
func (redisCache) Warm() error       { return nil }
func (redisCache) Close() error      { return nil }

func (redisCache) Setup(context.Context) error { return nil }

func newRedisCache(servreg.Resolver) (*redisCache, error) { return &redisCache{}, nil }

func TestDefine(t *testing.T) {
	t.Run("detects capabilities", func(t *testing.T) {
		def, err := servreg.Define(newRedisCache)
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeFor[*redisCache](), def.Type)
		assert.True(t, def.Roles.Has(servreg.RoleAsyncSetup))
		assert.False(t, def.Roles.Has(servreg.RoleAsyncSetupWithResolver))
		assert.False(t, def.Roles.Has(servreg.RoleLifetimeHosted))
		assert.True(t, def.Disposal.Sync())
		assert.False(t, def.Disposal.Async())

		_, ok := def.Lifetime()
		assert.False(t, ok)
		assert.False(t, def.Abstract())
	})

	t.Run("explicit roles and contracts", func(t *testing.T) {
		def, err := servreg.Define(newRedisCache, servreg.As(new(Cache), new(Warmer)), servreg.AsSingleton())
		require.NoError(t, err)

		assert.Equal(t, []reflect.Type{reflect.TypeFor[Cache](), reflect.TypeFor[Warmer]()}, def.Contracts)
		lifetime, ok := def.Lifetime()
		require.True(t, ok)
		assert.Equal(t, servreg.Singleton, lifetime)
		assert.Equal(t, "*servreg_test.redisCache [AsyncSetup Singleton]", def.String())
	})

	t.Run("without detection", func(t *testing.T) {
		def, err := servreg.Define(newRedisCache, servreg.WithoutDetection(), servreg.AsTransient(),
			servreg.WithDisposal(servreg.DisposeAsync))
		require.NoError(t, err)

		assert.Equal(t, []servreg.Role{servreg.RoleTransient}, def.Roles.Roles())
		assert.True(t, def.Disposal.Async())
		assert.False(t, def.Disposal.Sync())
	})

	t.Run("factory builds instances", func(t *testing.T) {
		def := servreg.MustDefine(newRedisCache)
		instance, err := def.Factory(nil)
		require.NoError(t, err)
		assert.IsType(t, &redisCache{}, instance)
	})

	t.Run("rejects more than one lifetime", func(t *testing.T) {
		_, err := servreg.Define(newRedisCache, servreg.AsSingleton(), servreg.AsScoped())
		assert.ErrorIs(t, err, servreg.ErrMultipleLifetimes)

		var defErr servreg.DefinitionError
		require.ErrorAs(t, err, &defErr)
		assert.Equal(t, reflect.TypeFor[*redisCache](), defErr.Type)
	})

	t.Run("rejects nil factory", func(t *testing.T) {
		_, err := servreg.Define[*redisCache](nil)
		assert.ErrorIs(t, err, servreg.ErrNilFactory)
	})

	t.Run("rejects invalid As", func(t *testing.T) {
		_, err := servreg.Define(newRedisCache, servreg.As(redisCache{}))
		assert.Error(t, err)

		_, err = servreg.Define(newRedisCache, servreg.As(nil))
		assert.Error(t, err)

		_, err = servreg.Define(newRedisCache, servreg.As(new(servreg.AsyncSetupWithResolver)))
		assert.ErrorContains(t, err, "does not implement")
	})

	t.Run("rejects invalid role", func(t *testing.T) {
		_, err := servreg.Define(newRedisCache, servreg.WithRoles(servreg.Role(42)))
		assert.ErrorIs(t, err, servreg.ErrInvalidRole)
	})

	t.Run("interface types are abstract", func(t *testing.T) {
		def := servreg.MustDefine(func(servreg.Resolver) (Cache, error) { return &redisCache{}, nil }, servreg.AsSingleton())
		assert.True(t, def.Abstract())
	})

	t.Run("MustDefine panics", func(t *testing.T) {
		assert.Panics(t, func() {
			servreg.MustDefine(newRedisCache, servreg.AsSingleton(), servreg.AsTransient())
		})
	})
}

func TestDiscover(t *testing.T) {
	setup := servreg.MustDefine(newRedisCache)
	singleton := servreg.MustDefine(newRedisCache, servreg.WithoutDetection(), servreg.AsSingleton())
	abstract := servreg.MustDefine(func(servreg.Resolver) (Cache, error) { return nil, nil }, servreg.WithRoles(servreg.RoleAsyncSetup))
	second := fixed(&setupA{&plainSetup{}})

	defs := []*servreg.Definition{setup, singleton, abstract, second, nil}

	t.Run("filters by role in order", func(t *testing.T) {
		assert.Equal(t, []*servreg.Definition{setup, second}, servreg.Discover(defs, servreg.RoleAsyncSetup))
		assert.Equal(t, []*servreg.Definition{singleton}, servreg.Discover(defs, servreg.RoleSingleton))
		assert.Empty(t, servreg.Discover(defs, servreg.RoleScoped))
	})

	t.Run("is pure", func(t *testing.T) {
		before := append([]*servreg.Definition(nil), defs...)
		servreg.Discover(defs, servreg.RoleAsyncSetup)
		assert.Equal(t, before, defs)
	})

	t.Run("catalog", func(t *testing.T) {
		c := servreg.NewCatalog(defs...)
		assert.Equal(t, 4, c.Len(), "nil entries are dropped")
		assert.Equal(t, []*servreg.Definition{setup, second}, c.Discover(servreg.RoleAsyncSetup))

		copied := c.Definitions()
		copied[0] = nil
		assert.Equal(t, setup, c.Definitions()[0])
	})
}
