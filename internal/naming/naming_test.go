package naming

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsh-team/chunkbroker/internal/broker"
)

func noop(context.Context) (broker.Module, error) {
	return broker.Module{}, nil
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "pages/Home", Shorten("/app/src/pages/Home"))
	assert.Equal(t, "Home/index.js", Shorten("/app/src/pages/Home/index.js"))
	assert.Equal(t, "src/Footer", Shorten("src/Footer/"))
}

func TestSourceFor(t *testing.T) {
	assert.Equal(t, "/app/src/pages/Home", SourceFor("/app/src/App.js", `'./pages/Home'`))
	assert.Equal(t, "/app/components/Nav", SourceFor("/app/src/App.js", `"../components/Nav"`))
}

func TestCacheCollisionSuffixes(t *testing.T) {
	c := NewCache()

	assert.Equal(t, "pages/Home", c.Get("/app/a/pages/Home"))
	assert.Equal(t, "pages/Home.0", c.Get("/app/b/pages/Home"))
	assert.Equal(t, "pages/Home.1", c.Get("/app/c/pages/Home"))

	// stable per source
	assert.Equal(t, "pages/Home.0", c.Get("/app/b/pages/Home"))
	assert.Equal(t, 3, c.Len())
}

func TestCacheZeroValue(t *testing.T) {
	var c Cache
	assert.Equal(t, "x/y", c.Get("/x/y"))
}

func TestCacheConcurrent(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	names := make([]string, 16)
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i] = c.Get("/app/pages/Home")
		}(i)
	}
	wg.Wait()

	for _, name := range names {
		assert.Equal(t, "pages/Home", name)
	}
}

func TestForExpression(t *testing.T) {
	name := ForExpression("`./pages/${page}`")
	assert.True(t, strings.HasPrefix(name, "chunk-"))
	assert.Len(t, name, len("chunk-")+16)
	assert.Equal(t, name, ForExpression("  `./pages/${page}`\n"))
	assert.NotEqual(t, name, ForExpression("`./routes/${page}`"))
}

func TestBind(t *testing.T) {
	b := NewBindings()

	require.NoError(t, b.Bind("pages/Home", "/app/pages/Home", noop))
	require.NoError(t, b.Bind("pages/Home", "/app/pages/Home", noop))

	err := b.Bind("pages/Home", "/other/pages/Home", noop)
	assert.ErrorIs(t, err, ErrDuplicateName)

	assert.ErrorIs(t, b.Bind("", "/app/x", noop), ErrInvalidArgument)
	assert.ErrorIs(t, b.Bind("x", "", noop), ErrInvalidArgument)
	assert.ErrorIs(t, b.Bind("x", "/app/x", nil), ErrInvalidArgument)

	assert.Equal(t, []string{"pages/Home"}, b.Names())
	binding, ok := b.Lookup("pages/Home")
	require.True(t, ok)
	assert.Equal(t, "/app/pages/Home", binding.Source)
}

func TestBindSourceUsesCache(t *testing.T) {
	b := NewBindings()
	c := NewCache()

	first, err := b.BindSource(c, "/app/a/pages/Home", noop)
	require.NoError(t, err)
	second, err := b.BindSource(c, "/app/b/pages/Home", noop)
	require.NoError(t, err)

	assert.Equal(t, "pages/Home", first)
	assert.Equal(t, "pages/Home.0", second)
	assert.Equal(t, []string{"pages/Home", "pages/Home.0"}, b.Names())

	_, err = b.BindSource(c, "", noop)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLoadThroughRegistry(t *testing.T) {
	var calls atomic.Int32
	b := NewBindings()
	require.NoError(t, b.Bind("pages/Home", "/app/pages/Home", func(context.Context) (broker.Module, error) {
		calls.Add(1)
		return broker.Module{Value: map[string]any{"default": "Home"}, Namespace: true}, nil
	}))

	reg := broker.NewRegistry()
	ctx := context.Background()

	p1, err := b.Load(ctx, reg, "pages/Home")
	require.NoError(t, err)
	p2, err := b.Load(ctx, reg, "pages/Home")
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	v, err := p1.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Home", v)
	assert.Equal(t, int32(1), calls.Load())

	_, err = b.Load(ctx, reg, "pages/Missing")
	assert.ErrorIs(t, err, ErrUnbound)
}
