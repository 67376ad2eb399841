package walker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsh-team/chunkbroker/internal/broker"
)

type placeholder struct {
	pending *broker.Promise
}

func (p placeholder) Pending() *broker.Promise { return p.pending }

type nodes []any

func (n nodes) Walk(fn func(node any)) {
	for _, node := range n {
		fn(node)
	}
}

func value(v any) broker.Loader {
	return func(context.Context) (broker.Module, error) {
		return broker.Module{Value: v}, nil
	}
}

// lazy renders a placeholder until name resolves, then its children
func lazy(ctx context.Context, reg *broker.Registry, name string, children func() nodes) nodes {
	if reg.Status(name) != broker.Resolved {
		return nodes{placeholder{pending: reg.Add(ctx, name, value(name))}}
	}
	return append(nodes{name}, children()...)
}

func TestLoadAllRevealsNestedPlaceholders(t *testing.T) {
	ctx := context.Background()
	reg := broker.NewRegistry()

	render := func(ctx context.Context) (Tree, error) {
		tree := nodes{"root"}
		tree = append(tree, lazy(ctx, reg, "pages/Home", func() nodes {
			return lazy(ctx, reg, "components/Footer", func() nodes { return nil })
		})...)
		return tree, nil
	}

	res, err := LoadAll(ctx, render, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Passes)
	assert.Equal(t, 2, res.Loads)
	assert.Equal(t, []string{"pages/Home", "components/Footer"}, reg.ChunkNames())
	assert.Equal(t, broker.Resolved, reg.Status("components/Footer"))
}

func TestLoadAllNothingLazy(t *testing.T) {
	res, err := LoadAll(context.Background(), func(context.Context) (Tree, error) {
		return nodes{"a", "b"}, nil
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Result{Passes: 1}, res)
}

func TestLoadAllPropagatesRejection(t *testing.T) {
	ctx := context.Background()
	reg := broker.NewRegistry()
	boom := errors.New("boom")

	render := func(ctx context.Context) (Tree, error) {
		p := reg.Add(ctx, "broken", func(context.Context) (broker.Module, error) {
			return broker.Module{}, boom
		})
		return nodes{placeholder{pending: p}}, nil
	}

	_, err := LoadAll(ctx, render, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestLoadAllRenderError(t *testing.T) {
	failed := errors.New("template missing")
	_, err := LoadAll(context.Background(), func(context.Context) (Tree, error) {
		return nil, failed
	}, Options{})
	assert.ErrorIs(t, err, failed)
}

func TestLoadAllTooManyPasses(t *testing.T) {
	ctx := context.Background()
	reg := broker.NewRegistry()

	// every pass reloads, so the tree never settles
	render := func(ctx context.Context) (Tree, error) {
		return nodes{placeholder{pending: reg.Reload(ctx, "flaky", value(1))}}, nil
	}

	res, err := LoadAll(ctx, render, Options{MaxPasses: 3})
	assert.ErrorIs(t, err, ErrTooManyPasses)
	assert.Equal(t, 3, res.Passes)
}

func TestCollectDeduplicates(t *testing.T) {
	reg := broker.NewRegistry()
	p := reg.Add(context.Background(), "a", value(1))

	pending := Collect(nodes{placeholder{p}, "text", placeholder{p}, placeholder{}}, PlaceholderVisitor)
	assert.Equal(t, []*broker.Promise{p}, pending)
	assert.Nil(t, Collect(nil, PlaceholderVisitor))
}

func TestCustomVisitor(t *testing.T) {
	reg := broker.NewRegistry()
	ctx := context.Background()

	render := func(ctx context.Context) (Tree, error) {
		return nodes{"needs:a", "needs:b", "plain"}, nil
	}
	visit := func(node any) *broker.Promise {
		s, _ := node.(string)
		if len(s) > 6 && s[:6] == "needs:" {
			name := s[6:]
			if reg.Status(name) == broker.Resolved {
				return nil
			}
			return reg.Add(ctx, name, value(name))
		}
		return nil
	}

	res, err := LoadAll(ctx, render, Options{Visitor: visit})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, 2, res.Loads)
}

func TestLoadHonoursContext(t *testing.T) {
	reg := broker.NewRegistry()
	gate := make(chan struct{})
	defer close(gate)

	p := reg.Add(context.Background(), "slow", func(context.Context) (broker.Module, error) {
		<-gate
		return broker.Module{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Load(ctx, []*broker.Promise{nil, p})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
