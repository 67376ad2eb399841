// Package walker drives server side rendering to a fixed point: render the
// tree, wait for every lazy placeholder it touched, and render again until a
// pass starts no new load.
package walker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jsh-team/chunkbroker/internal/broker"
)

// DefaultMaxPasses bounds LoadAll when Options.MaxPasses is zero
const DefaultMaxPasses = 32

// ErrTooManyPasses is returned when a tree keeps revealing new placeholders
var ErrTooManyPasses = errors.New("tree did not settle")

// Visitor inspects one node of a rendered tree. Lazy placeholders yield the
// promise of the load they are waiting on; every other node yields nil.
type Visitor func(node any) *broker.Promise

// Tree is a rendered component tree. Walk calls fn for every node.
type Tree interface {
	Walk(fn func(node any))
}

// Placeholder is implemented by nodes that stand in for a chunk which may
// still be loading. Pending returns nil once the content is available.
type Placeholder interface {
	Pending() *broker.Promise
}

// PlaceholderVisitor is the default Visitor
func PlaceholderVisitor(node any) *broker.Promise {
	if p, ok := node.(Placeholder); ok {
		return p.Pending()
	}
	return nil
}

// RenderFunc renders the application once. It is called again after each
// batch of loads so placeholders that became available show their children.
type RenderFunc func(ctx context.Context) (Tree, error)

type Options struct {
	MaxPasses int
	Visitor   Visitor
	Logger    zerolog.Logger
}

// Result summarises a LoadAll run
type Result struct {
	Passes int
	Loads  int
}

// LoadAll renders and waits until a pass collects no pending promise. The
// first rejected load aborts the run with its error.
func LoadAll(ctx context.Context, render RenderFunc, opts Options) (Result, error) {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	visit := opts.Visitor
	if visit == nil {
		visit = PlaceholderVisitor
	}

	var res Result
	for res.Passes < maxPasses {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		tree, err := render(ctx)
		if err != nil {
			return res, fmt.Errorf("render pass %d: %w", res.Passes+1, err)
		}
		res.Passes++

		pending := Collect(tree, visit)
		opts.Logger.Debug().
			Int("pass", res.Passes).
			Int("pending", len(pending)).
			Msg("Render pass finished")

		if len(pending) == 0 {
			return res, nil
		}
		res.Loads += len(pending)

		if err := Load(ctx, pending); err != nil {
			return res, err
		}
	}

	return res, fmt.Errorf("%w after %d passes", ErrTooManyPasses, maxPasses)
}

// Collect walks tree and returns the promises its placeholders are waiting
// on, in walk order and without duplicates
func Collect(tree Tree, visit Visitor) []*broker.Promise {
	if tree == nil {
		return nil
	}

	var pending []*broker.Promise
	seen := make(map[*broker.Promise]struct{})
	tree.Walk(func(node any) {
		p := visit(node)
		if p == nil {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		pending = append(pending, p)
	})
	return pending
}

// Load waits for every promise and returns the first error
func Load(ctx context.Context, promises []*broker.Promise) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range promises {
		if p == nil {
			continue
		}
		p := p
		g.Go(func() error {
			_, err := p.Wait(gctx)
			return err
		})
	}
	return g.Wait()
}
