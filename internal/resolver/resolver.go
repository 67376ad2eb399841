// Package resolver maps logical chunk names onto the physical chunks of a
// bundler stats snapshot and orders them for delivery.
//
// Resolution is best effort: names that match no chunk contribute nothing,
// because the module behind them may have been inlined into another chunk.
package resolver

import (
	"github.com/jsh-team/chunkbroker/internal/stats"
)

// Resolution is the outcome of resolving a set of logical names
type Resolution struct {
	// Chunks in delivery order: entry chunks first, parents before children
	Chunks []*stats.Chunk
	// Unresolved names, in input order
	Unresolved []string
}

// Resolve returns the chunks needed to deliver names, in a safe load order
func Resolve(s *stats.Stats, names []string) []*stats.Chunk {
	return ResolveDetailed(s, names).Chunks
}

// ResolveDetailed is Resolve, also reporting the names that matched nothing
func ResolveDetailed(s *stats.Stats, names []string) Resolution {
	pending := dedupe(names)
	if s == nil || len(s.Chunks) == 0 {
		return Resolution{Chunks: []*stats.Chunk{}, Unresolved: pending}
	}

	sel := newSelection(len(s.Chunks))
	for _, chunk := range s.Chunks {
		if chunk.AlwaysLoaded() {
			sel.add(chunk)
		}
	}

	pending = matchChunkNames(s, pending, sel)
	pending = matchModules(s, pending, sel)
	pending = matchExternal(s, pending, sel)

	index := s.Index()
	expandSiblings(index, sel)

	return Resolution{
		Chunks:     order(index, sel),
		Unresolved: pending,
	}
}

type selection struct {
	order []*stats.Chunk
	seen  map[*stats.Chunk]int
}

func newSelection(capacity int) *selection {
	return &selection{
		order: make([]*stats.Chunk, 0, capacity),
		seen:  make(map[*stats.Chunk]int, capacity),
	}
}

func (s *selection) add(chunk *stats.Chunk) {
	if _, ok := s.seen[chunk]; ok {
		return
	}
	s.seen[chunk] = len(s.order)
	s.order = append(s.order, chunk)
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// matchChunkNames selects chunks the bundler was explicitly told the name of
func matchChunkNames(s *stats.Stats, names []string, sel *selection) []string {
	rest := names[:0:0]
	for _, name := range names {
		matched := false
		for _, chunk := range s.Chunks {
			if name != "" && chunk.HasName(name) {
				sel.add(chunk)
				matched = true
				break
			}
		}
		if !matched {
			rest = append(rest, name)
		}
	}
	return rest
}

// matchModules selects the first chunk carrying a module whose path matches
// the name
func matchModules(s *stats.Stats, names []string, sel *selection) []string {
	rest := names[:0:0]
	for _, name := range names {
		if normalize(name) == "" {
			rest = append(rest, name)
			continue
		}

		if chunk := findChunk(s, func(m *stats.Module) bool { return MatchModule(m, name) }); chunk != nil {
			sel.add(chunk)
			continue
		}
		rest = append(rest, name)
	}
	return rest
}

// matchExternal selects chunks carrying a node_modules package for bare names
func matchExternal(s *stats.Stats, names []string, sel *selection) []string {
	rest := names[:0:0]
	for _, name := range names {
		if name == "" || !isBare(name) {
			rest = append(rest, name)
			continue
		}

		re := externalPattern(name)
		if chunk := findChunk(s, func(m *stats.Module) bool { return matchWith(re, m, name) }); chunk != nil {
			sel.add(chunk)
			continue
		}
		rest = append(rest, name)
	}
	return rest
}

func findChunk(s *stats.Stats, match func(*stats.Module) bool) *stats.Chunk {
	for _, chunk := range s.Chunks {
		for _, module := range chunk.Modules {
			if match(module) {
				return chunk
			}
		}
	}
	return nil
}

// expandSiblings adds siblings of every selected chunk, transitively. The
// selection doubles as the visited set so sibling cycles terminate.
func expandSiblings(index map[stats.ID]*stats.Chunk, sel *selection) {
	for i := 0; i < len(sel.order); i++ {
		for _, id := range sel.order[i].Siblings {
			if sibling, ok := index[id]; ok {
				sel.add(sibling)
			}
		}
	}
}

// order sorts the selection so every selected parent precedes its children.
// Among ready chunks, entry chunks go first, then discovery order. A parent
// cycle is broken by releasing the earliest discovered chunk still waiting.
func order(index map[stats.ID]*stats.Chunk, sel *selection) []*stats.Chunk {
	n := len(sel.order)
	waiting := make([]int, n)
	children := make([][]int, n)

	for i, chunk := range sel.order {
		counted := make(map[int]struct{}, len(chunk.Parents))
		for _, id := range chunk.Parents {
			parent, ok := index[id]
			if !ok {
				continue
			}
			j, ok := sel.seen[parent]
			if !ok || j == i {
				continue
			}
			if _, dup := counted[j]; dup {
				continue
			}
			counted[j] = struct{}{}
			waiting[i]++
			children[j] = append(children[j], i)
		}
	}

	placed := make([]bool, n)
	out := make([]*stats.Chunk, 0, n)

	pick := func(ready func(int) bool) int {
		next := -1
		for i := 0; i < n; i++ {
			if placed[i] || !ready(i) {
				continue
			}
			if next == -1 || (sel.order[i].Entry && !sel.order[next].Entry) {
				next = i
			}
		}
		return next
	}

	for len(out) < n {
		next := pick(func(i int) bool { return waiting[i] == 0 })
		if next == -1 {
			next = pick(func(int) bool { return true })
		}

		placed[next] = true
		out = append(out, sel.order[next])
		for _, child := range children[next] {
			if waiting[child] > 0 {
				waiting[child]--
			}
		}
	}

	return out
}
