// Package emitter renders the HTML that loads resolved chunks on a server
// rendered page: script tags annotated with the logical names they satisfy,
// optional preload links and the JSON island read back during hydration.
package emitter

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/net/html"

	"github.com/jsh-team/chunkbroker/internal/resolver"
	"github.com/jsh-team/chunkbroker/internal/stats"
	urlutil "github.com/jsh-team/chunkbroker/internal/utils/url"
)

// DefaultIslandID is the element id of the JSON island
const DefaultIslandID = "__LAZY_CHUNKS__"

// LoadedAttr is set on a script element once the browser has executed it
const LoadedAttr = "data-loaded"

// ChunksAttr carries the comma separated logical names a script satisfies
const ChunksAttr = "data-chunks"

// Mode selects how script tags are scheduled by the browser
type Mode int

const (
	// ModeEntryAsync loads entry chunks async and everything else deferred
	ModeEntryAsync Mode = iota
	ModeDefer
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeDefer:
		return "defer"
	case ModeAsync:
		return "async"
	default:
		return "entry-async"
	}
}

// ParseMode maps a configuration value onto a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "entry-async":
		return ModeEntryAsync, nil
	case "defer":
		return ModeDefer, nil
	case "async":
		return ModeAsync, nil
	}
	return ModeEntryAsync, fmt.Errorf("unknown script mode %q", s)
}

type Options struct {
	Mode        Mode
	Preload     bool
	Nonce       string
	CrossOrigin string
	IslandID    string
}

// Script is one emitted script tag
type Script struct {
	Src    string
	Chunks []string
	Async  bool
	Entry  bool
}

// Markup is the structured form of the emitted HTML
type Markup struct {
	Preloads []string
	Styles   []string
	Island   string
	Scripts  []Script

	// Modules maps each satisfied logical name to its module id
	Modules map[string]stats.ID

	opts Options
}

// Render builds the markup for the chunks that names resolve to
func Render(s *stats.Stats, names []string, opts Options) (*Markup, error) {
	if opts.IslandID == "" {
		opts.IslandID = DefaultIslandID
	}
	m := &Markup{
		Modules: make(map[string]stats.ID),
		opts:    opts,
	}
	if s == nil {
		island, err := renderIsland(opts, nil, m.Modules)
		if err != nil {
			return nil, err
		}
		m.Island = island
		return m, nil
	}

	names = dedupe(names)
	chunks := resolver.Resolve(s, names)
	satisfied, order := satisfy(chunks, names)

	for _, name := range order {
		m.Modules[name] = satisfied[name].module.ID
	}

	byChunk := make(map[*stats.Chunk][]string)
	for _, name := range order {
		c := satisfied[name].chunk
		byChunk[c] = append(byChunk[c], name)
	}

	var preloadFirst, preloadRest []string
	for _, chunk := range chunks {
		for _, file := range chunk.Files {
			kind := assetKind(file)
			if kind == "" {
				continue
			}
			src, err := urlutil.ResolveAsset(s.PublicPath, file)
			if err != nil {
				return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
			}

			if opts.Preload {
				link := preloadTag(src, kind, opts)
				if chunk.AlwaysLoaded() {
					preloadFirst = append(preloadFirst, link)
				} else {
					preloadRest = append(preloadRest, link)
				}
			}

			switch kind {
			case "style":
				m.Styles = append(m.Styles, styleTag(src, opts))
			case "script":
				m.Scripts = append(m.Scripts, Script{
					Src:    src,
					Chunks: byChunk[chunk],
					Async:  opts.Mode == ModeAsync || (opts.Mode == ModeEntryAsync && chunk.Entry),
					Entry:  chunk.Entry,
				})
			}
		}
	}
	m.Preloads = append(preloadFirst, preloadRest...)

	island, err := renderIsland(opts, order, m.Modules)
	if err != nil {
		return nil, err
	}
	m.Island = island

	return m, nil
}

// Emit renders the markup as one HTML fragment
func Emit(s *stats.Stats, names []string, opts Options) (string, error) {
	m, err := Render(s, names, opts)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// String joins preloads, stylesheets, the island and scripts, one tag per line
func (m *Markup) String() string {
	lines := make([]string, 0, len(m.Preloads)+len(m.Styles)+len(m.Scripts)+1)
	lines = append(lines, m.Preloads...)
	lines = append(lines, m.Styles...)
	lines = append(lines, m.Island)
	for _, script := range m.Scripts {
		lines = append(lines, script.tag(m.opts))
	}
	return strings.Join(lines, "\n")
}

func (s Script) tag(opts Options) string {
	var b strings.Builder
	b.WriteString(`<script src="`)
	b.WriteString(html.EscapeString(s.Src))
	b.WriteString(`" type="text/javascript"`)
	if s.Async {
		b.WriteString(" async")
	} else {
		b.WriteString(" defer")
	}
	writeCommonAttrs(&b, opts)
	b.WriteString(` ` + ChunksAttr + `="`)
	b.WriteString(html.EscapeString(strings.Join(s.Chunks, ",")))
	b.WriteString(`" onload="this.setAttribute('` + LoadedAttr + `','true')"></script>`)
	return b.String()
}

func preloadTag(src, kind string, opts Options) string {
	var b strings.Builder
	b.WriteString(`<link rel="preload" href="`)
	b.WriteString(html.EscapeString(src))
	b.WriteString(`" as="` + kind + `"`)
	writeCommonAttrs(&b, opts)
	b.WriteString(">")
	return b.String()
}

func styleTag(src string, opts Options) string {
	var b strings.Builder
	b.WriteString(`<link rel="stylesheet" href="`)
	b.WriteString(html.EscapeString(src))
	b.WriteString(`"`)
	writeCommonAttrs(&b, opts)
	b.WriteString(">")
	return b.String()
}

func writeCommonAttrs(b *strings.Builder, opts Options) {
	if opts.Nonce != "" {
		b.WriteString(` nonce="` + html.EscapeString(opts.Nonce) + `"`)
	}
	if opts.CrossOrigin != "" {
		b.WriteString(` crossorigin="` + html.EscapeString(opts.CrossOrigin) + `"`)
	}
}

// renderIsland writes {"name": id, ...} in request order. Map iteration order
// is random, so the object is assembled by hand.
func renderIsland(opts Options, order []string, modules map[string]stats.ID) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range order {
		key, err := json.Marshal(name)
		if err != nil {
			return "", fmt.Errorf("encode island key %q: %w", name, err)
		}
		id, err := json.Marshal(modules[name])
		if err != nil {
			return "", fmt.Errorf("encode island id for %q: %w", name, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(id)
	}
	buf.WriteByte('}')

	payload := strings.ReplaceAll(buf.String(), "<", `\u003c`)

	var b strings.Builder
	b.WriteString(`<script id="` + html.EscapeString(opts.IslandID) + `" type="application/json"`)
	if opts.Nonce != "" {
		b.WriteString(` nonce="` + html.EscapeString(opts.Nonce) + `"`)
	}
	b.WriteString(">")
	b.WriteString(payload)
	b.WriteString("</script>")
	return b.String(), nil
}

// assetKind returns the preload destination of a file, or "" when the file
// is not emitted
func assetKind(file string) string {
	clean := file
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	switch {
	case strings.HasSuffix(clean, ".map"), strings.HasSuffix(clean, ".hot-update.js"):
		return ""
	case strings.HasSuffix(clean, ".css"):
		return "style"
	case strings.HasSuffix(clean, ".js"), strings.HasSuffix(clean, ".mjs"):
		return "script"
	}
	return ""
}

type candidate struct {
	chunk  *stats.Chunk
	module *stats.Module
}

// satisfy picks, for every name, the module that provides it. Names without
// a satisfying module are left out of the result.
func satisfy(chunks []*stats.Chunk, names []string) (map[string]candidate, []string) {
	found := make(map[string]candidate, len(names))
	var order []string

	for _, name := range names {
		var first, preferred *candidate
		for _, chunk := range chunks {
			for _, module := range chunk.Modules {
				if !module.ExportsDefault() || !resolver.MatchModule(module, name) {
					continue
				}
				c := candidate{chunk: chunk, module: module}
				if first == nil {
					first = &c
				}
				if !isShim(module) {
					preferred = &c
					break
				}
			}
			if preferred != nil {
				break
			}
		}

		switch {
		case preferred != nil:
			found[name] = *preferred
		case first != nil:
			found[name] = *first
		default:
			continue
		}
		order = append(order, name)
	}

	return found, order
}

// isShim reports whether a module was imported from inside its own directory
// tree, which is how re-export shims show up in the graph
func isShim(module *stats.Module) bool {
	if module.Issuer == "" {
		return false
	}
	dir := path.Dir(urlutil.ResourcePath(module.Identifier))
	issuerDir := path.Dir(urlutil.ResourcePath(module.Issuer))
	return urlutil.WithinTree(dir, issuerDir)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
