// Package hydrate reads back what the emitter wrote into a server rendered
// page and seeds a registry with it, so chunks delivered with the page are
// RESOLVED before the first render on the client.
package hydrate

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"

	"github.com/jsh-team/chunkbroker/internal/broker"
	"github.com/jsh-team/chunkbroker/internal/emitter"
	"github.com/jsh-team/chunkbroker/internal/stats"
)

// ErrMissingAnchor means the page carries no chunk island. The page and the
// client were built from different templates; callers treat it as fatal.
var ErrMissingAnchor = errors.New("chunk island not found")

// Island maps each logical name delivered with the page to its module id
type Island map[string]stats.ID

// Names returns the island's names in lexical order
func (i Island) Names() []string {
	names := make([]string, 0, len(i))
	for name := range i {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScriptRef is one chunk script found in a page
type ScriptRef struct {
	Src    string
	Chunks []string
	Async  bool
	Loaded bool
}

// ReadIsland decodes the island with the default element id
func ReadIsland(r io.Reader) (Island, error) {
	return ReadIslandByID(r, emitter.DefaultIslandID)
}

// ReadIslandByID decodes the island stored in <script id="id">
func ReadIslandByID(r io.Reader, id string) (Island, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return islandFrom(doc, id)
}

func islandFrom(doc *goquery.Document, id string) (Island, error) {
	sel := doc.Find("script").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr("id")
		return ok && v == id
	}).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: #%s", ErrMissingAnchor, id)
	}

	raw := strings.TrimSpace(sel.Text())
	island := make(Island)
	if raw == "" {
		return island, nil
	}
	if err := json.Unmarshal([]byte(raw), &island); err != nil {
		return nil, fmt.Errorf("decode island #%s: %w", id, err)
	}
	return island, nil
}

// Scripts lists the script elements that carry chunk annotations, in
// document order
func Scripts(r io.Reader) ([]ScriptRef, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return scriptsFrom(doc), nil
}

func scriptsFrom(doc *goquery.Document) []ScriptRef {
	var refs []ScriptRef
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		chunks, ok := s.Attr(emitter.ChunksAttr)
		if !ok {
			return
		}
		src, _ := s.Attr("src")
		_, async := s.Attr("async")
		loaded, _ := s.Attr(emitter.LoadedAttr)

		refs = append(refs, ScriptRef{
			Src:    src,
			Chunks: splitNames(chunks),
			Async:  async,
			Loaded: loaded == "true",
		})
	})
	return refs
}

// Page is everything hydration needs from one document
type Page struct {
	Island  Island
	Scripts []ScriptRef
}

// ReadPage parses the document once and returns both the island and the
// chunk scripts
func ReadPage(r io.Reader, id string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if id == "" {
		id = emitter.DefaultIslandID
	}

	island, err := islandFrom(doc, id)
	if err != nil {
		return nil, err
	}
	return &Page{Island: island, Scripts: scriptsFrom(doc)}, nil
}

// Source looks up the value a module id stands for on the client, usually
// the module already evaluated by the script that carried it
type Source func(name string, id stats.ID) (any, bool)

// Seed marks every island name RESOLVED in reg without loading it. With a
// nil source the module id itself is stored as the value. Names the source
// does not know are left untouched and returned as missing.
func Seed(reg *broker.Registry, island Island, source Source) (seeded, missing []string) {
	for _, name := range island.Names() {
		id := island[name]
		var value any = id
		if source != nil {
			v, ok := source(name, id)
			if !ok {
				missing = append(missing, name)
				continue
			}
			value = v
		}
		reg.Set(name, value)
		seeded = append(seeded, name)
	}
	return seeded, missing
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
