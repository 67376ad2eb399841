package stats

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Stats is the subset of a bundler stats snapshot needed to map logical chunk
// names onto physical chunks and files
type Stats struct {
	Hash       string   `json:"hash,omitempty"`
	PublicPath string   `json:"publicPath"`
	Chunks     []*Chunk `json:"chunks"`
}

// Chunk is one physical chunk emitted by the bundler
type Chunk struct {
	ID       ID        `json:"id"`
	Names    []string  `json:"names"`
	Modules  []*Module `json:"modules"`
	Siblings []ID      `json:"siblings"`
	Parents  []ID      `json:"parents"`
	Files    []string  `json:"files"`
	Entry    bool      `json:"entry"`
	Initial  bool      `json:"initial"`
}

// Module is one module bundled into a chunk
type Module struct {
	ID              ID      `json:"id"`
	Identifier      string  `json:"identifier"`
	Name            string  `json:"name"`
	ProvidedExports Exports `json:"providedExports"`
	Issuer          string  `json:"issuer,omitempty"`
	IssuerName      string  `json:"issuerName,omitempty"`
}

// Exports is the set of bindings a module provides.
// Bundlers report null or true when the exports are unknown; both decode to
// an empty set.
type Exports []string

func (e *Exports) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		*e = nil
		return nil
	}

	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*e = names
	return nil
}

// Has reports whether the export set contains name
func (e Exports) Has(name string) bool {
	for _, export := range e {
		if export == name {
			return true
		}
	}
	return false
}

// HasName reports whether the chunk was explicitly given the logical name
func (c *Chunk) HasName(name string) bool {
	for _, n := range c.Names {
		if n == name {
			return true
		}
	}
	return false
}

// AlwaysLoaded reports whether the chunk ships on every page
func (c *Chunk) AlwaysLoaded() bool {
	return c.Entry || c.Initial
}

// ExportsDefault reports whether the module provides a default binding
func (m *Module) ExportsDefault() bool {
	return m.ProvidedExports.Has("default")
}

// Index maps chunk ids to chunks. When ids repeat, the first chunk wins.
func (s *Stats) Index() map[ID]*Chunk {
	index := make(map[ID]*Chunk, len(s.Chunks))
	for _, chunk := range s.Chunks {
		if chunk == nil {
			continue
		}
		if _, ok := index[chunk.ID]; !ok {
			index[chunk.ID] = chunk
		}
	}
	return index
}
