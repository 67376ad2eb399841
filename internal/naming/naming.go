// Package naming derives logical chunk names for dynamic imports and keeps
// the table of name -> loader bindings a build produces.
package naming

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/jsh-team/chunkbroker/internal/broker"
	"github.com/jsh-team/chunkbroker/internal/utils/hash"
)

var (
	// ErrDuplicateName is returned when a name is bound to a second source
	ErrDuplicateName = errors.New("duplicate chunk name")
	// ErrInvalidArgument is returned for an empty name or source, or a nil loader
	ErrInvalidArgument = errors.New("invalid binding argument")
	// ErrUnbound is returned when loading a name nothing was bound to
	ErrUnbound = errors.New("chunk name not bound")
)

// Shorten returns the last directory and file name of source
func Shorten(source string) string {
	source = path.Clean(source)
	return path.Base(path.Dir(source)) + "/" + path.Base(source)
}

// SourceFor joins an import specifier onto the directory of the importing
// file. Surrounding quotes are stripped from the specifier.
func SourceFor(importer, specifier string) string {
	specifier = strings.Trim(specifier, `'"`+"`")
	return path.Join(path.Dir(importer), specifier)
}

// ForExpression names an import whose source is not statically known
func ForExpression(expr string) string {
	return "chunk-" + hash.GenerateXxHash(strings.TrimSpace(expr))
}

// Cache hands out one stable name per source. Sources that shorten to the
// same label get ".0", ".1", ... appended in the order they are seen.
type Cache struct {
	mu      sync.Mutex
	names   map[string]string
	reverse map[string]struct{}
}

func NewCache() *Cache {
	return &Cache{
		names:   make(map[string]string),
		reverse: make(map[string]struct{}),
	}
}

// Get returns the name for source, allocating it on first use
func (c *Cache) Get(source string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.names == nil {
		c.names = make(map[string]string)
		c.reverse = make(map[string]struct{})
	}

	if name, ok := c.names[source]; ok {
		return name
	}

	base := Shorten(source)
	name := base
	for i := 0; ; i++ {
		if _, taken := c.reverse[name]; !taken {
			break
		}
		name = base + "." + strconv.Itoa(i)
	}

	c.reverse[name] = struct{}{}
	c.names[source] = name
	return name
}

// Len returns the number of sources named so far
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// Binding ties a logical name to the source it was derived from and the
// loader that fetches it
type Binding struct {
	Name   string
	Source string
	Loader broker.Loader
}

// Bindings is the table of every dynamic import in a build
type Bindings struct {
	mu     sync.RWMutex
	byName map[string]*Binding
	order  []string
}

func NewBindings() *Bindings {
	return &Bindings{byName: make(map[string]*Binding)}
}

// Bind records name -> source. Binding the same pair again is a no-op; a
// name already bound to another source is an error.
func (b *Bindings) Bind(name, source string, loader broker.Loader) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name for %q", ErrInvalidArgument, source)
	case source == "":
		return fmt.Errorf("%w: empty source for %q", ErrInvalidArgument, name)
	case loader == nil:
		return fmt.Errorf("%w: nil loader for %q", ErrInvalidArgument, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.byName == nil {
		b.byName = make(map[string]*Binding)
	}

	if existing, ok := b.byName[name]; ok {
		if existing.Source != source {
			return fmt.Errorf("%w: %q is bound to %s, not %s", ErrDuplicateName, name, existing.Source, source)
		}
		return nil
	}

	b.byName[name] = &Binding{Name: name, Source: source, Loader: loader}
	b.order = append(b.order, name)
	return nil
}

// BindSource names source through cache and binds it
func (b *Bindings) BindSource(cache *Cache, source string, loader broker.Loader) (string, error) {
	if source == "" {
		return "", fmt.Errorf("%w: empty source", ErrInvalidArgument)
	}
	name := cache.Get(source)
	if err := b.Bind(name, source, loader); err != nil {
		return "", err
	}
	return name, nil
}

// Lookup returns the binding for name
func (b *Bindings) Lookup(name string) (Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	binding, ok := b.byName[name]
	if !ok {
		return Binding{}, false
	}
	return *binding, true
}

// Names returns the bound names in binding order
func (b *Bindings) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, len(b.order))
	copy(names, b.order)
	return names
}

// Load starts, or joins, the load of a bound name in reg
func (b *Bindings) Load(ctx context.Context, reg *broker.Registry, name string) (*broker.Promise, error) {
	binding, ok := b.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("load %s: %w", name, ErrUnbound)
	}
	return reg.Add(ctx, name, binding.Loader), nil
}
