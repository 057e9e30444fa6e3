package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
)

// Registry holds the declared entity kinds. Relationship targets are names,
// resolved against the registry on use, so kinds may reference each other
// (and themselves) regardless of declaration order.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
	order []string // Track registration order for consistent listing
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]*Kind),
		order: make([]string, 0),
	}
}

// Register declares a kind and returns a builder for fluent configuration.
// Registering an existing name starts over with a fresh kind.
func (r *Registry) Register(name string) *KindBuilder {
	if name == "" {
		panic("Register expects a non-empty kind name")
	}
	kind := newKind(name)
	kind.registry = r

	r.mu.Lock()
	if _, exists := r.kinds[name]; !exists {
		r.order = append(r.order, name)
	}
	r.kinds[name] = kind
	r.mu.Unlock()

	return &KindBuilder{registry: r, kind: kind}
}

// Kind retrieves a kind by name
func (r *Registry) Kind(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[name]
	return kind, ok
}

// MustKind retrieves a kind by name or panics
func (r *Registry) MustKind(name string) *Kind {
	kind, ok := r.Kind(name)
	if !ok {
		panic(fmt.Sprintf("kind %q is not registered", name))
	}
	return kind
}

// Lookup finds a kind by name, wrapper key or snake-case name, ignoring case
func (r *Registry) Lookup(name string) (*Kind, error) {
	if kind, ok := r.Kind(name); ok {
		return kind, nil
	}
	want := strings.ToLower(strcase.ToSnake(name))
	for _, kind := range r.Kinds() {
		if kind.WrapperKey == want || strcase.ToSnake(kind.Name) == want || strings.EqualFold(kind.Name, name) {
			return kind, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownKind)
}

// Kinds returns all registered kinds in registration order
func (r *Registry) Kinds() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := make([]*Kind, 0, len(r.order))
	for _, name := range r.order {
		if kind, ok := r.kinds[name]; ok {
			ordered = append(ordered, kind)
		}
	}
	return ordered
}

// Names returns the registered kind names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// targets resolves the kinds a relationship field may point to
func (r *Registry) targets(f *Field) ([]*Kind, error) {
	kinds := make([]*Kind, 0, len(f.Targets))
	for _, name := range f.Targets {
		kind, ok := r.Kind(name)
		if !ok {
			return nil, fmt.Errorf("%s -> %q: %w", f.Name, name, ErrUnknownKind)
		}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%s: relationship declares no target kind: %w", f.Name, ErrUnknownKind)
	}
	return kinds, nil
}

// Helper functions for generating names
func generateWrapperKey(name string) string {
	return strcase.ToSnake(name)
}

func generateTableName(name string) string {
	// Convert to snake_case and pluralize
	return pluralize(strcase.ToSnake(name))
}

// Basic pluralization, good enough for resource names
func pluralize(word string) string {
	if strings.HasSuffix(word, "y") && !strings.HasSuffix(word, "ey") {
		return strings.TrimSuffix(word, "y") + "ies"
	}
	if strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh") {
		return word + "es"
	}
	return word + "s"
}
