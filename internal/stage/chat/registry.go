package chat

import "fmt"

// Registry holds the configured chat backends and allows lookup by
// name. It performs no model calls itself.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry registers the given backends by name.
// Backend names must be unique.
func NewRegistry(list ...Backend) *Registry {
	m := make(map[string]Backend)
	for _, b := range list {
		m[b.Name()] = b
	}
	return &Registry{backends: m}
}

// Get returns the backend by name or an error if not registered.
func (r *Registry) Get(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown chat backend: %s", name)
	}
	return b, nil
}
