package blockworld

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves world references by name.
type Registry struct {
	mu     sync.RWMutex
	worlds map[string]World
}

func NewRegistry() *Registry {
	return &Registry{worlds: map[string]World{}}
}

func (r *Registry) Add(w World) {
	r.mu.Lock()
	r.worlds[w.Name()] = w
	r.mu.Unlock()
}

// Remove forgets a world. Holders of the World value keep it, so they must
// still check Loaded.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.worlds, name)
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (World, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.worlds[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownWorld)
	}
	return w, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.worlds))
	for n := range r.worlds {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
