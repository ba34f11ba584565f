package structure

import (
	"sync"

	"github.com/rs/zerolog"
)

// Library caches loaded structures by handle. Structures are read-only, so a
// cached value is safe to share between concurrent pastes.
type Library struct {
	loader *Loader
	log    zerolog.Logger

	mu    sync.Mutex
	cache map[string]*Structure
}

func NewLibrary(loader *Loader, logger zerolog.Logger) *Library {
	return &Library{
		loader: loader,
		log:    logger.With().Str("component", "structures").Logger(),
		cache:  map[string]*Structure{},
	}
}

// Get returns the cached structure or loads it. Failures are not cached so a
// fixed file is picked up on the next call.
func (l *Library) Get(handle string) (*Structure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.cache[handle]; ok {
		return s, nil
	}
	s, err := l.loader.Load(handle)
	if err != nil {
		return nil, err
	}
	l.cache[handle] = s
	l.log.Debug().Str("handle", handle).Str("format", string(s.Format)).
		Stringer("size", s.Size()).Int("solid", s.Solid()).Msg("structure loaded")
	return s, nil
}

// Preload loads every handle and returns the first error.
func (l *Library) Preload(handles ...string) error {
	for _, h := range handles {
		if _, err := l.Get(h); err != nil {
			return err
		}
	}
	return nil
}

// Reload drops the cache.
func (l *Library) Reload() {
	l.mu.Lock()
	l.cache = map[string]*Structure{}
	l.mu.Unlock()
}

func (l *Library) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}
