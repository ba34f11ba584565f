package observer

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Hub fans placement events out to websocket subscribers. Slow subscribers
// lose messages instead of stalling the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber

	dropped atomic.Uint64
}

type subscriber struct {
	arena atomic.Value // string; empty means all arenas
	out   chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: map[string]*subscriber{}}
}

func (h *Hub) join(id, arena string, buf int) *subscriber {
	s := &subscriber{out: make(chan []byte, buf)}
	s.arena.Store(arena)
	h.mu.Lock()
	h.subs[id] = s
	h.mu.Unlock()
	return s
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts messages not delivered to a full subscriber queue.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Publish sends v to every subscriber watching arena.
func (h *Hub) Publish(arena string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if want, _ := s.arena.Load().(string); want != "" && want != arena {
			continue
		}
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}
