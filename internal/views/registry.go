package views

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Registry.Put when the key was invalidated
// after the caller read its generation.
var ErrSuperseded = errors.New("views: value superseded by invalidation")

// Registry holds cached view values and their freshness. Keys never seen
// are stale. Each key's flag is independent.
type Registry interface {
	// IsStale reports whether key must be refetched.
	IsStale(ctx context.Context, key Key) bool

	// Get returns the cached value for a fresh key.
	Get(ctx context.Context, key Key) (any, bool)

	// Generation returns the key's invalidation counter. Read it before
	// fetching and hand it to Put.
	Generation(ctx context.Context, key Key) (uint64, error)

	// Put stores value and marks key fresh if key is still at gen.
	// Otherwise it stores nothing and returns ErrSuperseded.
	Put(ctx context.Context, key Key, value any, gen uint64) error

	// Invalidate marks keys stale and bumps their generations.
	Invalidate(ctx context.Context, keys ...Key)

	// Subscribe delivers every invalidation of key. cancel stops delivery
	// and closes the channel.
	Subscribe(key Key) (<-chan Key, func())
}

// subscriberBuffer bounds per-subscriber backlog. Notifications beyond it
// are dropped; a subscriber only needs to learn that the view went stale.
const subscriberBuffer = 16

type subscriber struct {
	key  Key
	ch   chan Key
	once sync.Once
}

// hub fans invalidation notices out to subscribers.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

func (h *hub) subscribe(key Key) (<-chan Key, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]*subscriber)
	}
	id := h.next
	h.next++
	s := &subscriber{key: key, ch: make(chan Key, subscriberBuffer)}
	h.subs[id] = s

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		s.once.Do(func() { close(s.ch) })
	}
	return s.ch, cancel
}

// notify tells every subscriber of an invalidated key.
func (h *hub) notify(invalidated []Key) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.subs {
		for _, k := range invalidated {
			if k != s.key {
				continue
			}
			select {
			case s.ch <- s.key:
			default:
			}
			break
		}
	}
}
