package cooldown

import (
	"context"
	"sync"
)

// Gate serializes work per key. Holders of different keys never wait on each
// other; the shared map lock is held only to find or drop a key's slot.
//
// The zero value is ready to use.
type Gate struct {
	mu    sync.Mutex
	slots map[Key]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

// Acquire blocks until key is free or ctx is done. The returned release func
// must be called exactly once; extra calls are ignored.
func (g *Gate) Acquire(ctx context.Context, key Key) (release func(), err error) {
	g.mu.Lock()
	if g.slots == nil {
		g.slots = make(map[Key]*slot)
	}
	s, ok := g.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		g.slots[key] = s
	}
	s.refs++
	g.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		g.drop(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			g.drop(key, s)
		})
	}, nil
}

func (g *Gate) drop(key Key, s *slot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(g.slots, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}
