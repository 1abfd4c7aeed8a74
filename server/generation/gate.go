package generation

import (
	"context"
	"sync"

	"github.com/eapache/queue/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Gate limits concurrent model executions. Callers beyond the limit wait in
// arrival order. A nil Gate or a limit of zero admits everyone.
type Gate struct {
	mu      sync.Mutex
	limit   int
	active  int
	waiters *queue.Queue[*waiter]
	waiting prometheus.Gauge
}

type waiter struct {
	ready     chan struct{}
	abandoned bool
}

// NewGate creates a gate admitting limit callers at a time. waiting, when
// non-nil, tracks the number of queued callers.
func NewGate(limit int, waiting prometheus.Gauge) *Gate {
	return &Gate{
		limit:   limit,
		waiters: queue.New[*waiter](),
		waiting: waiting,
	}
}

// Acquire blocks until a slot is free or ctx is done. Every successful
// Acquire must be paired with Release.
func (g *Gate) Acquire(ctx context.Context) error {
	if g == nil || g.limit <= 0 {
		return nil
	}

	g.mu.Lock()
	if g.active < g.limit && g.waiters.Length() == 0 {
		g.active++
		g.mu.Unlock()
		return nil
	}
	w := &waiter{ready: make(chan struct{})}
	g.waiters.Add(w)
	g.mu.Unlock()

	g.track(1)
	defer g.track(-1)

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-w.ready:
			// Granted while giving up; pass the slot on.
			g.mu.Unlock()
			g.Release()
		default:
			w.abandoned = true
			g.mu.Unlock()
		}
		return ctx.Err()
	}
}

// Release frees a slot, handing it to the longest waiting caller if any.
func (g *Gate) Release() {
	if g == nil || g.limit <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.waiters.Length() > 0 {
		w := g.waiters.Remove()
		if w.abandoned {
			continue
		}
		close(w.ready)
		return
	}
	g.active--
}

func (g *Gate) track(delta float64) {
	if g.waiting != nil {
		g.waiting.Add(delta)
	}
}
