package cartsync

import (
	"context"
	"sync"
)

// keyQueue serializes work per key in issuance order. Each Do call chains
// itself behind the previous caller for the same key, so two rapid updates
// to the same product can never land out of order, while different products
// proceed in parallel.
type keyQueue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newKeyQueue() *keyQueue {
	return &keyQueue{
		tails: make(map[string]chan struct{}),
	}
}

// Do runs fn once every earlier call for the same key has finished. If ctx
// expires while waiting in line, fn never runs; the abandoned slot is handed
// off and opens only after the predecessor finishes, so later callers stay
// ordered behind work that is still running.
func (q *keyQueue) Do(ctx context.Context, key string, fn func() error) error {
	q.mu.Lock()
	prev := q.tails[key]
	done := make(chan struct{})
	q.tails[key] = done
	q.mu.Unlock()

	release := func() {
		close(done)
		q.mu.Lock()
		if q.tails[key] == done {
			delete(q.tails, key)
		}
		q.mu.Unlock()
	}

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Closing the slot now would let the next caller overtake the
			// predecessor that is still running. Open it once prev closes.
			go func() {
				<-prev
				release()
			}()
			return ctx.Err()
		}
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}
