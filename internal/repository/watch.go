package repository

import (
	"context"
	"sync"
)

// broadcaster fans full-list snapshots out to watch subscribers.
// Sends never block a writer: a subscriber that has not drained its
// buffer keeps only the latest snapshot.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[chan T]struct{})}
}

func (b *broadcaster[T]) subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (b *broadcaster[T]) publish(snapshot T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		// Drop the stale snapshot if the subscriber has not read it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
