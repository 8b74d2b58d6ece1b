package world_sync

import "sync"

// Broadcaster fans values out to subscribers. Each subscriber holds at most one
// pending value: publishing to a lagging subscriber replaces what it has not read
// yet, so a reader always catches up to the latest value and never sees an older
// one after a newer one.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[chan T]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Broadcaster[T]) Subscribe() chan T {
	ch := make(chan T, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers v to all subscribers without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Replace the unread value; Publish is the only sender, so the retry succeeds.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
	b.mu.Unlock()
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
