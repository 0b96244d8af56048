package events

import (
	"sync"
	"time"
)

// Registry maps session tokens to channels. All access goes through one mutex,
// so a job and a websocket arriving concurrently for the same token always
// share a channel.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Acquire returns the channel for token, creating it if needed.
func (r *Registry) Acquire(token string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[token]
	if !ok {
		ch = NewChannel()
		r.channels[token] = ch
	}
	return ch
}

// Lookup returns the channel for token without creating one.
func (r *Registry) Lookup(token string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[token]
	return ch, ok
}

// Release removes token's entry if it still points at ch. A channel created
// for a later job under the same token is left alone.
func (r *Registry) Release(token string, ch *Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.channels[token]; ok && current == ch {
		delete(r.channels, token)
		return true
	}
	return false
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Sweep drops channels whose job finished more than ttl before now and
// returns the tokens removed.
func (r *Registry) Sweep(now time.Time, ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for token, ch := range r.channels {
		finishedAt, ok := ch.Finished()
		if !ok || now.Sub(finishedAt) <= ttl {
			continue
		}
		delete(r.channels, token)
		removed = append(removed, token)
	}
	return removed
}
