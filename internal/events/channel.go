package events

import (
	"context"
	"sync"
	"time"
)

// Channel is an unbounded FIFO of events for one session. Any number of
// goroutines may publish; one consumer reads with Next.
type Channel struct {
	mu         sync.Mutex
	queue      []Event
	ready      chan struct{}
	finishedAt time.Time
}

// NewChannel returns an empty channel.
func NewChannel() *Channel {
	return &Channel{ready: make(chan struct{}, 1)}
}

// Publish appends e. It never blocks.
func (c *Channel) Publish(e Event) {
	c.mu.Lock()
	c.queue = append(c.queue, e)
	if e.IsDone() {
		c.finishedAt = time.Now()
	}
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Next removes and returns the oldest event, waiting until one is available
// or ctx ends.
func (c *Channel) Next(ctx context.Context) (Event, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			e := c.queue[0]
			c.queue[0] = Event{}
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-c.ready:
		}
	}
}

// Len returns the number of undelivered events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Finished reports whether a Done event has been published and when.
func (c *Channel) Finished() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishedAt, !c.finishedAt.IsZero()
}
