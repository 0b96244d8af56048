// Package events defines the progress events a compression job emits and the
// per-session channels that carry them to a consumer.
//
// A Channel is an unbounded FIFO: producers never block, a single consumer
// waits in Next. The Registry maps session tokens to channels and hands out
// the same channel to whichever side (job or websocket) arrives first.
package events
