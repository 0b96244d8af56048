package events_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sipc/internal/events"
)

func TestChannelPreservesOrder(t *testing.T) {
	ch := events.NewChannel()
	for i := 0; i < 100; i++ {
		ch.Publish(events.Message(fmt.Sprint(i)))
	}
	ch.Publish(events.Done())

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		e, err := ch.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if e.Log.Message != fmt.Sprint(i) {
			t.Fatalf("event %d out of order: %q", i, e.Log.Message)
		}
	}
	e, err := ch.Next(ctx)
	if err != nil || !e.IsDone() {
		t.Fatalf("expected Done last, got %#v (%v)", e, err)
	}
	if _, ok := ch.Finished(); !ok {
		t.Fatal("expected channel to be finished")
	}
}

func TestChannelNextWaitsForPublish(t *testing.T) {
	ch := events.NewChannel()
	got := make(chan events.Event, 1)
	go func() {
		e, err := ch.Next(context.Background())
		if err == nil {
			got <- e
		}
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Publish(events.Result("/download/x"))

	select {
	case e := <-got:
		if e.Result != "/download/x" {
			t.Fatalf("unexpected event: %#v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not woken by Publish")
	}
}

func TestChannelNextHonoursContext(t *testing.T) {
	ch := events.NewChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := ch.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestChannelConcurrentProducers(t *testing.T) {
	ch := events.NewChannel()
	const producers, perProducer = 8, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ch.Publish(events.Message(fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}

	last := make(map[int]int, producers)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for n := 0; n < producers*perProducer; n++ {
		e, err := ch.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed after %d events: %v", n, err)
		}
		var p, i int
		if _, err := fmt.Sscanf(e.Log.Message, "%d-%d", &p, &i); err != nil {
			t.Fatalf("parse %q: %v", e.Log.Message, err)
		}
		if i != last[p]+1 {
			t.Fatalf("producer %d: event %d arrived after %d", p, i, last[p])
		}
		last[p] = i
	}
	wg.Wait()
	if ch.Len() != 0 {
		t.Fatalf("expected empty channel, got %d", ch.Len())
	}
}
