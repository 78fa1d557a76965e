package watch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rugwatch/internal/domain"
)

func queuedEvent(sig string) *domain.CreationEvent {
	return &domain.CreationEvent{Mint: "mint-" + sig, Signature: sig}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(8)
	ctx := context.Background()

	for _, sig := range []string{"a", "b", "c"} {
		if evicted := q.Push(queuedEvent(sig)); evicted {
			t.Fatalf("push %s evicted from a non-full queue", sig)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		event, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("Pop returned ok=false with events pending")
		}
		if event.Signature != want {
			t.Errorf("popped %s, want %s", event.Signature, want)
		}
	}
}

func TestQueue_DropOldestOnOverflow(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()

	q.Push(queuedEvent("a"))
	q.Push(queuedEvent("b"))
	if evicted := q.Push(queuedEvent("c")); !evicted {
		t.Fatal("push into a full queue should report an eviction")
	}

	if got := q.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	// The oldest event is gone; the two newest remain in order.
	for _, want := range []string{"b", "c"} {
		event, ok := q.Pop(ctx)
		if !ok {
			t.Fatal("Pop returned ok=false with events pending")
		}
		if event.Signature != want {
			t.Errorf("popped %s, want %s", event.Signature, want)
		}
	}
}

func TestQueue_PushNeverBlocks(t *testing.T) {
	q := NewQueue(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			q.Push(queuedEvent(fmt.Sprintf("s%d", i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked on a full queue")
	}

	if got := q.Dropped(); got != 99 {
		t.Errorf("Dropped() = %d, want 99", got)
	}
	event, ok := q.Pop(context.Background())
	if !ok || event.Signature != "s99" {
		t.Errorf("surviving event = %v, want s99", event)
	}
}

func TestQueue_PopHonorsContext(t *testing.T) {
	q := NewQueue(4)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if event, ok := q.Pop(cancelled); ok || event != nil {
		t.Errorf("Pop with cancelled context = (%v, %v), want (nil, false)", event, ok)
	}

	// A blocked Pop wakes up when the context is cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	popped := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(ctx)
		popped <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-popped:
		if ok {
			t.Error("Pop returned ok=true after cancellation on an empty queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after context cancellation")
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	q.Push(queuedEvent("a"))
	q.Push(queuedEvent("b"))
	q.Close()

	// Pending events survive the close.
	for _, want := range []string{"a", "b"} {
		event, ok := q.Pop(ctx)
		if !ok || event.Signature != want {
			t.Fatalf("Pop after close = (%v, %v), want %s", event, ok, want)
		}
	}

	if event, ok := q.Pop(ctx); ok || event != nil {
		t.Errorf("Pop on a drained closed queue = (%v, %v), want (nil, false)", event, ok)
	}
}

func TestQueue_MinimumCapacity(t *testing.T) {
	q := NewQueue(0)
	if q.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", q.Cap())
	}
}
