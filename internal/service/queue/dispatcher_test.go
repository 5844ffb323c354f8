package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_ReturnsTaskResult(t *testing.T) {
	d := NewDispatcher("test", 2, 4)
	d.Start(context.Background())
	defer d.Stop()

	want := errors.New("boom")
	if err := d.Do(context.Background(), "fail", func(ctx context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("Do() error = %v, want %v", err, want)
	}
	if err := d.Do(context.Background(), "ok", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}

func TestDo_BoundsConcurrency(t *testing.T) {
	const workers = 2
	d := NewDispatcher("test", workers, 1)
	d.Start(context.Background())
	defer d.Stop()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Do(context.Background(), "work", func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > workers {
		t.Fatalf("peak concurrency = %d, want <= %d", p, workers)
	}
}

func TestEnqueue_QueueFull(t *testing.T) {
	d := NewDispatcher("test", 1, 1)
	// Not started: nothing drains the queue.
	if err := d.Enqueue("a", func(ctx context.Context) {}); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}
	if !d.IsFull() {
		t.Fatal("expected queue to be full")
	}
	if err := d.Enqueue("b", func(ctx context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDo_ContextCanceledWhileQueueFull(t *testing.T) {
	d := NewDispatcher("test", 1, 1)
	d.Enqueue("fill", func(ctx context.Context) {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Do(ctx, "blocked", func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStop(t *testing.T) {
	d := NewDispatcher("test", 1, 1)
	d.Start(context.Background())

	ran := make(chan struct{})
	if err := d.Enqueue("a", func(ctx context.Context) { close(ran) }); err != nil {
		t.Fatal(err)
	}
	<-ran
	d.Stop()
	d.Stop()

	if err := d.Enqueue("b", func(ctx context.Context) {}); !errors.Is(err, ErrDispatcherStopped) {
		t.Fatalf("expected ErrDispatcherStopped, got %v", err)
	}
	if err := d.Do(context.Background(), "c", func(ctx context.Context) error { return nil }); !errors.Is(err, ErrDispatcherStopped) {
		t.Fatalf("expected ErrDispatcherStopped, got %v", err)
	}
}
