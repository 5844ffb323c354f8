// Package queue provides a bounded worker pool for blocking work.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueFull is returned when the task queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")
	// ErrDispatcherStopped is returned when trying to submit after the dispatcher is stopped.
	ErrDispatcherStopped = errors.New("dispatcher has been stopped")
)

// Task is a unit of work run by a worker.
type Task func(ctx context.Context)

type item struct {
	name string
	run  Task
}

// Dispatcher manages a fixed pool of workers draining a bounded queue.
type Dispatcher struct {
	name       string
	taskChan   chan item
	workerWg   sync.WaitGroup
	numWorkers int
	stopped    atomic.Bool
	stopCh     chan struct{}
	mu         sync.RWMutex
}

// NewDispatcher creates a new Dispatcher with the given configuration.
func NewDispatcher(name string, numWorkers, queueSize int) *Dispatcher {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 10
	}

	return &Dispatcher{
		name:       name,
		taskChan:   make(chan item, queueSize),
		numWorkers: numWorkers,
		stopCh:     make(chan struct{}),
	}
}

// Start starts the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("Starting dispatcher",
		"name", d.name,
		"workers", d.numWorkers,
		"queue_size", cap(d.taskChan),
	)

	for i := 0; i < d.numWorkers; i++ {
		d.workerWg.Add(1)
		go d.worker(ctx, i)
	}
}

// worker processes tasks from the task channel.
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.workerWg.Done()

	slog.Debug("Worker started", "dispatcher", d.name, "worker_id", id)

	for {
		select {
		case it, ok := <-d.taskChan:
			if !ok {
				slog.Debug("Worker stopping (channel closed)", "dispatcher", d.name, "worker_id", id)
				return
			}

			slog.Debug("Worker running task",
				"dispatcher", d.name,
				"worker_id", id,
				"task", it.name,
			)
			it.run(ctx)

		case <-ctx.Done():
			slog.Debug("Worker stopping (context canceled)", "dispatcher", d.name, "worker_id", id)
			return

		case <-d.stopCh:
			slog.Debug("Worker stopping (stop signal)", "dispatcher", d.name, "worker_id", id)
			return
		}
	}
}

// Enqueue adds a task to the queue without waiting for it to run.
// Returns ErrQueueFull if the queue is at capacity.
func (d *Dispatcher) Enqueue(name string, task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped.Load() {
		return ErrDispatcherStopped
	}

	select {
	case d.taskChan <- item{name: name, run: task}:
		slog.Debug("Task enqueued",
			"dispatcher", d.name,
			"task", name,
			"queue_size", len(d.taskChan),
		)
		return nil
	default:
		slog.Warn("Queue is full",
			"dispatcher", d.name,
			"task", name,
			"queue_size", len(d.taskChan),
		)
		return ErrQueueFull
	}
}

// Do submits fn and waits for its result. It blocks while the queue is full
// and returns early only if ctx ends before fn is queued. fn receives the
// caller's ctx, not the worker's.
func (d *Dispatcher) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	it := item{name: name, run: func(context.Context) {
		done <- fn(ctx)
	}}

	if err := d.submit(ctx, it); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-d.stopCh:
		return ErrDispatcherStopped
	}
}

func (d *Dispatcher) submit(ctx context.Context, it item) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped.Load() {
		return ErrDispatcherStopped
	}

	select {
	case d.taskChan <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopCh:
		return ErrDispatcherStopped
	}
}

// Stop gracefully stops the dispatcher.
func (d *Dispatcher) Stop() {
	if d.stopped.Swap(true) {
		return // Already stopped
	}

	slog.Info("Stopping dispatcher...", "name", d.name)

	// Signal workers and blocked submitters to stop
	close(d.stopCh)

	// Wait for in-flight submits before closing the channel
	d.mu.Lock()
	close(d.taskChan)
	d.mu.Unlock()

	d.workerWg.Wait()

	slog.Info("Dispatcher stopped", "name", d.name)
}

// QueueSize returns the current number of tasks in the queue.
func (d *Dispatcher) QueueSize() int {
	return len(d.taskChan)
}

// QueueCapacity returns the maximum capacity of the queue.
func (d *Dispatcher) QueueCapacity() int {
	return cap(d.taskChan)
}

// IsFull returns true if the queue is at capacity.
func (d *Dispatcher) IsFull() bool {
	return len(d.taskChan) >= cap(d.taskChan)
}

// WorkerCount returns the number of workers.
func (d *Dispatcher) WorkerCount() int {
	return d.numWorkers
}
