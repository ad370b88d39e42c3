// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue implements the rate-limited request dispatcher that every
// outbound provider and AI call passes through. A single drain goroutine runs
// tasks one at a time, keeps a minimum gap between dispatches, and pauses for
// a random jitter after each one.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Defaults applied when a Config field is zero.
const (
	DefaultMinDelay  = time.Second
	DefaultJitterMax = time.Second
)

// ErrClosed is returned for tasks that were still pending when the queue closed.
var ErrClosed = errors.New("queue closed")

// Class is a task's admission class.
type Class int

const (
	// Normal tasks join the back of the queue and run in arrival order.
	Normal Class = iota

	// Priority tasks are inserted at the front of the queue. Several priority
	// tasks admitted before the dispatcher reaches them run newest first.
	Priority
)

func (c Class) String() string {
	switch c {
	case Normal:
		return "normal"
	case Priority:
		return "priority"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Result is delivered once per task.
type Result struct {
	Value any
	Err   error
}

// Dispatch describes one task handed to its function.
type Dispatch struct {
	Source string
	Class  Class
	At     time.Time
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Dispatched int
	Failed     int
	Pending    int
}

type task struct {
	ctx    context.Context
	class  Class
	source string
	fn     func(context.Context) (any, error)
	done   chan Result
}

// Queue serializes outbound calls. Construct one with New and share it
// between every consumer that must respect the same spacing.
type Queue struct {
	minDelay   time.Duration
	jitterMax  time.Duration
	rnd        func() float64
	onDispatch func(Dispatch)
	logger     *slog.Logger

	mu          sync.Mutex
	tasks       []*task
	draining    bool
	closed      bool
	lastRequest time.Time
	dispatched  int
	failed      int

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for dispatch and failure records.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithRand replaces the jitter source; fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(q *Queue) { q.rnd = fn }
}

// WithOnDispatch registers a hook called just before each task runs.
// The hook runs on the dispatcher goroutine and must not block.
func WithOnDispatch(fn func(Dispatch)) Option {
	return func(q *Queue) { q.onDispatch = fn }
}

// New creates a Queue. Zero fields in cfg take the package defaults; a
// negative JitterMax disables the jitter pause.
func New(cfg types.QueueConfig, opts ...Option) *Queue {
	q := &Queue{
		minDelay:  cfg.MinDelay,
		jitterMax: cfg.JitterMax,
		rnd:       rand.Float64,
		stop:      make(chan struct{}),
	}
	if q.minDelay <= 0 {
		q.minDelay = DefaultMinDelay
	}
	if q.jitterMax == 0 {
		q.jitterMax = DefaultJitterMax
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = logging.NewComponentLogger(q.logger, "queue")
	return q
}

// Add admits fn under class and returns a channel that receives exactly one
// Result. The source tag is used for logging only. If ctx is done before the
// dispatcher reaches the task, the task is skipped and resolved with ctx.Err().
func (q *Queue) Add(ctx context.Context, class Class, source string, fn func(context.Context) (any, error)) <-chan Result {
	t := &task{ctx: ctx, class: class, source: source, fn: fn, done: make(chan Result, 1)}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		t.done <- Result{Err: ErrClosed}
		return t.done
	}

	if class == Priority {
		q.tasks = append([]*task{t}, q.tasks...)
	} else {
		q.tasks = append(q.tasks, t)
	}

	if !q.draining {
		q.draining = true
		q.wg.Add(1)
		go q.drain()
	}
	return t.done
}

// Do runs fn through q and returns its typed result. It returns as soon as
// ctx is done, even if the task is still waiting in the queue.
func Do[T any](ctx context.Context, q *Queue, class Class, source string, fn func(context.Context) (T, error)) (T, error) {
	ch := q.Add(ctx, class, source, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		v, _ := r.Value.(T)
		return v, nil
	}
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Dispatched: q.dispatched, Failed: q.failed, Pending: len(q.tasks)}
}

// Close stops the dispatcher, resolves pending tasks with ErrClosed and waits
// for a running task to finish.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		pending := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		close(q.stop)
		for _, t := range pending {
			t.done <- Result{Err: ErrClosed}
		}
	})
	q.wg.Wait()
}

func (q *Queue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.closed || len(q.tasks) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		wait := q.minDelay - time.Since(q.lastRequest)
		q.mu.Unlock()

		if wait > 0 && !q.sleep(wait) {
			continue
		}

		q.mu.Lock()
		if q.closed || len(q.tasks) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		t := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		if err := t.ctx.Err(); err != nil {
			t.done <- Result{Err: err}
			continue
		}

		q.run(t)

		if q.jitterMax > 0 {
			q.sleep(time.Duration(q.rnd() * float64(q.jitterMax)))
		}
	}
}

func (q *Queue) run(t *task) {
	if q.onDispatch != nil {
		q.onDispatch(Dispatch{Source: t.source, Class: t.class, At: time.Now()})
	}
	q.logger.Debug("dispatching task", logging.Source(t.source), logging.String("class", t.class.String()))

	v, err := q.invoke(t)

	q.mu.Lock()
	q.lastRequest = time.Now()
	q.dispatched++
	if err != nil {
		q.failed++
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Debug("task failed", logging.Source(t.source), logging.Error(err))
	}
	t.done <- Result{Value: v, Err: err}
}

func (q *Queue) invoke(t *task) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.source, r)
		}
	}()
	return t.fn(t.ctx)
}

// sleep waits for d and reports false if the queue closed first.
func (q *Queue) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-q.stop:
		return false
	}
}
