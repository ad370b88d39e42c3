// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// DefaultJobTimeout bounds one scheduled pipeline run.
const DefaultJobTimeout = 5 * time.Minute

// ErrSchedulerClosed is reported by jobs scheduled after Close.
var ErrSchedulerClosed = errors.New("enrichment scheduler closed")

// Runner runs enrichment for one record. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, paper types.ResearchResult) Report
}

// Status is the lifecycle state of a Job.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	default:
		return "pending"
	}
}

// Job is a handle on a background enrichment run.
type Job struct {
	paperID string
	status  atomic.Int32
	done    chan struct{}
	report  Report
}

// PaperID returns the ID of the record being enriched.
func (j *Job) PaperID() string { return j.paperID }

// Done is closed when the run has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Status returns the job's current state.
func (j *Job) Status() Status { return Status(j.status.Load()) }

// Wait blocks until the run finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (Report, error) {
	select {
	case <-j.done:
		return j.report, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (j *Job) finish(r Report) {
	j.report = r
	j.status.Store(int32(StatusDone))
	close(j.done)
}

// Scheduler runs pipelines in the background, detached from the request that
// triggered them. At most one job per paper ID is in flight.
type Scheduler struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger

	base   context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithJobTimeout overrides DefaultJobTimeout.
func WithJobTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a Scheduler for r.
func NewScheduler(r Runner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:  r,
		timeout: DefaultJobTimeout,
		logger:  logging.NewNop(),
		jobs:    make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "scheduler")
	s.base, s.cancel = context.WithCancelCause(context.Background())
	return s
}

// Schedule starts enrichment of paper and returns immediately. A paper whose
// job is still in flight gets the existing job back.
func (s *Scheduler) Schedule(paper types.ResearchResult) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[paper.ID]; ok {
		return j
	}
	j := &Job{paperID: paper.ID, done: make(chan struct{})}
	if s.closed {
		j.finish(Report{PaperID: paper.ID, Err: ErrSchedulerClosed})
		return j
	}
	s.jobs[paper.ID] = j

	s.wg.Add(1)
	go s.run(j, paper.Clone())
	return j
}

// Pending returns the number of jobs in flight.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) run(j *Job, paper types.ResearchResult) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()

	j.status.Store(int32(StatusRunning))
	s.logger.Debug("enrichment started", logging.PaperID(paper.ID))

	rep := s.runner.Run(ctx, paper)
	if rep.Err != nil {
		s.logger.Warn("enrichment finished with error",
			logging.PaperID(paper.ID), logging.Error(rep.Err))
	}

	s.mu.Lock()
	delete(s.jobs, paper.ID)
	s.mu.Unlock()
	j.finish(rep)
}

// Close cancels outstanding jobs with cause ErrSchedulerClosed and waits for
// them to return. Interrupted runs are not persisted. Jobs scheduled
// afterwards finish immediately with ErrSchedulerClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel(ErrSchedulerClosed)
	s.wg.Wait()
}
