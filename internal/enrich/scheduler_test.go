// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// blockingRunner holds every run until release is closed or ctx ends.
type blockingRunner struct {
	release chan struct{}
	runs    atomic.Int32
}

func (b *blockingRunner) Run(ctx context.Context, p types.ResearchResult) Report {
	b.runs.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return Report{PaperID: p.ID, Err: ctx.Err()}
	}
	return Report{PaperID: p.ID, Paper: p, Persisted: true}
}

func TestSchedulerDeduplicatesInFlight(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	s := NewScheduler(r)
	defer s.Close()

	p := types.ResearchResult{ID: "ss-1"}
	j1 := s.Schedule(p)
	j2 := s.Schedule(p)
	assert.Same(t, j1, j2)
	assert.Equal(t, 1, s.Pending())
	assert.NotEqual(t, StatusDone, j1.Status())

	close(r.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rep, err := j1.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Persisted)
	assert.Equal(t, StatusDone, j1.Status())
	assert.Equal(t, int32(1), r.runs.Load())

	j3 := s.Schedule(p)
	assert.NotSame(t, j1, j3, "a finished job is not reused")
	_, err = j3.Wait(ctx)
	require.NoError(t, err)
}

func TestSchedulerJobTimeout(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	s := NewScheduler(r, WithJobTimeout(20*time.Millisecond))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rep, err := s.Schedule(types.ResearchResult{ID: "x"}).Wait(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, rep.Err, context.DeadlineExceeded)
}

func TestSchedulerWaitHonoursContext(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	s := NewScheduler(r)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Schedule(types.ResearchResult{ID: "x"}).Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchedulerClose(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	s := NewScheduler(r)
	j := s.Schedule(types.ResearchResult{ID: "x"})

	s.Close()
	select {
	case <-j.Done():
	default:
		t.Fatal("Close returned before the job finished")
	}
	assert.ErrorIs(t, j.report.Err, context.Canceled)

	late := s.Schedule(types.ResearchResult{ID: "y"})
	<-late.Done()
	assert.ErrorIs(t, late.report.Err, ErrSchedulerClosed)
}
