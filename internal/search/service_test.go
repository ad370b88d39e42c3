// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/kv"
	"github.com/pdiddy/paper-radar/internal/searchcache"
	"github.com/pdiddy/paper-radar/internal/ttlcache"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// --- mock source ---

type mockSource struct {
	name    string
	results []types.ResearchResult
	err     error
	delay   time.Duration
	calls   atomic.Int32

	// inflight tracking shared across sources
	active    *atomic.Int32
	maxActive *atomic.Int32
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Search(ctx context.Context, _ string, _, _ int) ([]types.ResearchResult, error) {
	m.calls.Add(1)
	if m.active != nil {
		n := m.active.Add(1)
		defer m.active.Add(-1)
		for {
			cur := m.maxActive.Load()
			if n <= cur || m.maxActive.CompareAndSwap(cur, n) {
				break
			}
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.results, m.err
}

func (m *mockSource) Detail(context.Context, string) (*types.ResearchResult, error) {
	return nil, nil
}

type mockLocal struct {
	results []types.ResearchResult
	calls   atomic.Int32
}

func (m *mockLocal) Search(context.Context, string, int, int) ([]types.ResearchResult, error) {
	m.calls.Add(1)
	return m.results, nil
}

func rateLimitErr() error {
	return errors.Join(httputil.ErrRateLimitExceeded, &httputil.StatusError{StatusCode: 429})
}

func newTestService(sources []Source, local LocalStore, store kv.Store) *Service {
	return NewService(ServiceConfig{
		Sources:    sources,
		Local:      local,
		Memo:       ttlcache.New[[]types.ResearchResult](5 * time.Minute),
		Persistent: searchcache.New(store),
	})
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestService(nil, nil, kv.NewMemoryStore())
	_, err := s.Search(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchSecondReadHitsCache(t *testing.T) {
	ss := &mockSource{name: types.SourceSemanticScholar, results: []types.ResearchResult{complete("ss-1", types.SourceSemanticScholar)}}
	pwc := &mockSource{name: types.SourcePapersWithCode, results: []types.ResearchResult{complete("pwc-1", types.SourcePapersWithCode)}}
	s := newTestService([]Source{ss, pwc}, nil, kv.NewMemoryStore())
	ctx := context.Background()

	first, err := s.Search(ctx, Request{Query: "transformer attention", Limit: 10})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := s.Search(ctx, Request{Query: "transformer attention", Limit: 10})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, int32(1), ss.calls.Load())
	assert.Equal(t, int32(1), pwc.calls.Load())
}

func TestSearchPopulatesPersistentCache(t *testing.T) {
	store := kv.NewMemoryStore()
	ss := &mockSource{name: types.SourceSemanticScholar, results: []types.ResearchResult{complete("ss-1", types.SourceSemanticScholar)}}
	s := newTestService([]Source{ss}, nil, store)

	_, err := s.Search(context.Background(), Request{Query: "Transformer  Attention"})
	require.NoError(t, err)

	_, ok, err := store.Get(context.Background(), searchcache.DefaultPrefix+"transformer attention")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSearchPersistentCacheServesFreshProcess(t *testing.T) {
	store := kv.NewMemoryStore()
	ss := &mockSource{name: types.SourceSemanticScholar, results: []types.ResearchResult{complete("ss-1", types.SourceSemanticScholar)}}
	_, err := newTestService([]Source{ss}, nil, store).Search(context.Background(), Request{Query: "gnn"})
	require.NoError(t, err)

	again := &mockSource{name: types.SourceSemanticScholar}
	resp, err := newTestService([]Source{again}, nil, store).Search(context.Background(), Request{Query: "gnn"})
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, int32(0), again.calls.Load())
}

func TestSearchSourceFailureContributesEmpty(t *testing.T) {
	ok := &mockSource{name: types.SourceSemanticScholar, results: []types.ResearchResult{complete("ss-1", types.SourceSemanticScholar)}}
	bad := &mockSource{name: types.SourcePapersWithCode, err: errors.New("connection reset")}
	local := &mockLocal{results: []types.ResearchResult{complete("8f14e45f-ceea-467f-a0e6-4e7a3f2b9c1d", types.SourceLocal)}}
	s := newTestService([]Source{ok, bad}, local, kv.NewMemoryStore())

	resp, err := s.Search(context.Background(), Request{Query: "diffusion"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)

	byName := map[string]SourceReport{}
	for _, r := range resp.Sources {
		byName[r.Name] = r
	}
	assert.Equal(t, 1, byName[types.SourceSemanticScholar].Count)
	assert.Equal(t, "connection reset", byName[types.SourcePapersWithCode].Err)
	assert.False(t, byName[types.SourcePapersWithCode].RateLimited)
	assert.Equal(t, 1, byName[types.SourceLocal].Count)
}

func TestSearchAllRateLimitedServesStale(t *testing.T) {
	store := kv.NewMemoryStore()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	pc := searchcache.New(store, searchcache.WithClock(func() time.Time { return now }))
	require.NoError(t, pc.Put(context.Background(), "gan", []types.ResearchResult{complete("ss-old", types.SourceSemanticScholar)}))
	now = now.Add(72 * time.Hour)

	s := NewService(ServiceConfig{
		Sources: []Source{
			&mockSource{name: types.SourceSemanticScholar, err: rateLimitErr()},
			&mockSource{name: types.SourcePapersWithCode, err: rateLimitErr()},
		},
		Persistent: pc,
	})

	resp, err := s.Search(context.Background(), Request{Query: "GAN"})
	require.NoError(t, err)
	assert.True(t, resp.Stale)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ss-old", resp.Results[0].ID)
}

func TestSearchAllRateLimitedNoCache(t *testing.T) {
	s := newTestService([]Source{
		&mockSource{name: types.SourceSemanticScholar, err: rateLimitErr()},
		&mockSource{name: types.SourcePapersWithCode, err: rateLimitErr()},
	}, &mockLocal{}, kv.NewMemoryStore())

	_, err := s.Search(context.Background(), Request{Query: "gan"})
	assert.ErrorIs(t, err, ErrAllSourcesExhausted)
}

func TestSearchRateLimitedButLocalHasResults(t *testing.T) {
	local := &mockLocal{results: []types.ResearchResult{complete("8f14e45f-ceea-467f-a0e6-4e7a3f2b9c1d", types.SourceLocal)}}
	s := newTestService([]Source{
		&mockSource{name: types.SourceSemanticScholar, err: rateLimitErr()},
	}, local, kv.NewMemoryStore())

	resp, err := s.Search(context.Background(), Request{Query: "gan"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestSearchMixedFailuresReturnEmpty(t *testing.T) {
	s := newTestService([]Source{
		&mockSource{name: types.SourceSemanticScholar, err: rateLimitErr()},
		&mockSource{name: types.SourcePapersWithCode, err: errors.New("boom")},
	}, nil, kv.NewMemoryStore())

	resp, err := s.Search(context.Background(), Request{Query: "gan"})
	require.NoError(t, err, "only an all-rate-limited failure is an error")
	assert.Empty(t, resp.Results)
}

func TestSearchSkipsProviderDuringCooldown(t *testing.T) {
	limited := &mockSource{name: types.SourceSemanticScholar, err: rateLimitErr()}
	other := &mockSource{name: types.SourcePapersWithCode, results: []types.ResearchResult{complete("pwc-1", types.SourcePapersWithCode)}}
	s := newTestService([]Source{limited, other}, nil, kv.NewMemoryStore())

	_, err := s.Search(context.Background(), Request{Query: "first"})
	require.NoError(t, err)
	resp, err := s.Search(context.Background(), Request{Query: "second"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), limited.calls.Load())
	var skipped bool
	for _, r := range resp.Sources {
		if r.Name == types.SourceSemanticScholar {
			skipped = r.Skipped
		}
	}
	assert.True(t, skipped)
}

func TestSearchBoundsConcurrencyToSlots(t *testing.T) {
	var active, maxActive atomic.Int32
	var sources []Source
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		sources = append(sources, &mockSource{
			name: name, delay: 20 * time.Millisecond,
			results:   []types.ResearchResult{complete(name, name)},
			active:    &active,
			maxActive: &maxActive,
		})
	}
	s := NewService(ServiceConfig{Sources: sources, Slots: 2})

	resp, err := s.Search(context.Background(), Request{Query: "slots"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)
	assert.LessOrEqual(t, maxActive.Load(), int32(2))
	for _, src := range sources {
		assert.Equal(t, int32(1), src.(*mockSource).calls.Load())
	}
}

func TestSearchCollapsesConcurrentIdenticalQueries(t *testing.T) {
	src := &mockSource{
		name:    types.SourceSemanticScholar,
		delay:   50 * time.Millisecond,
		results: []types.ResearchResult{complete("ss-1", types.SourceSemanticScholar)},
	}
	s := NewService(ServiceConfig{
		Sources: []Source{src},
		Memo:    ttlcache.New[[]types.ResearchResult](time.Minute),
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.Search(context.Background(), Request{Query: "same query"})
			assert.NoError(t, err)
			assert.Len(t, resp.Results, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSearchSharedRunSurvivesCancelledCaller(t *testing.T) {
	src := &mockSource{
		name:    types.SourceSemanticScholar,
		delay:   200 * time.Millisecond,
		results: []types.ResearchResult{complete("ss-1", types.SourceSemanticScholar)},
	}
	s := NewService(ServiceConfig{Sources: []Source{src}})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := s.Search(leaderCtx, Request{Query: "shared"})
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	followerDone := make(chan struct{})
	var (
		resp Response
		err  error
	)
	go func() {
		defer close(followerDone)
		resp, err = s.Search(context.Background(), Request{Query: "shared"})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	<-followerDone
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSearchLimitsResults(t *testing.T) {
	var many []types.ResearchResult
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		many = append(many, complete("ss-"+id, types.SourceSemanticScholar))
	}
	s := NewService(ServiceConfig{Sources: []Source{&mockSource{name: types.SourceSemanticScholar, results: many}}})

	resp, err := s.Search(context.Background(), Request{Query: "x", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}
