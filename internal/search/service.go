// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans a query out to the configured paper sources and the
// local store, merges and ranks what comes back, and caches the result at two
// layers: an in-memory TTL cache and a persistent search cache that also
// serves stale results when every provider is rate-limited.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/searchcache"
	"github.com/pdiddy/paper-radar/internal/ttlcache"
	"github.com/pdiddy/paper-radar/pkg/types"
)

var (
	// ErrEmptyQuery rejects blank queries.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrAllSourcesExhausted is returned when every provider is rate-limited,
	// no source produced a result and no stale cache entry exists.
	ErrAllSourcesExhausted = errors.New("all sources exhausted: every provider is rate-limited")
)

// Defaults applied when ServiceConfig fields are zero.
const (
	DefaultSlots             = 2
	DefaultLimit             = 20
	DefaultRateLimitCooldown = time.Minute

	// DefaultFlightTimeout bounds a shared search run, which outlives the
	// caller that started it.
	DefaultFlightTimeout = 2 * time.Minute
)

// LocalStore is the read side of the local durable store used in fan-out.
type LocalStore interface {
	Search(ctx context.Context, query string, offset, limit int) ([]types.ResearchResult, error)
}

// Request is one search call.
type Request struct {
	Query  string
	Offset int
	Limit  int
}

// SourceReport summarizes one source's contribution to a live search.
type SourceReport struct {
	Name        string `json:"name" yaml:"name"`
	Count       int    `json:"count" yaml:"count"`
	Err         string `json:"error,omitempty" yaml:"error,omitempty"`
	RateLimited bool   `json:"rate_limited" yaml:"rate_limited"`

	// Skipped is set for providers still cooling down from a rate limit.
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Response is the ranked result list plus how it was produced.
type Response struct {
	Query   string                 `json:"query" yaml:"query"`
	Results []types.ResearchResult `json:"results" yaml:"results"`
	Sources []SourceReport         `json:"sources,omitempty" yaml:"sources,omitempty"`

	// FromCache is set when the results came from either cache layer.
	FromCache bool `json:"from_cache" yaml:"from_cache"`

	// Stale is set when the results came from an expired persistent entry.
	Stale bool `json:"stale" yaml:"stale"`
}

// ServiceConfig wires a Service. Sources and Local may be empty; Memo and
// Persistent may be nil to disable that cache layer.
type ServiceConfig struct {
	Sources    []Source
	Local      LocalStore
	Memo       *ttlcache.Cache[[]types.ResearchResult]
	Persistent *searchcache.Cache

	Slots             int
	DefaultLimit      int
	RateLimitCooldown time.Duration
	FlightTimeout     time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Service runs searches.
type Service struct {
	sources    []Source
	local      LocalStore
	memo       *ttlcache.Cache[[]types.ResearchResult]
	persistent *searchcache.Cache

	slots        int
	defaultLimit int
	cooldown     time.Duration
	flightTTL    time.Duration
	logger       *slog.Logger
	now          func() time.Time

	flight singleflight.Group

	mu           sync.Mutex
	limitedUntil map[string]time.Time
}

// NewService builds a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		sources:      cfg.Sources,
		local:        cfg.Local,
		memo:         cfg.Memo,
		persistent:   cfg.Persistent,
		slots:        cfg.Slots,
		defaultLimit: cfg.DefaultLimit,
		cooldown:     cfg.RateLimitCooldown,
		flightTTL:    cfg.FlightTimeout,
		logger:       logging.NewComponentLogger(cfg.Logger, "search"),
		now:          cfg.Now,
		limitedUntil: make(map[string]time.Time),
	}
	if s.slots <= 0 {
		s.slots = DefaultSlots
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = DefaultLimit
	}
	if s.cooldown == 0 {
		s.cooldown = DefaultRateLimitCooldown
	}
	if s.flightTTL <= 0 {
		s.flightTTL = DefaultFlightTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Search returns ranked, deduplicated results for req. Individual source
// failures contribute nothing rather than failing the call; the only error
// besides validation and cancellation is ErrAllSourcesExhausted.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return Response{}, ErrEmptyQuery
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Limit <= 0 {
		req.Limit = s.defaultLimit
	}

	key := memoKey(q, req.Offset, req.Limit)
	if s.memo != nil {
		if cached, ok := s.memo.Get(key); ok {
			return Response{Query: q, Results: types.CloneResults(cached), FromCache: true}, nil
		}
	}
	if s.persistent != nil && req.Offset == 0 {
		if hit, ok := s.persistent.Get(ctx, q); ok && len(hit.Results) > 0 {
			results := limit(hit.Results, req.Limit)
			if s.memo != nil {
				s.memo.Set(key, types.CloneResults(results))
			}
			return Response{Query: q, Results: results, FromCache: true}, nil
		}
	}

	// The shared run is detached from every caller; each caller stops
	// waiting on its own cancellation only.
	ch := s.flight.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTTL)
		defer cancel()
		return s.live(runCtx, q, req.Offset, req.Limit, key)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	if res.Err != nil {
		return Response{}, res.Err
	}
	v := res.Val
	resp, ok := v.(Response)
	if !ok {
		return Response{}, fmt.Errorf("unexpected type from search flight: got %T", v)
	}
	resp.Results = types.CloneResults(resp.Results)
	return resp, nil
}

type unit struct {
	name     string
	provider bool
	run      func(ctx context.Context) ([]types.ResearchResult, error)
}

type outcome struct {
	results []types.ResearchResult
	err     error
}

func (s *Service) live(ctx context.Context, q string, offset, lim int, key string) (Response, error) {
	var (
		units   []unit
		reports []SourceReport
	)
	for _, src := range s.sources {
		if s.coolingDown(src.Name()) {
			reports = append(reports, SourceReport{Name: src.Name(), RateLimited: true, Skipped: true})
			continue
		}
		units = append(units, unit{name: src.Name(), provider: true, run: func(ctx context.Context) ([]types.ResearchResult, error) {
			return src.Search(ctx, q, offset, lim)
		}})
	}
	if s.local != nil {
		units = append(units, unit{name: types.SourceLocal, run: func(ctx context.Context) ([]types.ResearchResult, error) {
			return s.local.Search(ctx, q, offset, lim)
		}})
	}

	outcomes := s.fanOut(ctx, units)
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	providers, failed, limited := countSkipped(reports)
	sets := make([][]types.ResearchResult, 0, len(units))
	for i, u := range units {
		o := outcomes[i]
		rep := SourceReport{Name: u.name, Count: len(o.results)}
		if o.err != nil {
			rep.Err = o.err.Error()
			rep.RateLimited = httputil.IsRateLimited(o.err)
			s.logger.Warn("source failed", logging.Source(u.name), logging.Query(q), logging.Error(o.err))
			if rep.RateLimited && u.provider {
				s.markLimited(u.name)
			}
		}
		if u.provider {
			providers++
			if o.err != nil {
				failed++
			}
			if rep.RateLimited {
				limited++
			}
		}
		reports = append(reports, rep)
		sets = append(sets, o.results)
	}

	merged := Results(Merge(sets...))
	resp := Response{Query: q, Sources: reports}

	if len(merged) == 0 && providers > 0 && failed == providers {
		if s.persistent != nil {
			if hit, ok := s.persistent.LastResort(ctx, q); ok && len(hit.Results) > 0 {
				s.logger.Info("serving stale search results",
					logging.Query(q), logging.Duration("age", s.now().Sub(hit.StoredAt)))
				resp.Results = limit(hit.Results, lim)
				resp.FromCache = true
				resp.Stale = true
				return resp, nil
			}
		}
		if limited == providers {
			return Response{}, ErrAllSourcesExhausted
		}
	}

	resp.Results = limit(merged, lim)
	if len(merged) > 0 {
		if s.memo != nil {
			s.memo.Set(key, types.CloneResults(resp.Results))
		}
		if s.persistent != nil && offset == 0 {
			if err := s.persistent.Put(ctx, q, merged); err != nil {
				s.logger.Warn("persist search results", logging.Query(q), logging.Error(err))
			}
		}
	}
	s.logger.Debug("search complete", logging.Query(q), logging.Int("results", len(resp.Results)))
	return resp, nil
}

// fanOut spreads units round-robin over the slots. Each slot walks its
// units one after another; slots run concurrently.
func (s *Service) fanOut(ctx context.Context, units []unit) []outcome {
	outcomes := make([]outcome, len(units))
	if len(units) == 0 {
		return outcomes
	}

	slots := min(s.slots, len(units))
	lanes := make([][]int, slots)
	for i := range units {
		lanes[i%slots] = append(lanes[i%slots], i)
	}

	var g errgroup.Group
	for _, lane := range lanes {
		g.Go(func() error {
			for _, i := range lane {
				if err := ctx.Err(); err != nil {
					outcomes[i] = outcome{err: err}
					continue
				}
				res, err := units[i].run(ctx)
				outcomes[i] = outcome{results: res, err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) coolingDown(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.limitedUntil[name]
	if !ok {
		return false
	}
	if s.now().After(until) {
		delete(s.limitedUntil, name)
		return false
	}
	return true
}

func (s *Service) markLimited(name string) {
	if s.cooldown < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitedUntil[name] = s.now().Add(s.cooldown)
}

// countSkipped counts cooled-down providers as rate-limited failures.
func countSkipped(reports []SourceReport) (providers, failed, limited int) {
	for _, r := range reports {
		if r.Skipped {
			providers++
			failed++
			limited++
		}
	}
	return providers, failed, limited
}

func memoKey(q string, offset, limit int) string {
	return fmt.Sprintf("%s|%d|%d", searchcache.Normalize(q), offset, limit)
}

func limit(rs []types.ResearchResult, n int) []types.ResearchResult {
	if n > 0 && len(rs) > n {
		return rs[:n]
	}
	return rs
}
