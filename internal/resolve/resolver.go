// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve fetches a single paper by opaque identifier. It classifies
// the identifier, then tries the detail cache, the owning provider and the
// local store in turn, and schedules background enrichment for records that
// have not been analyzed yet.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/paper-radar/internal/enrich"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/search"
	"github.com/pdiddy/paper-radar/internal/ttlcache"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// DefaultDetailTTL applies when Config.CacheTTL is zero.
const DefaultDetailTTL = time.Hour

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("paper not found")

	// ErrEmptyID is returned for a blank identifier.
	ErrEmptyID = errors.New("empty paper id")
)

// NotFoundError reports an identifier no backend could resolve. Cause holds
// the provider failure, if any, that may explain the miss.
type NotFoundError struct {
	ID           string
	Kind         Kind
	ClassifiedID string
	Cause        error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("paper %q not found (classified as %s id %q)", e.ID, e.Kind, e.ClassifiedID)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Unwrap returns the provider failure.
func (e *NotFoundError) Unwrap() error { return e.Cause }

// LocalStore is the subset of the durable store used as fallback.
type LocalStore interface {
	Get(ctx context.Context, id string) (*types.ResearchResult, error)
	GetByProviderID(ctx context.Context, providerID string) (*types.ResearchResult, error)
}

// Scheduler starts background enrichment.
type Scheduler interface {
	Schedule(paper types.ResearchResult) *enrich.Job
}

// Config wires a Resolver. Nil Store and Scheduler are allowed.
type Config struct {
	Providers map[Kind]search.Source
	Store     LocalStore
	Scheduler Scheduler
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

// Resolution is the result of Resolve. Job is nil when no enrichment was
// scheduled.
type Resolution struct {
	Detail types.PaperDetail
	Job    *enrich.Job
	Cached bool
}

// Resolver implements detail lookups.
type Resolver struct {
	providers map[Kind]search.Source
	store     LocalStore
	scheduler Scheduler
	cache     *ttlcache.Cache[types.PaperDetail]
	logger    *slog.Logger

	mu      sync.Mutex
	aliases map[string][]string // paper ID -> cache keys holding it
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultDetailTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		providers: cfg.Providers,
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		cache:     ttlcache.New[types.PaperDetail](ttl),
		logger:    logging.NewComponentLogger(logger, "resolver"),
		aliases:   make(map[string][]string),
	}
}

// Resolve returns the paper identified by id. A record that is not yet
// analyzed is handed to the scheduler; the call does not wait for it.
func (r *Resolver) Resolve(ctx context.Context, id string) (Resolution, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Resolution{}, ErrEmptyID
	}
	kind, cid := Classify(id)
	key := cacheKey(kind, cid)

	if d, ok := r.cache.Get(key); ok {
		return Resolution{Detail: clone(d), Job: r.schedule(d.Paper), Cached: true}, nil
	}

	paper, cause := r.lookup(ctx, id, kind, cid)
	if paper == nil {
		return Resolution{}, &NotFoundError{ID: id, Kind: kind, ClassifiedID: cid, Cause: cause}
	}
	search.EnsureID(paper)

	d := types.PaperDetail{Paper: *paper, Analysis: Summarize(*paper)}
	r.remember(key, d)

	return Resolution{Detail: clone(d), Job: r.schedule(d.Paper)}, nil
}

// lookup walks provider, store primary key and store provider index. The
// returned error is the last backend failure and is only informative.
func (r *Resolver) lookup(ctx context.Context, id string, kind Kind, cid string) (*types.ResearchResult, error) {
	var cause error

	if src := r.providers[kind]; src != nil && kind != KindLocal {
		p, err := src.Detail(ctx, cid)
		if err != nil {
			cause = fmt.Errorf("%s detail: %w", src.Name(), err)
			r.logger.Warn("provider detail failed",
				logging.Source(src.Name()), logging.PaperID(id), logging.Error(err))
		}
		if p != nil {
			return p, nil
		}
	}
	if r.store == nil {
		return nil, cause
	}

	pk := id
	if kind == KindLocal {
		pk = cid
	}
	p, err := r.store.Get(ctx, pk)
	if err != nil {
		cause = fmt.Errorf("store get: %w", err)
		r.logger.Warn("store lookup failed", logging.PaperID(id), logging.Error(err))
	}
	if p != nil {
		return p, nil
	}

	p, err = r.store.GetByProviderID(ctx, cid)
	if err != nil {
		cause = fmt.Errorf("store provider lookup: %w", err)
		r.logger.Warn("store provider lookup failed", logging.PaperID(id), logging.Error(err))
	}
	return p, cause
}

func (r *Resolver) schedule(p types.ResearchResult) *enrich.Job {
	if r.scheduler == nil || p.Metadata.Analyzed {
		return nil
	}
	return r.scheduler.Schedule(p)
}

// remember caches d under key and under the key derived from the paper's own ID,
// so Refresh finds it whichever identifier resolved it.
func (r *Resolver) remember(key string, d types.PaperDetail) {
	keys := []string{key}
	if k, cid := Classify(d.Paper.ID); cacheKey(k, cid) != key {
		keys = append(keys, cacheKey(k, cid))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		r.cache.Set(k, clone(d))
		if !contains(r.aliases[d.Paper.ID], k) {
			r.aliases[d.Paper.ID] = append(r.aliases[d.Paper.ID], k)
		}
	}
}

// Refresh replaces cached entries for p with p, keeping their original
// timestamps. Entries that have expired are not revived.
func (r *Resolver) Refresh(p types.ResearchResult) {
	d := types.PaperDetail{Paper: p.Clone(), Analysis: Summarize(p)}

	r.mu.Lock()
	defer r.mu.Unlock()
	var live []string
	for _, k := range r.aliases[p.ID] {
		if r.cache.Replace(k, clone(d)) {
			live = append(live, k)
		}
	}
	if len(live) == 0 {
		delete(r.aliases, p.ID)
		return
	}
	r.aliases[p.ID] = live
}

// Summarize builds the short analysis text shown with a paper.
func Summarize(p types.ResearchResult) string {
	var parts []string
	if p.HasAbstract() {
		n := len(strings.Fields(p.AbstractText()))
		parts = append(parts, fmt.Sprintf("Abstract available (%d words).", n))
	} else {
		parts = append(parts, "No abstract available.")
	}

	switch c := p.Metadata.Citations; {
	case c >= 1000:
		parts = append(parts, fmt.Sprintf("Highly cited (%d citations).", c))
	case c > 0:
		parts = append(parts, fmt.Sprintf("Cited %d times.", c))
	default:
		parts = append(parts, "No recorded citations.")
	}

	if p.HasCode() {
		parts = append(parts, "Code available at "+p.CodeURLText()+".")
	} else {
		parts = append(parts, "No public implementation linked.")
	}

	if d := p.Metadata.Difficulty; d != nil && d.Level.Valid() {
		parts = append(parts, fmt.Sprintf("Difficulty: %s (%d/10).", d.Level, d.Score))
	}
	return strings.Join(parts, " ")
}

func clone(d types.PaperDetail) types.PaperDetail {
	d.Paper = d.Paper.Clone()
	return d
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
