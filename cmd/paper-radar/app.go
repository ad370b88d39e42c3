// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/paper-radar/internal/ai"
	"github.com/pdiddy/paper-radar/internal/enrich"
	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/kv"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/queue"
	"github.com/pdiddy/paper-radar/internal/resolve"
	"github.com/pdiddy/paper-radar/internal/search"
	"github.com/pdiddy/paper-radar/internal/searchcache"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/internal/ttlcache"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg    types.Config
	logger *slog.Logger

	queue     *queue.Queue
	store     *store.SQLStore
	search    *search.Service
	resolver  *resolve.Resolver
	scheduler *enrich.Scheduler
}

// newApp builds the component graph from cfg. Close releases it.
func newApp(ctx context.Context, cfg types.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = st

	backing, err := openKV(ctx, cfg.Cache, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a.queue = queue.New(cfg.Queue, queue.WithLogger(logger))
	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	policy := httputil.PolicyFromConfig(cfg.Retry)
	policy.Logger = logger
	tr := search.Transport{Client: client, Queue: a.queue, Policy: policy, UserAgent: cfg.HTTP.UserAgent}

	var sources []search.Source
	providers := make(map[resolve.Kind]search.Source)
	if cfg.Sources.EnableSemanticScholar {
		ss := &search.SemanticScholarSource{
			Transport: tr,
			APIKey:    cfg.Sources.SemanticScholarAPIKey,
			BaseURL:   cfg.Sources.SemanticScholarBaseURL,
		}
		sources = append(sources, ss)
		providers[resolve.KindSemanticScholar] = ss
	}
	if cfg.Sources.EnablePapersWithCode {
		pwc := &search.PapersWithCodeSource{
			Transport: tr,
			BaseURL:   cfg.Sources.PapersWithCodeBaseURL,
			Logger:    logger,
		}
		sources = append(sources, pwc)
		providers[resolve.KindPapersWithCode] = pwc
	}

	svcCfg := search.ServiceConfig{
		Sources: sources,
		Memo:    ttlcache.New[[]types.ResearchResult](cfg.Cache.SearchTTL),
		Persistent: searchcache.New(backing,
			searchcache.WithPrefix(cfg.Cache.KeyPrefix),
			searchcache.WithTTL(cfg.Cache.PersistentTTL),
			searchcache.WithLogger(logger)),
		Slots:             cfg.Sources.Slots,
		DefaultLimit:      cfg.Sources.DefaultLimit,
		RateLimitCooldown: cfg.Sources.RateLimitCooldown,
		Logger:            logger,
	}
	if cfg.Sources.EnableLocal {
		svcCfg.Local = st
	}
	a.search = search.NewService(svcCfg)

	var sched resolve.Scheduler
	if cfg.Enrichment.Enabled {
		analyzer := enrich.NewAnalyzer(enrich.AnalyzerConfig{
			Completer: ai.NewOpenAIClient(cfg.AI, client),
			Queue:     a.queue,
			Policy:    policy,
			CacheTTL:  cfg.Cache.AnalysisTTL,
			Logger:    logger,
		})
		pipeline := enrich.NewPipeline(enrich.PipelineConfig{
			Analyzer:  analyzer,
			Persister: st,
			// a.resolver is assigned below, before any job can run.
			OnUpdate:        func(p types.ResearchResult) { a.resolver.Refresh(p) },
			InterTaskDelay:  cfg.Enrichment.InterTaskDelay,
			PersistAttempts: cfg.Enrichment.PersistAttempts,
			Logger:          logger,
		})
		a.scheduler = enrich.NewScheduler(pipeline,
			enrich.WithJobTimeout(cfg.Enrichment.JobTimeout),
			enrich.WithSchedulerLogger(logger))
		sched = a.scheduler
	}

	a.resolver = resolve.New(resolve.Config{
		Providers: providers,
		Store:     st,
		Scheduler: sched,
		CacheTTL:  cfg.Cache.DetailTTL,
		Logger:    logger,
	})

	logger.Debug("components ready",
		logging.Int("sources", len(sources)),
		logging.String("cache_backend", string(cfg.Cache.Backend)),
		logging.String("store_driver", cfg.Store.Driver),
		logging.Bool("enrichment", cfg.Enrichment.Enabled))
	return a, nil
}

// Close stops background work and releases the store. The scheduler goes
// first so in-flight jobs stop before the queue and store they use.
func (a *app) Close() error {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	a.queue.Close()
	return a.store.Close()
}

func openKV(ctx context.Context, cfg types.CacheConfig, logger *slog.Logger) (kv.Store, error) {
	switch cfg.Backend {
	case types.CacheBackendMemory:
		return kv.NewMemoryStore(), nil
	case types.CacheBackendMinio:
		s, err := kv.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("opening minio cache: %w", err)
		}
		return s, nil
	default:
		s, err := kv.NewFileStore(cfg.Path, kv.WithFileLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("opening file cache: %w", err)
		}
		return s, nil
	}
}
