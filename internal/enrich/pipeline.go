// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// TaskType names one analysis task.
type TaskType string

const (
	TaskInsights            TaskType = "insights"
	TaskConcepts            TaskType = "concepts"
	TaskDifficulty          TaskType = "difficulty"
	TaskCodeSnippets        TaskType = "code_snippets"
	TaskImplementationSteps TaskType = "implementation_steps"
)

// Pipeline defaults.
const (
	DefaultInterTaskDelay  = 2 * time.Second
	DefaultPersistAttempts = 3
	DefaultPersistBackoff  = 200 * time.Millisecond

	persistTimeout = 30 * time.Second
)

// Task is one step of a pipeline run. Run writes its result into md and
// reports whether the fallback generator produced it.
type Task struct {
	Key  string
	Type TaskType
	Run  func(ctx context.Context, md *types.Metadata) (fellBack bool)
}

// Persister saves an enriched record.
type Persister interface {
	Upsert(ctx context.Context, r *types.ResearchResult) error
}

// Report describes the outcome of one pipeline run.
type Report struct {
	PaperID   string
	Paper     types.ResearchResult
	Fallbacks map[TaskType]bool
	Persisted bool

	// Err is the last persistence error, if any. Analysis failures never
	// appear here; they show up in Fallbacks.
	Err error
}

// FallbackCount returns how many tasks used their fallback generator.
func (r Report) FallbackCount() int {
	n := 0
	for _, fb := range r.Fallbacks {
		if fb {
			n++
		}
	}
	return n
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	Analyzer  *Analyzer
	Persister Persister

	// OnUpdate receives the enriched record after the run, before
	// persistence. The detail resolver uses it to refresh its cache.
	OnUpdate func(types.ResearchResult)

	InterTaskDelay  time.Duration
	PersistAttempts int
	PersistBackoff  time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

// Pipeline runs the five analysis tasks for one record in a fixed order.
type Pipeline struct {
	analyzer        *Analyzer
	persister       Persister
	onUpdate        func(types.ResearchResult)
	delay           time.Duration
	persistAttempts int
	persistBackoff  time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

// NewPipeline creates a Pipeline. A negative InterTaskDelay disables the
// pause between tasks.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		analyzer:        cfg.Analyzer,
		persister:       cfg.Persister,
		onUpdate:        cfg.OnUpdate,
		delay:           cfg.InterTaskDelay,
		persistAttempts: cfg.PersistAttempts,
		persistBackoff:  cfg.PersistBackoff,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}
	if p.analyzer == nil {
		p.analyzer = NewAnalyzer(AnalyzerConfig{Logger: cfg.Logger})
	}
	if p.delay == 0 {
		p.delay = DefaultInterTaskDelay
	}
	if p.persistAttempts <= 0 {
		p.persistAttempts = DefaultPersistAttempts
	}
	if p.persistBackoff <= 0 {
		p.persistBackoff = DefaultPersistBackoff
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	p.logger = logging.NewComponentLogger(p.logger, "enrichment")
	return p
}

// Tasks returns the ordered task list for paper.
func (p *Pipeline) Tasks(paper types.ResearchResult) []Task {
	a := p.analyzer
	key := func(t TaskType) string { return paper.ID + ":" + string(t) }
	return []Task{
		{Key: key(TaskInsights), Type: TaskInsights, Run: func(ctx context.Context, md *types.Metadata) bool {
			v, fb := a.generateInsights(ctx, paper)
			md.Insights = v
			return fb
		}},
		{Key: key(TaskConcepts), Type: TaskConcepts, Run: func(ctx context.Context, md *types.Metadata) bool {
			v, fb := a.explainKeyConcepts(ctx, paper)
			md.Concepts = v
			return fb
		}},
		{Key: key(TaskDifficulty), Type: TaskDifficulty, Run: func(ctx context.Context, md *types.Metadata) bool {
			v, fb := a.assessTechnicalDifficulty(ctx, paper)
			md.Difficulty = &v
			return fb
		}},
		{Key: key(TaskCodeSnippets), Type: TaskCodeSnippets, Run: func(ctx context.Context, md *types.Metadata) bool {
			v, fb := a.generateCodeSnippets(ctx, paper)
			md.CodeSnippets = v
			return fb
		}},
		{Key: key(TaskImplementationSteps), Type: TaskImplementationSteps, Run: func(ctx context.Context, md *types.Metadata) bool {
			v, fb := a.generateImplementationSteps(ctx, paper)
			md.ImplementationSteps = v
			return fb
		}},
	}
}

// Run enriches paper and persists the result. It never fails: analysis
// problems degrade to fallbacks and persistence problems are reported in
// Report.Err. A run interrupted by scheduler shutdown is discarded so that
// fallback output does not overwrite a later, complete analysis.
func (p *Pipeline) Run(ctx context.Context, paper types.ResearchResult) Report {
	enriched := paper.Clone()
	md := enriched.Metadata
	rep := Report{PaperID: paper.ID, Fallbacks: make(map[TaskType]bool, 5)}

	start := p.now()
	for i, t := range p.Tasks(paper) {
		if i > 0 && p.delay > 0 {
			pause(ctx, p.delay)
		}
		rep.Fallbacks[t.Type] = p.runTask(ctx, t, &md)
	}
	if errors.Is(context.Cause(ctx), ErrSchedulerClosed) {
		p.logger.Info("enrichment interrupted by shutdown", logging.PaperID(paper.ID))
		rep.Paper = paper
		rep.Err = ErrSchedulerClosed
		return rep
	}

	now := p.now()
	md.Analyzed = true
	md.AnalyzedAt = &now
	enriched.Metadata = md
	rep.Paper = enriched

	if p.onUpdate != nil {
		p.onUpdate(enriched.Clone())
	}
	if p.persister != nil {
		rep.Err = p.persist(ctx, &enriched)
		rep.Persisted = rep.Err == nil
	}

	p.logger.Info("enrichment complete",
		logging.PaperID(paper.ID),
		logging.Int("fallbacks", rep.FallbackCount()),
		logging.Bool("persisted", rep.Persisted),
		logging.Duration("elapsed", now.Sub(start)))
	return rep
}

// runTask isolates a task so a panic in one degrades to its fallback
// instead of ending the run.
func (p *Pipeline) runTask(ctx context.Context, t Task, md *types.Metadata) (fellBack bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("analysis task panicked",
				logging.Task(string(t.Type)), logging.Any("panic", r))
			fellBack = true
		}
	}()
	return t.Run(ctx, md)
}

// persist retries Upsert with exponential backoff. It runs on a context that
// survives cancellation of ctx, so a run cut short by its deadline still
// saves the fallback analysis.
func (p *Pipeline) persist(ctx context.Context, r *types.ResearchResult) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var err error
	backoff := p.persistBackoff
	for attempt := 1; attempt <= p.persistAttempts; attempt++ {
		if err = p.persister.Upsert(ctx, r); err == nil {
			return nil
		}
		p.logger.Warn("persisting enriched paper failed",
			logging.PaperID(r.ID), logging.Attempt(attempt), logging.Error(err))
		if attempt < p.persistAttempts {
			if pause(ctx, backoff) != nil {
				break
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("persisting %s after %d attempts: %w", r.ID, p.persistAttempts, err)
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
