// Package batch runs the per-company discovery pipeline over a list of
// companies with crash-safe resume.
package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/chro-finder/internal/extract"
	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/reconcile"
	"github.com/sells-group/chro-finder/internal/resilience"
	"github.com/sells-group/chro-finder/internal/source"
	"github.com/sells-group/chro-finder/internal/store"
)

// ProgressFunc reports batch-level progress: companies finished out of
// total, plus a human-readable message.
type ProgressFunc func(done, total int, message string)

// Config tunes the orchestrator.
type Config struct {
	Retry resilience.RetryConfig
	// SourceTimeout bounds a single adapter query, retries included per
	// attempt.
	SourceTimeout time.Duration
	// CacheTTL controls how long successful raw answers are reused. Zero
	// disables caching even when a cache is present.
	CacheTTL time.Duration
	Progress ProgressFunc
}

func DefaultConfig() Config {
	return Config{
		Retry:         resilience.DefaultRetryConfig(),
		SourceTimeout: 3 * time.Minute,
		CacheTTL:      24 * time.Hour,
	}
}

// Summary aggregates the result of one batch run.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int

	// Unpersisted holds profiles that were reconciled but could not be
	// durably saved. They exist only in memory, marked Persisted=false;
	// callers decide whether to surface or retry them.
	Unpersisted []model.ReconciledProfile
}

// Orchestrator drives the query, extract, reconcile, persist pipeline.
type Orchestrator struct {
	cfg      Config
	registry *source.Registry
	store    store.Store
	cache    *store.Cache
	engine   *reconcile.Engine
}

// New creates an Orchestrator. cache may be nil.
func New(cfg Config, registry *source.Registry, st store.Store, cache *store.Cache, engine *reconcile.Engine) *Orchestrator {
	if cfg.Progress == nil {
		cfg.Progress = func(int, int, string) {}
	}
	if cfg.SourceTimeout == 0 {
		cfg.SourceTimeout = 3 * time.Minute
	}
	return &Orchestrator{cfg: cfg, registry: registry, store: st, cache: cache, engine: engine}
}

// Run processes every company in order. Companies whose profile is already
// persisted are skipped, so an interrupted run picks up where it stopped.
// One company's failure never stops the batch; only context cancellation
// does.
func (o *Orchestrator) Run(ctx context.Context, companies []string) (Summary, error) {
	summary := Summary{Total: len(companies)}

	completed, err := o.store.CompletedCompanies(ctx)
	if err != nil {
		return summary, err
	}

	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if completed[company] {
			summary.Skipped++
			zap.L().Info("skipping completed company", zap.String("company", company))
			o.cfg.Progress(i+1, summary.Total, company+": already completed")
			continue
		}

		if profile, ok := o.processCompany(ctx, company); ok {
			summary.Succeeded++
			o.cfg.Progress(i+1, summary.Total, company+": done")
		} else {
			summary.Failed++
			summary.Unpersisted = append(summary.Unpersisted, profile)
			o.cfg.Progress(i+1, summary.Total, company+": failed")
		}
	}

	zap.L().Info("batch complete",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// processCompany queries all sources in parallel, reconciles, and saves
// the profile. The profile is always returned; ok is false when it could
// not be persisted, in which case Persisted stays false.
func (o *Orchestrator) processCompany(ctx context.Context, company string) (model.ReconciledProfile, bool) {
	log := zap.L().With(zap.String("company", company))
	log.Info("processing company")

	raws := o.querySources(ctx, company)

	fields := make(map[model.SourceID]model.ExtractedFields, len(raws))
	succeeded := 0
	for id, raw := range raws {
		if raw.Outcome.OK() {
			fields[id] = extract.Extract(raw.RawText)
			succeeded++
		} else {
			fields[id] = model.EmptyFields()
		}
	}

	switch {
	case succeeded == len(raws):
		log.Info("all sources answered")
	case succeeded > 0:
		log.Warn("partial source coverage", zap.Int("answered", succeeded), zap.Int("sources", len(raws)))
	default:
		log.Warn("no source answered")
	}

	profile := o.engine.Reconcile(ctx, company, fields, raws)
	if err := o.store.SaveProfile(ctx, profile); err != nil {
		log.Error("save profile failed, result exists in memory only",
			zap.String("name", profile.Name),
			zap.String("profile_url", profile.ProfileURL),
			zap.Float64("agreement", profile.AgreementScore),
			zap.Error(err))
		return profile, false
	}
	profile.Persisted = true

	log.Info("profile saved",
		zap.String("name", profile.Name),
		zap.Float64("agreement", profile.AgreementScore))
	return profile, true
}

// querySources fans out to every registered adapter. Each result is
// appended to the raw store as soon as it arrives; append failures are
// logged and do not block the pipeline.
func (o *Orchestrator) querySources(ctx context.Context, company string) map[model.SourceID]model.RawSourceResult {
	adapters := o.registry.All()

	var mu sync.Mutex
	raws := make(map[model.SourceID]model.RawSourceResult, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range adapters {
		g.Go(func() error {
			raw := o.queryOne(gctx, a, company)

			if err := o.store.Append(ctx, raw); err != nil {
				zap.L().Error("append raw result failed",
					zap.String("company", company),
					zap.String("source", string(raw.Source)),
					zap.Error(err))
			}

			mu.Lock()
			raws[raw.Source] = raw
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return raws
}

func (o *Orchestrator) queryOne(ctx context.Context, a source.Adapter, company string) model.RawSourceResult {
	if cached, ok := o.cachedAnswer(ctx, company, a.ID()); ok {
		zap.L().Debug("cache hit",
			zap.String("company", company),
			zap.String("source", string(a.ID())))
		return model.RawSourceResult{
			Company:   company,
			Source:    a.ID(),
			RawText:   cached,
			FetchedAt: time.Now().UTC(),
			Outcome:   model.Success(),
		}
	}

	raw := resilience.QueryWithRetry(ctx, o.cfg.Retry, a.ID(), company, func(ctx context.Context) model.RawSourceResult {
		qctx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
		defer cancel()
		return a.Query(qctx, company)
	})

	if raw.Outcome.OK() {
		o.cacheAnswer(ctx, raw)
	}
	return raw
}

func (o *Orchestrator) cachedAnswer(ctx context.Context, company string, id model.SourceID) (string, bool) {
	if o.cache == nil || o.cfg.CacheTTL <= 0 {
		return "", false
	}
	cached, ok, err := o.cache.Get(ctx, company, id)
	if err != nil {
		zap.L().Warn("cache lookup failed", zap.Error(err))
		return "", false
	}
	return cached, ok
}

func (o *Orchestrator) cacheAnswer(ctx context.Context, raw model.RawSourceResult) {
	if o.cache == nil || o.cfg.CacheTTL <= 0 {
		return
	}
	if err := o.cache.Put(ctx, raw.Company, raw.Source, raw.RawText, o.cfg.CacheTTL); err != nil {
		zap.L().Warn("cache write failed", zap.Error(err))
	}
}
