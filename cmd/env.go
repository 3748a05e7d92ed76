package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/batch"
	"github.com/sells-group/chro-finder/internal/config"
	"github.com/sells-group/chro-finder/internal/reconcile"
	"github.com/sells-group/chro-finder/internal/resilience"
	"github.com/sells-group/chro-finder/internal/source"
	"github.com/sells-group/chro-finder/internal/store"
	"github.com/sells-group/chro-finder/pkg/gemini"
	"github.com/sells-group/chro-finder/pkg/perplexity"
)

// env bundles everything a discovery run needs.
type env struct {
	store    store.Store
	cache    *store.Cache
	registry *source.Registry
	engine   *reconcile.Engine
	batchCfg batch.Config
}

func (e *env) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
	e.store.Close()
}

// newEnv validates credentials and wires the adapters, stores, and
// reconciler from config. Missing API keys fail here, before any company
// is processed.
func newEnv(ctx context.Context, cfg *config.Config, progress source.ProgressFunc) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.NewFile(cfg.Store.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	var cache *store.Cache
	if cfg.Store.CachePath != "" {
		cache, err = store.NewCache(cfg.Store.CachePath)
		if err != nil {
			zap.L().Warn("answer cache unavailable, queries will not be cached", zap.Error(err))
			cache = nil
		}
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.Key,
		gemini.WithFlashModel(cfg.Gemini.FlashModel),
		gemini.WithSummaryModel(cfg.Gemini.SummaryModel))
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init gemini client")
	}

	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model))

	registry := source.NewRegistry()
	registry.Register(source.NewPerplexityAdapter(perplexityClient, progress))
	registry.Register(source.NewChatGPTAdapter(source.ChatGPTConfig{
		URL:               cfg.ChatGPT.URL,
		Headless:          cfg.ChatGPT.Headless,
		NavigationTimeout: time.Duration(cfg.ChatGPT.NavigationTimeoutSecs) * time.Second,
		ResponseTimeout:   time.Duration(cfg.ChatGPT.ResponseTimeoutSecs) * time.Second,
	}, progress))
	registry.Register(source.NewGeminiAdapter(geminiClient, progress))
	registry.Register(source.NewLinkedInAdapter(source.LinkedInConfig{
		SearchBaseURL:     cfg.LinkedIn.SearchBaseURL,
		RequestsPerSecond: cfg.LinkedIn.RequestsPerSecond,
		Timeout:           time.Duration(cfg.LinkedIn.TimeoutSecs) * time.Second,
	}, progress))

	batchCfg := batch.DefaultConfig()
	batchCfg.Retry = resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		RateLimitDelay: time.Duration(cfg.Retry.RateLimitDelaySecs) * time.Second,
	}
	batchCfg.SourceTimeout = time.Duration(cfg.Batch.SourceTimeoutSecs) * time.Second
	batchCfg.CacheTTL = time.Duration(cfg.Store.CacheTTLHours) * time.Hour

	return &env{
		store:    st,
		cache:    cache,
		registry: registry,
		engine:   reconcile.New(&geminiSummarizer{client: geminiClient}),
		batchCfg: batchCfg,
	}, nil
}

// geminiSummarizer adapts the Gemini client to the reconciler's interface.
type geminiSummarizer struct {
	client gemini.Client
}

func (s *geminiSummarizer) Generate(ctx context.Context, prompt string) (string, error) {
	return s.client.Generate(ctx, prompt)
}
