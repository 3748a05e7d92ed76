package batch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/reconcile"
	"github.com/sells-group/chro-finder/internal/resilience"
	"github.com/sells-group/chro-finder/internal/source"
	"github.com/sells-group/chro-finder/internal/store"
)

type countingAdapter struct {
	id    model.SourceID
	calls atomic.Int32
	reply func(company string) model.RawSourceResult
}

func (a *countingAdapter) ID() model.SourceID { return a.id }

func (a *countingAdapter) Query(_ context.Context, company string) model.RawSourceResult {
	a.calls.Add(1)
	if a.reply != nil {
		return a.reply(company)
	}
	return model.RawSourceResult{
		Company:   company,
		Source:    a.id,
		RawText:   "Name: Jane Doe\nURL: https://www.linkedin.com/in/janedoe",
		FetchedAt: time.Now().UTC(),
		Outcome:   model.Success(),
	}
}

func newTestRegistry(reply func(string) model.RawSourceResult) (*source.Registry, []*countingAdapter) {
	r := source.NewRegistry()
	var adapters []*countingAdapter
	for _, id := range model.AllSources() {
		a := &countingAdapter{id: id, reply: reply}
		r.Register(a)
		adapters = append(adapters, a)
	}
	return r, adapters
}

func totalCalls(adapters []*countingAdapter) int {
	n := 0
	for _, a := range adapters {
		n += int(a.calls.Load())
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry.RateLimitDelay = time.Millisecond
	cfg.CacheTTL = 0
	return cfg
}

func newOrchestrator(t *testing.T, reg *source.Registry, cfg Config) (*Orchestrator, store.Store) {
	t.Helper()
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(cfg, reg, st, nil, reconcile.New(nil)), st
}

func TestRun_ProcessesAllCompanies(t *testing.T) {
	reg, adapters := newTestRegistry(nil)
	o, st := newOrchestrator(t, reg, testConfig())

	summary, err := o.Run(context.Background(), []string{"Acme", "Globex"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Succeeded: 2}, summary)
	assert.Equal(t, 8, totalCalls(adapters))

	p, err := st.LoadProfile(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.InDelta(t, 1.0, p.AgreementScore, 0.001)

	history, err := st.History(context.Background(), "Acme", model.SourceGemini)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRun_ResumeSkipsCompleted(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFile(dir)
	require.NoError(t, err)
	defer st.Close()

	reg, adapters := newTestRegistry(nil)
	o := New(testConfig(), reg, st, nil, reconcile.New(nil))

	_, err = o.Run(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	firstCalls := totalCalls(adapters)
	assert.Equal(t, 4, firstCalls)

	// Second run over the same list must not touch the adapters at all.
	summary, err := o.Run(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Skipped: 1}, summary)
	assert.Equal(t, firstCalls, totalCalls(adapters))
}

func TestRun_OneSourceFailingStillSavesProfile(t *testing.T) {
	reg, _ := newTestRegistry(func(company string) model.RawSourceResult {
		return model.RawSourceResult{
			Company:   company,
			Source:    model.SourceChatGPT,
			FetchedAt: time.Now().UTC(),
			Outcome:   model.Failure("browser crashed"),
		}
	})
	// Replace three adapters with healthy ones, leaving ChatGPT broken.
	for _, id := range []model.SourceID{model.SourcePerplexity, model.SourceGemini, model.SourceLinkedIn} {
		reg.Register(&countingAdapter{id: id})
	}

	o, st := newOrchestrator(t, reg, testConfig())

	summary, err := o.Run(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	p, err := st.LoadProfile(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Jane Doe", p.Name)
	// The broken source contributed sentinels, not an abort.
	assert.Equal(t, model.NotAvailable, p.PerSourceFields[model.SourceChatGPT].Name)
}

func TestRun_AllSourcesFailingStillSavesSentinelProfile(t *testing.T) {
	reg, _ := newTestRegistry(func(company string) model.RawSourceResult {
		return model.RawSourceResult{
			Company:   company,
			Source:    model.SourcePerplexity,
			FetchedAt: time.Now().UTC(),
			Outcome:   model.Failure("down"),
		}
	})
	// Make every adapter fail under its own source id.
	for _, id := range model.AllSources() {
		id := id
		reg.Register(&countingAdapter{id: id, reply: func(company string) model.RawSourceResult {
			return model.RawSourceResult{
				Company:   company,
				Source:    id,
				FetchedAt: time.Now().UTC(),
				Outcome:   model.Failure("down"),
			}
		}})
	}

	o, st := newOrchestrator(t, reg, testConfig())

	summary, err := o.Run(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	p, err := st.LoadProfile(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.NotAvailable, p.Name)
	assert.Zero(t, p.AgreementScore)
}

type failingSaveStore struct {
	store.Store
}

func (s *failingSaveStore) SaveProfile(context.Context, model.ReconciledProfile) error {
	return eris.New("disk full")
}

func TestRun_SaveFailureReturnsUnpersistedProfile(t *testing.T) {
	reg, _ := newTestRegistry(nil)
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	o := New(testConfig(), reg, &failingSaveStore{Store: st}, nil, reconcile.New(nil))

	summary, err := o.Run(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// The reconciled result survives in memory, flagged as unpersisted.
	require.Len(t, summary.Unpersisted, 1)
	p := summary.Unpersisted[0]
	assert.False(t, p.Persisted)
	assert.Equal(t, "Acme", p.Company)
	assert.Equal(t, "Jane Doe", p.Name)

	saved, err := st.LoadProfile(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestRun_SuccessfulSaveFlagsPersisted(t *testing.T) {
	reg, _ := newTestRegistry(nil)
	o, _ := newOrchestrator(t, reg, testConfig())

	profile, ok := o.processCompany(context.Background(), "Acme")
	assert.True(t, ok)
	assert.True(t, profile.Persisted)
}

func TestRun_ProgressCallback(t *testing.T) {
	reg, _ := newTestRegistry(nil)

	var updates []string
	cfg := testConfig()
	cfg.Progress = func(done, total int, message string) {
		assert.Equal(t, 2, total)
		updates = append(updates, message)
	}

	o, _ := newOrchestrator(t, reg, cfg)
	_, err := o.Run(context.Background(), []string{"Acme", "Globex"})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "Acme: done", updates[0])
	assert.Equal(t, "Globex: done", updates[1])
}

func TestRun_ContextCancelledBetweenCompanies(t *testing.T) {
	reg, _ := newTestRegistry(nil)
	o, _ := newOrchestrator(t, reg, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, []string{"Acme"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	reg := source.NewRegistry()
	for _, id := range model.AllSources() {
		id := id
		reg.Register(&countingAdapter{id: id, reply: func(company string) model.RawSourceResult {
			r := model.RawSourceResult{
				Company:   company,
				Source:    id,
				FetchedAt: time.Now().UTC(),
			}
			if id == model.SourceGemini && attempts.Add(1) == 1 {
				r.Outcome = model.RateLimited("429")
				return r
			}
			r.RawText = "Name: Jane Doe"
			r.Outcome = model.Success()
			return r
		}})
	}

	cfg := testConfig()
	cfg.Retry = resilience.RetryConfig{MaxAttempts: 3, RateLimitDelay: time.Millisecond}
	o, st := newOrchestrator(t, reg, cfg)

	summary, err := o.Run(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, int32(2), attempts.Load())

	history, err := st.History(context.Background(), "Acme", model.SourceGemini)
	require.NoError(t, err)
	// Only the final per-source result lands in the raw log.
	require.Len(t, history, 1)
	assert.Equal(t, model.OutcomeSuccess, history[0].Outcome.Kind)
}
