// Package source houses the adapters that query external systems for CHRO
// information. Every adapter answers through the same contract: a
// RawSourceResult whose Outcome classifies what happened, never an error.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/resilience"
)

// Adapter queries a single external source for one company.
type Adapter interface {
	ID() model.SourceID
	Query(ctx context.Context, company string) model.RawSourceResult
}

// ProgressFunc reports coarse progress for a long-running query. fraction
// is in [0, 1].
type ProgressFunc func(fraction float64, message string)

// NopProgress discards progress updates.
func NopProgress(float64, string) {}

// Registry holds the configured adapters keyed by source.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.SourceID]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[model.SourceID]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

func (r *Registry) Get(id model.SourceID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// All returns the registered adapters in the fixed source order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, id := range model.AllSources() {
		if a, ok := r.adapters[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// result builds a RawSourceResult for id, classifying err into the outcome
// taxonomy. A nil err with non-empty text is a success.
func result(id model.SourceID, company, rawText string, err error) model.RawSourceResult {
	r := model.RawSourceResult{
		Company:   company,
		Source:    id,
		RawText:   rawText,
		FetchedAt: time.Now().UTC(),
	}
	switch {
	case err == nil:
		r.Outcome = model.Success()
	case resilience.IsRateLimit(err):
		r.Outcome = model.RateLimited(err.Error())
	case resilience.IsTimeout(err):
		r.Outcome = model.Timeout(err.Error())
	default:
		r.Outcome = model.Failure(err.Error())
	}
	return r
}
