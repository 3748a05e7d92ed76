// Package store persists raw source results and reconciled profiles.
//
// Raw results are an append-only audit log: re-running a company appends a
// new record and never rewrites history. Profiles represent current belief
// and are overwritten by company key. Every write is atomic from a reader's
// perspective.
package store

import (
	"context"

	"github.com/sells-group/chro-finder/internal/model"
)

// Store is the persistence contract used by the batch orchestrator.
type Store interface {
	// Append durably adds one raw result to the audit log. Safe to call
	// repeatedly for the same (company, source); every call appends.
	Append(ctx context.Context, r model.RawSourceResult) error

	// Latest returns the most recent raw result for (company, source),
	// or nil when none exists.
	Latest(ctx context.Context, company string, source model.SourceID) (*model.RawSourceResult, error)

	// History returns every recorded raw result for (company, source) in
	// append order.
	History(ctx context.Context, company string, source model.SourceID) ([]model.RawSourceResult, error)

	// SaveProfile durably writes the reconciled profile for a company,
	// replacing any prior profile for the same company.
	SaveProfile(ctx context.Context, p model.ReconciledProfile) error

	// LoadProfile returns the stored profile for a company, or nil.
	LoadProfile(ctx context.Context, company string) (*model.ReconciledProfile, error)

	// ListProfiles returns every stored profile.
	ListProfiles(ctx context.Context) ([]model.ReconciledProfile, error)

	// IsCompleted reports whether a terminal profile exists for company.
	IsCompleted(ctx context.Context, company string) (bool, error)

	// CompletedCompanies returns the set of companies with a terminal
	// profile, keyed by company name.
	CompletedCompanies(ctx context.Context) (map[string]bool, error)

	Close() error
}
