// Package model defines the core data types shared across the discovery pipeline.
package model

import "time"

// SourceID identifies one of the four external information sources.
type SourceID string

const (
	// SourcePerplexity is the Perplexity chat interface.
	SourcePerplexity SourceID = "perplexity"
	// SourceChatGPT is the ChatGPT chat interface.
	SourceChatGPT SourceID = "chatgpt"
	// SourceGemini is the search-grounded Gemini call.
	SourceGemini SourceID = "gemini"
	// SourceLinkedIn is the professional-network scraper.
	SourceLinkedIn SourceID = "linkedin"
)

// AllSources returns the four sources in their canonical query order.
func AllSources() []SourceID {
	return []SourceID{SourcePerplexity, SourceChatGPT, SourceGemini, SourceLinkedIn}
}

// ReliabilityRank orders sources by a-priori reliability for tie-breaking.
// Grounded and structured sources outrank free-text chat sources. Lower is
// more reliable.
func ReliabilityRank(id SourceID) int {
	switch id {
	case SourceGemini:
		return 0
	case SourceLinkedIn:
		return 1
	case SourcePerplexity:
		return 2
	case SourceChatGPT:
		return 3
	default:
		return 4
	}
}

// OutcomeKind classifies how a source invocation ended.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeError       OutcomeKind = "error"
	OutcomeRateLimited OutcomeKind = "rate_limited"
	OutcomeTimeout     OutcomeKind = "timeout"
)

// Outcome is the terminal or retryable result classification of one adapter
// invocation. Adapters never raise; every failure is encoded here.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// Failure returns an error outcome with the given message.
func Failure(msg string) Outcome {
	return Outcome{Kind: OutcomeError, Message: msg}
}

// RateLimited returns a rate-limited outcome with the given message.
func RateLimited(msg string) Outcome {
	return Outcome{Kind: OutcomeRateLimited, Message: msg}
}

// Timeout returns a timeout outcome with the given message.
func Timeout(msg string) Outcome {
	return Outcome{Kind: OutcomeTimeout, Message: msg}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// RawSourceResult is one answer from one source for one company. Immutable
// after creation; re-runs append new results rather than mutating history.
type RawSourceResult struct {
	Company   string    `json:"company"`
	Source    SourceID  `json:"source"`
	RawText   string    `json:"raw_text"`
	FetchedAt time.Time `json:"fetched_at"`
	Outcome   Outcome   `json:"outcome"`
}

// NotAvailable is the sentinel for a name or profile URL that no source
// could determine. It is a value, not an error.
const NotAvailable = "Not available"

// ExtractedFields holds the structured fields pulled from one source's raw
// text. Extraction is total: fields that cannot be determined hold their
// sentinel, never an ambiguous empty value for name/url.
type ExtractedFields struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url"`
	Title      string `json:"title,omitempty"`
	Location   string `json:"location,omitempty"`
}

// EmptyFields returns an ExtractedFields with every field at its sentinel.
func EmptyFields() ExtractedFields {
	return ExtractedFields{Name: NotAvailable, ProfileURL: NotAvailable}
}

// HasName reports whether a non-sentinel name was extracted.
func (f ExtractedFields) HasName() bool {
	return f.Name != "" && f.Name != NotAvailable
}

// HasProfileURL reports whether a non-sentinel profile URL was extracted.
func (f ExtractedFields) HasProfileURL() bool {
	return f.ProfileURL != "" && f.ProfileURL != NotAvailable
}

// ReconciledProfile is the merged answer for one company, built once all
// four sources reached a terminal outcome.
type ReconciledProfile struct {
	Company            string                       `json:"company"`
	Name               string                       `json:"name"`
	ProfileURL         string                       `json:"profile_url"`
	PerSourceFields    map[SourceID]ExtractedFields `json:"per_source_fields"`
	AgreementScore     float64                      `json:"agreement_score"`
	SynthesizedSummary *string                      `json:"synthesized_summary,omitempty"`
	CreatedAt          time.Time                    `json:"created_at"`

	// Persisted is false when the durable save failed and the profile exists
	// only in memory. Never serialized; the store sets the truth on load.
	Persisted bool `json:"-"`
}
