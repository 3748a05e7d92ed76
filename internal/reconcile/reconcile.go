// Package reconcile merges per-source CHRO fields into a single profile,
// breaking disagreements by majority vote and then by source reliability.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/model"
)

// Summarizer synthesizes a narrative profile from the raw source answers.
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine reconciles extracted fields across sources.
type Engine struct {
	summarizer Summarizer
}

// New creates an Engine. summarizer may be nil, in which case profiles
// carry no synthesized summary.
func New(summarizer Summarizer) *Engine {
	return &Engine{summarizer: summarizer}
}

// Reconcile builds the final profile for a company from the per-source
// extracted fields. raws carries the original source answers for the
// summary prompt.
func (e *Engine) Reconcile(ctx context.Context, company string, fields map[model.SourceID]model.ExtractedFields, raws map[model.SourceID]model.RawSourceResult) model.ReconciledProfile {
	name, nameScore := pickValue(fields, func(f model.ExtractedFields) string { return f.Name }, normalizeName)
	url, _ := pickValue(fields, func(f model.ExtractedFields) string { return f.ProfileURL }, normalizeURL)

	p := model.ReconciledProfile{
		Company:         company,
		Name:            name,
		ProfileURL:      url,
		PerSourceFields: fields,
		AgreementScore:  nameScore,
		CreatedAt:       time.Now().UTC(),
	}

	// The summary is driven by the raw answers, not the extracted fields:
	// a source can succeed with useful prose even when no name survives
	// extraction. Only a failed generation leaves the summary nil.
	if e.summarizer != nil && anyRawText(raws) {
		summary, err := e.summarizer.Generate(ctx, SummaryPrompt(company, raws))
		if err != nil {
			zap.L().Warn("summary generation failed",
				zap.String("company", company),
				zap.Error(err))
		} else {
			p.SynthesizedSummary = &summary
		}
	}

	return p
}

// pickValue resolves one field across sources. Values are grouped under a
// normalized key; a group of two or more wins outright. With no agreement
// the most reliable source holding a real value wins. All-sentinel input
// yields the sentinel with score zero.
func pickValue(fields map[model.SourceID]model.ExtractedFields, get func(model.ExtractedFields) string, normalize func(string) string) (string, float64) {
	total := float64(len(model.AllSources()))

	// Each group keeps the spelling reported by its most reliable member.
	groups := make(map[string][]model.SourceID)
	original := make(map[string]string)
	originalRank := make(map[string]int)
	for id, f := range fields {
		v := get(f)
		if v == "" || v == model.NotAvailable {
			continue
		}
		key := normalize(v)
		groups[key] = append(groups[key], id)
		if r := model.ReliabilityRank(id); original[key] == "" || r < originalRank[key] {
			original[key] = v
			originalRank[key] = r
		}
	}

	// Majority first. Ties between equally sized groups go to the group
	// holding the more reliable source.
	bestKey := ""
	bestSize := 0
	for key, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		if len(ids) > bestSize || (len(ids) == bestSize && bestRank(ids) < bestRank(groups[bestKey])) {
			bestKey, bestSize = key, len(ids)
		}
	}
	if bestKey != "" {
		return original[bestKey], float64(bestSize) / total
	}

	// No two sources agree. Walk sources by reliability and take the
	// first real value.
	ranked := make([]model.SourceID, 0, len(fields))
	for id := range fields {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return model.ReliabilityRank(ranked[i]) < model.ReliabilityRank(ranked[j])
	})
	for _, id := range ranked {
		if v := get(fields[id]); v != "" && v != model.NotAvailable {
			return v, 1 / total
		}
	}

	return model.NotAvailable, 0
}

// anyRawText reports whether at least one source succeeded with non-empty
// text, i.e. there is something for the summarizer to work from.
func anyRawText(raws map[model.SourceID]model.RawSourceResult) bool {
	for _, r := range raws {
		if r.Outcome.OK() && strings.TrimSpace(r.RawText) != "" {
			return true
		}
	}
	return false
}

func bestRank(ids []model.SourceID) int {
	best := len(model.AllSources())
	for _, id := range ids {
		if r := model.ReliabilityRank(id); r < best {
			best = r
		}
	}
	return best
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "/")
}

var summarySourceLabels = map[model.SourceID]string{
	model.SourcePerplexity: "Source 1 (Perplexity AI)",
	model.SourceChatGPT:    "Source 2 (OpenAI)",
	model.SourceGemini:     "Source 3 (Google Search)",
	model.SourceLinkedIn:   "Source 4 (LinkedIn Head Search)",
}

// SummaryPrompt builds the synthesis prompt from the raw source answers.
func SummaryPrompt(company string, raws map[model.SourceID]model.RawSourceResult) string {
	var data strings.Builder
	for _, id := range model.AllSources() {
		answer := "No result"
		if r, ok := raws[id]; ok && r.Outcome.OK() && strings.TrimSpace(r.RawText) != "" {
			answer = r.RawText
		}
		fmt.Fprintf(&data, "\n%s: %s\n", summarySourceLabels[id], answer)
	}

	return fmt.Sprintf(`Act as a professional HR data analyst. I have gathered information about the CHRO (Chief Human Resources Officer) of %s from four different AI sources. Here is the verified data:
%s
Based on these sources, please provide a comprehensive profile with these sections:

1. Executive Summary:
   - Full Name and Current Position
   - Confirmation of Role at %s
   - Direct LinkedIn Profile URL (if available)

2. Professional Background:
   - Previous positions and companies
   - Years of experience in HR
   - Educational background (if available)

3. Current Role at %s:
   - Key responsibilities
   - Notable initiatives or transformations led
   - Areas of focus

4. Source Analysis:
   - Comparison of information from all sources
   - Confidence level in the information
   - Any discrepancies found

Format as a clean, professional profile with bullet points and clear sections. Ensure the output is well-structured and directly answers the question about who is the CHRO at %s.`,
		company, data.String(), company, company, company)
}
