// Package extract pulls structured fields out of the free-form text the four
// sources return. The labeled "Name:/Title:/URL:/Location:" marker format is
// the de facto wire protocol of the chat-style sources; this package is the
// only place that knows about it.
package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/chro-finder/internal/model"
)

var (
	linkedInURLRe = regexp.MustCompile(`https?://(?:www\.|in\.)?linkedin\.com/in/[A-Za-z0-9_-]+`)

	nameLabelRe     = regexp.MustCompile(`Name:\s*([^\n]+)`)
	titleLabelRe    = regexp.MustCompile(`Title:\s*([^\n]+)`)
	locationLabelRe = regexp.MustCompile(`Location:\s*([^\n]+)`)

	leadingTitleRe = regexp.MustCompile(`(?i)^(The |Current |Present |As of \d{4},\s*|Mr\. |Ms\. |Mrs\. |Dr\. )`)
	// No word boundary before the verbs: a bare "is " inside a name
	// ("Chris Holmes") also matches and truncates the tail. Sources that
	// follow the prompt answer with the labeled format, which bypasses
	// this path entirely.
	roleClauseRe = regexp.MustCompile(`(?i)(is |was |serves as |working as |the |current |CHRO|Chief Human Resources? Officer|HR Head|Head of HR|VP of HR|Senior VP)[^.]*`)
	parensRe       = regexp.MustCompile(`\([^)]*\)`)
	nonNameCharRe  = regexp.MustCompile(`[^\pL\pN\s-]`)
)

// Extract derives structured fields from raw source text. It is total:
// any input, including the empty string, yields an ExtractedFields with
// sentinels for whatever could not be determined.
func Extract(raw string) model.ExtractedFields {
	fields := model.EmptyFields()
	if strings.TrimSpace(raw) == "" {
		return fields
	}

	if m := linkedInURLRe.FindString(raw); m != "" {
		fields.ProfileURL = m
	}
	if m := titleLabelRe.FindStringSubmatch(raw); m != nil {
		fields.Title = strings.TrimSpace(m[1])
	}
	if m := locationLabelRe.FindStringSubmatch(raw); m != nil {
		fields.Location = strings.TrimSpace(m[1])
	}

	if m := nameLabelRe.FindStringSubmatch(raw); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			fields.Name = name
			return fields
		}
	}
	if name := CleanName(raw); name != "" {
		fields.Name = name
	}
	return fields
}

// CleanName reduces a prose answer ("Dr. John Doe is the CHRO of Acme.")
// to a bare person name. Returns "" when nothing name-like survives.
func CleanName(text string) string {
	// Strip leading honorifics and temporal qualifiers, repeatedly, so
	// "As of 2025, Dr. Jane Smith" loses both prefixes.
	for {
		stripped := leadingTitleRe.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
	}

	// Drop the role clause: everything from the first role keyword to the
	// end of the sentence.
	text = roleClauseRe.ReplaceAllString(text, "")

	// First line, then first sentence.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		text = text[:idx]
	}

	text = parensRe.ReplaceAllString(text, "")
	text = nonNameCharRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
