package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/resilience"
)

const defaultSearchBaseURL = "https://www.google.com/search"

var (
	profileHrefRe = regexp.MustCompile(`https?://(?:www\.|in\.)?linkedin\.com/in/[a-zA-Z0-9_-]+`)
	titleAtRe     = regexp.MustCompile(`(?i)((?:chro|chief human resources? officer|hr head|head of hr|vp of hr|head of human resources)[^,.|]*)`)
	locationInRe  = regexp.MustCompile(`(?i)(?:based in|located in|location:)\s*([A-Za-z ]+)`)
)

// LinkedInConfig controls the web search scraper.
type LinkedInConfig struct {
	// SearchBaseURL is the search endpoint queried for public LinkedIn
	// results. Overridable for tests.
	SearchBaseURL string
	// RequestsPerSecond throttles outbound searches.
	RequestsPerSecond float64
	Timeout           time.Duration
}

func DefaultLinkedInConfig() LinkedInConfig {
	return LinkedInConfig{
		SearchBaseURL:     defaultSearchBaseURL,
		RequestsPerSecond: 0.5,
		Timeout:           30 * time.Second,
	}
}

// LinkedInAdapter finds CHRO profiles by scraping public web search
// results for LinkedIn profile links.
type LinkedInAdapter struct {
	cfg      LinkedInConfig
	http     *http.Client
	limiter  *rate.Limiter
	progress ProgressFunc
}

func NewLinkedInAdapter(cfg LinkedInConfig, progress ProgressFunc) *LinkedInAdapter {
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = defaultSearchBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if progress == nil {
		progress = NopProgress
	}
	return &LinkedInAdapter{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		progress: progress,
	}
}

func (a *LinkedInAdapter) ID() model.SourceID { return model.SourceLinkedIn }

func (a *LinkedInAdapter) Query(ctx context.Context, company string) model.RawSourceResult {
	text, err := a.search(ctx, company)
	if err != nil {
		zap.L().Warn("linkedin search failed",
			zap.String("company", company),
			zap.Error(err))
		return result(a.ID(), company, "", err)
	}
	return result(a.ID(), company, text, nil)
}

func (a *LinkedInAdapter) search(ctx context.Context, company string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "linkedin: rate limiter")
	}

	a.progress(0.3, "searching for LinkedIn profiles")

	searchURL := a.cfg.SearchBaseURL + "?q=" + url.QueryEscape(SearchQuery(company))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "linkedin: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "linkedin: search request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", resilience.NewRateLimitError(eris.Errorf("linkedin: search returned 429: %s", string(body)), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("linkedin: search returned status %d", resp.StatusCode)
	}

	a.progress(0.6, "parsing search results")

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "linkedin: parse search page")
	}

	profile, ok := a.extractProfile(doc)
	if !ok {
		return "", eris.Errorf("linkedin: no profile found for %s", company)
	}

	a.progress(1.0, "profile found")
	return profile.block(), nil
}

type scrapedProfile struct {
	Name     string
	Title    string
	URL      string
	Location string
}

// block renders the profile in the labeled form the extractor reads.
func (p scrapedProfile) block() string {
	orNA := func(s string) string {
		if s == "" {
			return model.NotAvailable
		}
		return s
	}
	return fmt.Sprintf("Name: %s\nTitle: %s\nURL: %s\nLocation: %s",
		orNA(p.Name), orNA(p.Title), orNA(p.URL), orNA(p.Location))
}

// extractProfile walks the result anchors and takes the first one linking
// to a LinkedIn profile. The anchor text usually carries "Name - Title |
// LinkedIn" and the surrounding snippet carries title and location.
func (a *LinkedInAdapter) extractProfile(doc *goquery.Document) (scrapedProfile, bool) {
	var p scrapedProfile
	found := false

	doc.Find(`a[href*="linkedin.com/in/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		m := profileHrefRe.FindString(href)
		if m == "" {
			return true
		}
		p.URL = stripQuery(m)

		heading := strings.TrimSpace(sel.Text())
		if heading != "" {
			p.Name, p.Title = splitHeading(heading)
		}

		snippet := strings.TrimSpace(sel.Closest("div").Parent().Text())
		if p.Title == "" {
			if m := titleAtRe.FindStringSubmatch(snippet); m != nil {
				p.Title = strings.TrimSpace(m[1])
			}
		}
		if m := locationInRe.FindStringSubmatch(snippet); m != nil {
			p.Location = strings.TrimSpace(m[1])
		}

		found = true
		return false
	})

	return p, found
}

// splitHeading breaks a result heading like "Jane Doe - CHRO at Acme |
// LinkedIn" into name and title.
func splitHeading(heading string) (name, title string) {
	heading = strings.TrimSuffix(heading, "| LinkedIn")
	heading = strings.TrimSuffix(strings.TrimSpace(heading), "- LinkedIn")
	heading = strings.TrimSpace(heading)

	if i := strings.Index(heading, " - "); i >= 0 {
		return strings.TrimSpace(heading[:i]), strings.TrimSpace(heading[i+3:])
	}
	if i := strings.Index(heading, " – "); i >= 0 {
		return strings.TrimSpace(heading[:i]), strings.TrimSpace(heading[i+len(" – "):])
	}
	return heading, ""
}

// stripQuery drops tracking parameters and fragments from a profile URL.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
