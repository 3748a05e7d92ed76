package source

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/resilience"
	"github.com/sells-group/chro-finder/pkg/perplexity"
)

// PerplexityAdapter asks the Perplexity chat API.
type PerplexityAdapter struct {
	client   perplexity.Client
	progress ProgressFunc
}

func NewPerplexityAdapter(client perplexity.Client, progress ProgressFunc) *PerplexityAdapter {
	if progress == nil {
		progress = NopProgress
	}
	return &PerplexityAdapter{client: client, progress: progress}
}

func (a *PerplexityAdapter) ID() model.SourceID { return model.SourcePerplexity }

func (a *PerplexityAdapter) Query(ctx context.Context, company string) model.RawSourceResult {
	a.progress(0.3, "asking Perplexity")

	answer, err := a.client.Ask(ctx, CHROPrompt(company))
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			err = resilience.NewRateLimitError(err, apiErr.StatusCode)
		}
		zap.L().Warn("perplexity query failed",
			zap.String("company", company),
			zap.Error(err))
		return result(a.ID(), company, "", err)
	}

	a.progress(1.0, "Perplexity answered")
	return result(a.ID(), company, answer, nil)
}
