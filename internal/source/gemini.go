package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/pkg/gemini"
)

// GeminiAdapter asks Gemini with Google Search grounding, so the answer
// reflects live results rather than training data.
type GeminiAdapter struct {
	client   gemini.Client
	progress ProgressFunc
}

func NewGeminiAdapter(client gemini.Client, progress ProgressFunc) *GeminiAdapter {
	if progress == nil {
		progress = NopProgress
	}
	return &GeminiAdapter{client: client, progress: progress}
}

func (a *GeminiAdapter) ID() model.SourceID { return model.SourceGemini }

func (a *GeminiAdapter) Query(ctx context.Context, company string) model.RawSourceResult {
	a.progress(0.3, "asking Gemini with search grounding")

	answer, err := a.client.GroundedAnswer(ctx, GroundedPrompt(company))
	if err != nil {
		zap.L().Warn("gemini query failed",
			zap.String("company", company),
			zap.Error(err))
		return result(a.ID(), company, "", err)
	}

	a.progress(1.0, "Gemini answered")
	return result(a.ID(), company, answer, nil)
}
