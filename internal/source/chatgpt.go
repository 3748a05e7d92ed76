package source

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/model"
	"github.com/sells-group/chro-finder/internal/resilience"
)

const (
	chatGPTURL           = "https://chat.openai.com/"
	promptSelector       = "#prompt-textarea"
	sendButtonSelector   = `button[data-testid="send-button"]`
	assistantSelector    = `div[data-message-author-role="assistant"]`
	responseSettleChecks = 3
)

// ChatGPTConfig controls the browser session behind the ChatGPT adapter.
type ChatGPTConfig struct {
	URL               string
	Headless          bool
	NavigationTimeout time.Duration
	ResponseTimeout   time.Duration
}

func DefaultChatGPTConfig() ChatGPTConfig {
	return ChatGPTConfig{
		URL:               chatGPTURL,
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		ResponseTimeout:   90 * time.Second,
	}
}

// ChatGPTAdapter drives the ChatGPT web interface through a headless
// browser. A fresh page is opened per query so one stuck conversation
// cannot poison the next company.
type ChatGPTAdapter struct {
	cfg      ChatGPTConfig
	progress ProgressFunc
}

func NewChatGPTAdapter(cfg ChatGPTConfig, progress ProgressFunc) *ChatGPTAdapter {
	if cfg.URL == "" {
		cfg.URL = chatGPTURL
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.ResponseTimeout == 0 {
		cfg.ResponseTimeout = 90 * time.Second
	}
	if progress == nil {
		progress = NopProgress
	}
	return &ChatGPTAdapter{cfg: cfg, progress: progress}
}

func (a *ChatGPTAdapter) ID() model.SourceID { return model.SourceChatGPT }

func (a *ChatGPTAdapter) Query(ctx context.Context, company string) model.RawSourceResult {
	text, err := a.run(ctx, company)
	if err != nil {
		zap.L().Warn("chatgpt query failed",
			zap.String("company", company),
			zap.Error(err))
		return result(a.ID(), company, "", err)
	}
	if looksRateLimited(text) {
		return result(a.ID(), company, text, resilience.NewRateLimitError(eris.New("chatgpt: interface reported rate limit"), 0))
	}
	return result(a.ID(), company, text, nil)
}

func (a *ChatGPTAdapter) run(ctx context.Context, company string) (string, error) {
	a.progress(0.1, "launching browser")

	u, err := launcher.New().Headless(a.cfg.Headless).Launch()
	if err != nil {
		return "", eris.Wrap(err, "chatgpt: launch browser")
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", eris.Wrap(err, "chatgpt: connect browser")
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: a.cfg.URL})
	if err != nil {
		return "", eris.Wrap(err, "chatgpt: open page")
	}
	defer page.Close()

	a.progress(0.3, "loading chat interface")
	if err := page.Timeout(a.cfg.NavigationTimeout).WaitLoad(); err != nil {
		return "", eris.Wrap(err, "chatgpt: wait for page load")
	}

	a.progress(0.5, "sending prompt")
	input, err := page.Timeout(a.cfg.NavigationTimeout).Element(promptSelector)
	if err != nil {
		return "", eris.Wrap(err, "chatgpt: find prompt input")
	}
	if err := input.Input(CHROPrompt(company)); err != nil {
		return "", eris.Wrap(err, "chatgpt: type prompt")
	}

	send, err := page.Timeout(a.cfg.NavigationTimeout).Element(sendButtonSelector)
	if err != nil {
		return "", eris.Wrap(err, "chatgpt: find send button")
	}
	if err := send.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", eris.Wrap(err, "chatgpt: click send")
	}

	a.progress(0.7, "waiting for response")
	return a.harvest(ctx, page)
}

// harvest polls the assistant message until its text stops growing for a
// few consecutive checks, then returns it.
func (a *ChatGPTAdapter) harvest(ctx context.Context, page *rod.Page) (string, error) {
	deadline := time.Now().Add(a.cfg.ResponseTimeout)
	var last string
	stable := 0

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}

		els, err := page.Elements(assistantSelector)
		if err != nil || len(els) == 0 {
			continue
		}
		text, err := els[len(els)-1].Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if text == last {
			stable++
			if stable >= responseSettleChecks {
				a.progress(1.0, "response received")
				return text, nil
			}
		} else {
			last = text
			stable = 0
		}
	}

	if last != "" {
		return last, nil
	}
	return "", eris.New("chatgpt: timed out waiting for response")
}

func looksRateLimited(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"too many requests", "rate limit", "you've reached our limit"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
