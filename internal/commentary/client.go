package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"caissa-analytics/internal/config"
	"caissa-analytics/internal/constants"
	"caissa-analytics/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are a chess expert analyzing mistakes in chess games. Provide clear, concise explanations."

// Generator produces a natural-language explanation for one mistake.
type Generator interface {
	Enabled() bool
	Explain(ctx context.Context, m domain.Mistake) (string, error)
}

// Client calls the OpenAI chat-completions API. With no API key configured
// the client is disabled and never issues a request.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *fasthttp.Client
	logger   zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:   cfg.OpenAIAPIKey,
		model:    cfg.OpenAIModel,
		endpoint: defaultEndpoint,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.OpenAIRequestTimeout,
			WriteTimeout:        constants.OpenAIRequestTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Explain asks the model why the move was a mistake. Evaluations are shown
// in pawn units, two decimals.
func (c *Client) Explain(ctx context.Context, m domain.Mistake) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(m)},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(body)

	// Every request is deadline-bounded; the caller's context can only
	// tighten the cap.
	deadline := time.Now().Add(constants.OpenAIRequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("openai API error: %d", resp.StatusCode())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response contained no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func buildPrompt(m domain.Mistake) string {
	return fmt.Sprintf(`Analyze this chess mistake:

Move: %s (move %d)
Position (FEN): %s
Evaluation before: %.2f pawns
Evaluation after: %.2f pawns
Evaluation drop: %.2f pawns

Provide a brief tactical/strategic explanation of why this move was a mistake. Keep it concise (2-3 sentences).`,
		m.MoveSAN, m.MoveNumber, m.FENBefore,
		float64(m.EvalBefore)/100, float64(m.EvalAfter)/100, float64(m.EvalDrop)/100)
}
