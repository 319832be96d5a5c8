// Package anthropic is the external LLM boundary client used by the
// lexical-value generator (C5, §4.5 step 4): one request in, one block of
// drafted text out. It deliberately drops the teacher's tool-use loop,
// streaming, and multi-turn thinking-block bookkeeping — lexical-value
// generation is a single non-streaming completion over a sampled context.
package anthropic

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/observability"
)

// Request is one completion request: a system prompt and a single user
// message built from the sampled citation context.
type Request struct {
	System string
	Prompt string
}

// Response is the drafted text and the token usage reported by the API.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client wraps the Anthropic Messages API for single-shot completions.
type Client struct {
	sdk       sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// New builds a Client from the process configuration.
func New(cfg config.AnthropicConfig) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(sdk.ModelClaude3_7SonnetLatest)
	}

	return &Client{
		sdk:       sdk.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

// Complete issues one non-streaming completion request and returns the
// concatenated text of every text block in the response. A context deadline
// is applied from the client's configured LLM timeout if ctx carries none
// shorter already (§5's "LLM op" timeout).
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokensOrDefault(),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("anthropic_complete_error")
		return Response{}, errkind.Wrap(errkind.LLMUpstream, err, "anthropic completion failed")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}

	log.Debug().Str("model", c.model).Dur("duration", dur).
		Int64("prompt_tokens", resp.Usage.InputTokens).
		Int64("completion_tokens", resp.Usage.OutputTokens).
		Msg("anthropic_complete_ok")

	return Response{
		Text:             sb.String(),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (c *Client) maxTokensOrDefault() int64 {
	if c.maxTokens > 0 {
		return c.maxTokens
	}
	return 4096
}
