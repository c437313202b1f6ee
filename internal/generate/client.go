package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/ragviz/internal/prompt"
)

// Record is the durable outcome of one generation call: the answer plus the
// token and cost accounting shown in the UI and persisted to history.
type Record struct {
	// ID is assigned by the history store on insert; zero until then.
	ID int64 `json:"id,omitempty"`

	// Backend is the provider that served the call.
	Backend string `json:"backend"`

	// Model is the model name the call ran against.
	Model string `json:"model"`

	// Query is the user's question.
	Query string `json:"query"`

	// Answer is the model's response text.
	Answer string `json:"answer"`

	// PromptTokens and CompletionTokens are the provider-reported counts.
	// When the provider omits usage metadata they fall back to the local
	// estimate and TokensEstimated is set.
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	TokensEstimated  bool `json:"tokens_estimated,omitempty"`

	// CostUSD is the call cost at the configured pricing. Zero for local
	// and unlisted models.
	CostUSD float64 `json:"cost_usd"`

	// DurationMS is the wall-clock call latency in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// CreatedAt is when the call completed.
	CreatedAt time.Time `json:"created_at"`
}

// Client drives one configured generation backend. Safe for concurrent use.
type Client struct {
	cfg     *Config
	chat    model.BaseChatModel
	pricing map[string]ModelPricing
	log     *slog.Logger
}

// NewClient validates cfg, constructs the backend chat model, and returns a
// ready client. Credential problems are reported here, wrapped in ErrAuth,
// before any request is made. pricing overrides the built-in price table
// per model name and may be nil.
func NewClient(ctx context.Context, cfg *Config, pricing map[string]ModelPricing, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, classify(fmt.Errorf("generate: constructing %s backend: %w", cfg.Backend, err))
	}
	return &Client{cfg: cfg, chat: chat, pricing: pricing, log: log}, nil
}

// Generate sends the composed prompt to the backend and returns the answer
// with its accounting. temperature overrides the configured default for this
// call. Failures are classified under ErrAuth, ErrRateLimited, or
// ErrService.
func (c *Client) Generate(ctx context.Context, pc *prompt.Context, temperature float32) (*Record, error) {
	opts := []model.Option{model.WithTemperature(temperature)}
	if c.cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.cfg.MaxTokens))
	}

	start := time.Now()
	resp, err := c.chat.Generate(ctx, pc.Messages(), opts...)
	if err != nil {
		c.log.Error("generation failed",
			"backend", c.cfg.Backend,
			"model", c.cfg.Model,
			"duration", time.Since(start),
			"error", err)
		return nil, classify(err)
	}
	elapsed := time.Since(start)

	rec := &Record{
		Backend:    string(c.cfg.Backend),
		Model:      c.cfg.Model,
		Query:      pc.UserQuery,
		Answer:     strings.TrimSpace(resp.Content),
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	// Provider-reported usage is authoritative; estimate only when absent.
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := resp.ResponseMeta.Usage
		rec.PromptTokens = u.PromptTokens
		rec.CompletionTokens = u.CompletionTokens
		rec.TotalTokens = u.TotalTokens
		if rec.TotalTokens == 0 {
			rec.TotalTokens = u.PromptTokens + u.CompletionTokens
		}
	} else {
		rec.PromptTokens = prompt.EstimateTokens(pc)
		rec.CompletionTokens = len(resp.Content) / 4
		rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
		rec.TokensEstimated = true
	}
	rec.CostUSD = PriceFor(c.cfg.Model, c.pricing).Cost(rec.PromptTokens, rec.CompletionTokens)

	c.log.Info("generation complete",
		"backend", c.cfg.Backend,
		"model", c.cfg.Model,
		"prompt_tokens", rec.PromptTokens,
		"completion_tokens", rec.CompletionTokens,
		"cost_usd", rec.CostUSD,
		"duration", elapsed)
	return rec, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Backend returns the configured backend identifier.
func (c *Client) Backend() Backend { return c.cfg.Backend }
