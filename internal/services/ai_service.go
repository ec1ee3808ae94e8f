package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/latestcomment/educhat/internal/config"
	"github.com/latestcomment/educhat/internal/metrics"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/rs/zerolog/log"
)

// ResultKind tells success apart from the failure shapes a query can take.
type ResultKind string

const (
	KindSuccess   ResultKind = "success"
	KindBlocked   ResultKind = "blocked"
	KindConfig    ResultKind = "config"
	KindUpstream  ResultKind = "upstream"
	KindMalformed ResultKind = "malformed"
	KindTransport ResultKind = "transport"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// BlockedKeywords mark paid or proprietary model tiers.
var BlockedKeywords = []string{"pro", "openai", "anthropic", "google", "gpt"}

// Result is a model answer or a displayable description of why there is none.
type Result struct {
	Kind ResultKind `json:"kind"`
	Text string     `json:"text"`
}

func (r Result) OK() bool { return r.Kind == KindSuccess }

// Querier sends one prompt to one model. Implementations never fail with an
// error; failures come back as a Result with a non-success Kind.
type Querier interface {
	Query(ctx context.Context, message, model string) Result
}

type RequestPayload struct {
	Model     string           `json:"model"`
	Messages  []models.Message `json:"messages"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

type ApiResponse struct {
	Choices []struct {
		Message *models.Message `json:"message"`
	} `json:"choices"`
}

// GatewayClient talks to an OpenRouter-compatible chat-completions endpoint.
// Each query is single-turn: the prompt is sent as the only user message.
type GatewayClient struct {
	apiKey    string
	endpoint  string
	maxTokens int
	client    *http.Client
}

func NewGatewayClient(apiKey string, cfg config.GatewayConfig) *GatewayClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}
	return &GatewayClient{
		apiKey:    apiKey,
		endpoint:  endpoint,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// IsBlocked reports whether model names a paid or proprietary tier.
func IsBlocked(model string) bool {
	lower := strings.ToLower(model)
	for _, k := range BlockedKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func BlockedResult(model string) Result {
	return Result{Kind: KindBlocked, Text: fmt.Sprintf("🚫 '%s' blocked: paid models not allowed.", model)}
}

func (g *GatewayClient) Query(ctx context.Context, message, model string) Result {
	start := time.Now()
	res := g.query(ctx, message, model)
	metrics.GatewayRequests.WithLabelValues(model, string(res.Kind)).Inc()
	if res.Kind != KindBlocked && res.Kind != KindConfig {
		metrics.GatewayLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}
	if !res.OK() {
		log.Warn().Str("model", model).Str("kind", string(res.Kind)).Msg("model query failed")
	}
	return res
}

// query checks the blocklist before anything else, so a blocked model is
// reported as blocked even when no credential is configured.
func (g *GatewayClient) query(ctx context.Context, message, model string) Result {
	if IsBlocked(model) {
		return BlockedResult(model)
	}
	if g.apiKey == "" {
		return Result{Kind: KindConfig, Text: "⚠️ OPENROUTER_API_KEY not set."}
	}

	payload := RequestPayload{
		Model:     model,
		Messages:  []models.Message{{Role: "user", Content: message}},
		MaxTokens: g.maxTokens,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Result{Kind: KindTransport, Text: fmt.Sprintf("⚠️ Request error: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return Result{Kind: KindTransport, Text: fmt.Sprintf("⚠️ Request error: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("X-Title", "EduChat")

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{Kind: KindTransport, Text: fmt.Sprintf("⚠️ Request error: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{Kind: KindTransport, Text: fmt.Sprintf("⚠️ Request error: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Kind: KindUpstream, Text: fmt.Sprintf("⚠️ Error %d: %s", resp.StatusCode, string(body))}
	}

	var apiResponse ApiResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return Result{Kind: KindMalformed, Text: fmt.Sprintf("⚠️ Unexpected response format: %s", string(body))}
	}
	if len(apiResponse.Choices) == 0 || apiResponse.Choices[0].Message == nil {
		return Result{Kind: KindMalformed, Text: fmt.Sprintf("⚠️ Unexpected response format: %s", string(body))}
	}
	return Result{Kind: KindSuccess, Text: apiResponse.Choices[0].Message.Content}
}
