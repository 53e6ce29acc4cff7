package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"

	"github.com/Fieldops/fieldops/config"
	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/logger"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultAIMaxTokens    = 2048
	defaultAITimeout      = 60 * time.Second
)

// NewTextGenerator picks the generator named by cfg.Provider. A provider without
// credentials yields a generator that always fails with not_configured.
func NewTextGenerator(cfg config.AIConfig, log logger.Logger) domain.TextGenerator {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Warn("AI provider is anthropic but no API key is set")
			return unconfiguredGenerator{}
		}
		return NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.DefaultMaxTokens)
	case "edge_function":
		if cfg.FunctionURL == "" {
			log.Warn("AI provider is edge_function but no function URL is set")
			return unconfiguredGenerator{}
		}
		return NewEdgeFunctionGenerator(cfg.FunctionURL, cfg.FunctionKey, &http.Client{Timeout: cfg.Timeout})
	default:
		return unconfiguredGenerator{}
	}
}

type unconfiguredGenerator struct{}

func (unconfiguredGenerator) Generate(context.Context, domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
	return nil, domain.NewAIError(domain.AIErrorNotConfigured, nil)
}

// AnthropicGenerator calls the Messages API directly
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicGenerator creates a generator calling the Anthropic messages API
func NewAnthropicGenerator(apiKey, model string, maxTokens int, opts ...option.RequestOption) *AnthropicGenerator {
	if model == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultAIMaxTokens
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate sends one message request and joins the text blocks of the answer
func (g *AnthropicGenerator) Generate(ctx context.Context, req domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if system := systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return nil, domain.NewAIError(domain.AIErrorUnauthorized, err)
		}
		return nil, domain.NewAIError(domain.AIErrorUpstream, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return nil, domain.NewAIError(domain.AIErrorMalformedResponse, fmt.Errorf("no text in response"))
	}
	return &domain.AIGenerationResponse{GeneratedText: text.String()}, nil
}

// EdgeFunctionGenerator posts to the hosted generate-with-ai function, which wraps
// the model call and answers {"generatedText": "..."}
type EdgeFunctionGenerator struct {
	url    string
	key    string
	client *http.Client
}

// NewEdgeFunctionGenerator creates a generator posting to a hosted function
func NewEdgeFunctionGenerator(url, key string, client *http.Client) *EdgeFunctionGenerator {
	if client == nil || client.Timeout == 0 {
		client = &http.Client{Timeout: defaultAITimeout}
	}
	return &EdgeFunctionGenerator{
		url:    url,
		key:    key,
		client: tracing.WrapHTTPClient(client),
	}
}

type edgeFunctionPayload struct {
	Prompt        string   `json:"prompt"`
	SystemContext string   `json:"systemContext,omitempty"`
	Mode          string   `json:"mode,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     int      `json:"maxTokens,omitempty"`
}

// Generate posts req and reads generatedText from the JSON answer
func (g *EdgeFunctionGenerator) Generate(ctx context.Context, req domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
	payload, err := json.Marshal(edgeFunctionPayload{
		Prompt:        req.Prompt,
		SystemContext: req.SystemContext,
		Mode:          string(req.Mode),
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewAIError(domain.AIErrorNotConfigured, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.key)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewAIError(domain.AIErrorUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewAIError(domain.AIErrorUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.NewAIError(domain.AIErrorUnauthorized, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, domain.NewAIError(domain.AIErrorUpstream, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if !gjson.ValidBytes(body) {
		return nil, domain.NewAIError(domain.AIErrorMalformedResponse, fmt.Errorf("response is not JSON"))
	}
	text := gjson.GetBytes(body, "generatedText")
	if !text.Exists() || text.Type != gjson.String {
		return nil, domain.NewAIError(domain.AIErrorMalformedResponse, fmt.Errorf("generatedText missing from response"))
	}
	return &domain.AIGenerationResponse{GeneratedText: text.String()}, nil
}

// systemPrompt joins the mode instructions with the caller's context
func systemPrompt(req domain.AIGenerationRequest) string {
	parts := []string{}
	if base, ok := modePrompts[req.Mode]; ok {
		parts = append(parts, base)
	}
	if s := strings.TrimSpace(req.SystemContext); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n\n")
}

var modePrompts = map[domain.AIGenerationMode]string{
	domain.AIModeDraftMessage: "You write short, friendly customer messages for a field service business. " +
		"Use {{variable}} placeholders such as {{client_first_name}}, {{job_date}} and {{company_name}} where they fit. " +
		"Reply with the message text only.",
	domain.AIModeEnhanceMessage: "Improve the message you are given for clarity and warmth without changing its meaning. " +
		"Keep every {{variable}} placeholder exactly as written. Reply with the message text only.",
	domain.AIModeGenerateAutomation: "You design automation rules for a field service business. " +
		"Reply with a single JSON object with the keys name, description, trigger {type, conditions, config}, " +
		"status_from, status_to and action {type, config, delay {unit, value}}. " +
		"Use only trigger and action types from the catalog you are given.",
}
