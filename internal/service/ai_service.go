package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/cache"
	"github.com/Fieldops/fieldops/pkg/logger"
	"github.com/Fieldops/fieldops/pkg/ratelimiter"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

const (
	aiRateLimitNamespace     = "ai_generation"
	defaultAIRequestsPerMin  = 20
	defaultAICacheTTL        = 5 * time.Minute
	automationGenTemperature = 0.2
)

// AIServiceConfig contains configuration for the AI service. Timeout bounds one
// shared generator call.
type AIServiceConfig struct {
	Generator      domain.TextGenerator
	Cache          cache.Cache[*domain.AIGenerationResponse]
	CacheTTL       time.Duration
	RateLimiter    *ratelimiter.RateLimiter
	RequestsPerMin int
	Timeout        time.Duration
	Logger         logger.Logger
}

// AIService fronts the text generator with per-organization rate limiting, a short
// lived cache and coalescing of identical in-flight requests
type AIService struct {
	generator domain.TextGenerator
	cache     cache.Cache[*domain.AIGenerationResponse]
	cacheTTL  time.Duration
	timeout   time.Duration
	limiter   *ratelimiter.RateLimiter
	group     singleflight.Group
	logger    logger.Logger
}

// NewAIService creates a new AI service, filling defaults for unset config
func NewAIService(cfg AIServiceConfig) *AIService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultAICacheTTL
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = defaultAIRequestsPerMin
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAITimeout
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewTTLCache[*domain.AIGenerationResponse](time.Minute)
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = ratelimiter.NewRateLimiter()
	}
	cfg.RateLimiter.SetPolicy(aiRateLimitNamespace, cfg.RequestsPerMin, time.Minute)

	return &AIService{
		generator: cfg.Generator,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		timeout:   cfg.Timeout,
		limiter:   cfg.RateLimiter,
		logger:    cfg.Logger,
	}
}

// GenerateText returns generated text for req. Identical requests share one call and a cached answer.
func (s *AIService) GenerateText(ctx context.Context, organizationID string, req domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
	return tracing.TraceMethodWithResult(ctx, "AIService", "GenerateText", func(ctx context.Context) (*domain.AIGenerationResponse, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		tracing.AddAttribute(ctx, "mode", string(req.Mode))

		key := requestKey(organizationID, req)
		if cached, ok := s.cache.Get(key); ok {
			resp := *cached
			return &resp, nil
		}

		if d := s.limiter.Allow(aiRateLimitNamespace, organizationID); !d.Allowed {
			return nil, &domain.RateLimitError{RetryAfter: d.RetryAfter}
		}

		// The shared call outlives any single caller; each caller only stops waiting.
		ch := s.group.DoChan(key, func() (interface{}, error) {
			genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
			defer cancel()

			resp, err := s.generator.Generate(genCtx, req)
			if err != nil {
				return nil, err
			}
			s.cache.Set(key, resp, s.cacheTTL)
			return resp, nil
		})

		var v interface{}
		var err error
		select {
		case res := <-ch:
			v, err = res.Val, res.Err
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			var aiErr *domain.AIGenerationError
			if !errors.As(err, &aiErr) {
				aiErr = domain.NewAIError(domain.AIErrorUpstream, err)
			}
			s.logger.WithFields(map[string]interface{}{
				"organization_id": organizationID,
				"mode":            string(req.Mode),
				"kind":            string(aiErr.Kind),
			}).Warn(fmt.Sprintf("ai generation failed: %v", err))
			return nil, aiErr
		}

		resp := *(v.(*domain.AIGenerationResponse))
		return &resp, nil
	})
}

// GenerateAutomation asks the model for a rule and turns its JSON answer into a draft
func (s *AIService) GenerateAutomation(ctx context.Context, organizationID, prompt string) (*domain.AutomationDraft, error) {
	req := domain.GenerateAutomationRequest{Prompt: prompt}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	temperature := automationGenTemperature
	resp, err := s.GenerateText(ctx, organizationID, domain.AIGenerationRequest{
		Prompt:        prompt,
		SystemContext: catalogContext(),
		Mode:          domain.AIModeGenerateAutomation,
		Temperature:   &temperature,
	})
	if err != nil {
		return nil, err
	}

	draft, err := ParseAutomationDraft(resp.GeneratedText)
	if err != nil {
		s.logger.WithField("organization_id", organizationID).Warn(fmt.Sprintf("could not parse generated automation: %v", err))
		return nil, err
	}
	return draft, nil
}

func requestKey(organizationID string, req domain.AIGenerationRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(append([]byte(organizationID+"|"), payload...))
	return hex.EncodeToString(sum[:])
}

// catalogContext lists the types the model may use
func catalogContext() string {
	var b strings.Builder
	b.WriteString("Trigger types:\n")
	for _, t := range domain.ListTriggers("all") {
		fmt.Fprintf(&b, "- %s: %s\n", t.Type, t.Description)
	}
	b.WriteString("Action types:\n")
	for _, a := range domain.ListActions("all") {
		fmt.Fprintf(&b, "- %s: %s\n", a.Type, a.Description)
	}
	b.WriteString("Message variables: ")
	keys := make([]string, 0)
	for _, v := range domain.Variables() {
		keys = append(keys, "{{"+v.Key+"}}")
	}
	b.WriteString(strings.Join(keys, ", "))
	return b.String()
}

// ParseAutomationDraft extracts the first JSON object from model output, which may be
// wrapped in a ``` fence or surrounded by prose, and builds a draft from it
func ParseAutomationDraft(text string) (*domain.AutomationDraft, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil, domain.NewAIError(domain.AIErrorUnparseableOutput, fmt.Errorf("no JSON object in output"))
	}
	obj := gjson.Parse(raw)

	triggerType := obj.Get("trigger.type").String()
	if triggerType == "" {
		triggerType = obj.Get("trigger_type").String()
	}
	actionType := obj.Get("action.type").String()
	if actionType == "" {
		actionType = obj.Get("action_type").String()
	}
	if triggerType == "" || actionType == "" {
		return nil, domain.NewAIError(domain.AIErrorUnparseableOutput, fmt.Errorf("trigger or action type missing"))
	}

	actions := []domain.DraftAction{
		domain.SetName{Name: obj.Get("name").String()},
		domain.SetDescription{Description: obj.Get("description").String()},
		domain.SetTrigger{Type: domain.TriggerType(triggerType)},
		domain.SetAction{Type: domain.ActionType(actionType)},
	}

	obj.Get("trigger.config").ForEach(func(k, v gjson.Result) bool {
		actions = append(actions, domain.SetTriggerConfig{Key: k.String(), Value: v.Value()})
		return true
	})

	var conditions []domain.Condition
	obj.Get("trigger.conditions").ForEach(func(_, c gjson.Result) bool {
		conditions = append(conditions, domain.Condition{
			Field:    c.Get("field").String(),
			Operator: domain.ConditionOperator(c.Get("operator").String()),
			Value:    c.Get("value").Value(),
		})
		return true
	})
	if len(conditions) > 0 {
		actions = append(actions, domain.SetConditions{Conditions: conditions})
	}

	for _, path := range []string{"status_from", "trigger.status_from"} {
		if v := obj.Get(path).String(); v != "" {
			actions = append(actions, domain.SetStatusFrom{Status: v})
			break
		}
	}
	for _, path := range []string{"status_to", "trigger.status_to"} {
		if v := obj.Get(path).String(); v != "" {
			actions = append(actions, domain.SetStatusTo{Status: v})
			break
		}
	}

	obj.Get("action.config").ForEach(func(k, v gjson.Result) bool {
		actions = append(actions, domain.SetActionConfig{Key: k.String(), Value: v.Value()})
		return true
	})

	if delay := obj.Get("action.delay"); delay.IsObject() {
		actions = append(actions, domain.SetDelay{Delay: &domain.Delay{
			Unit:  domain.DelayUnit(delay.Get("unit").String()),
			Value: int(delay.Get("value").Int()),
		}})
	}

	draft := domain.StartBlank().Apply(actions...)
	return &draft, nil
}

func extractJSONObject(text string) (string, bool) {
	candidates := []string{}
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			candidates = append(candidates, rest[:end])
		}
	}
	if first, last := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); first >= 0 && last > first {
		candidates = append(candidates, text[first:last+1])
	}

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if gjson.Valid(c) && gjson.Parse(c).IsObject() {
			return c, true
		}
	}
	return "", false
}
