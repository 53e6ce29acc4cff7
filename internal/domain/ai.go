package domain

import (
	"context"
	"fmt"
	"strings"
)

//go:generate mockgen -destination mocks/mock_text_generator.go -package mocks github.com/Fieldops/fieldops/internal/domain TextGenerator
//go:generate mockgen -destination mocks/mock_ai_service.go -package mocks github.com/Fieldops/fieldops/internal/domain AIService

type AIGenerationMode string

const (
	AIModeDraftMessage       AIGenerationMode = "draft_message"
	AIModeEnhanceMessage     AIGenerationMode = "enhance_message"
	AIModeGenerateAutomation AIGenerationMode = "generate_automation"
)

func (m AIGenerationMode) IsValid() bool {
	switch m {
	case AIModeDraftMessage, AIModeEnhanceMessage, AIModeGenerateAutomation:
		return true
	default:
		return false
	}
}

const (
	MaxAIPromptLength = 8000
	MaxAITokens       = 4096
)

type AIGenerationRequest struct {
	Prompt        string           `json:"prompt"`
	SystemContext string           `json:"system_context,omitempty"`
	Mode          AIGenerationMode `json:"mode,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	MaxTokens     int              `json:"max_tokens,omitempty"`
}

// Validate checks the prompt and generation settings, defaulting the mode
func (r *AIGenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewValidationError("prompt is required")
	}
	if len(r.Prompt) > MaxAIPromptLength {
		return NewValidationError(fmt.Sprintf("prompt cannot exceed %d characters", MaxAIPromptLength))
	}
	if r.Mode == "" {
		r.Mode = AIModeDraftMessage
	}
	if !r.Mode.IsValid() {
		return NewValidationError(fmt.Sprintf("invalid mode: %s", r.Mode))
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return NewValidationError("temperature must be between 0 and 1")
	}
	if r.MaxTokens < 0 || r.MaxTokens > MaxAITokens {
		return NewValidationError(fmt.Sprintf("max_tokens must be between 0 and %d", MaxAITokens))
	}
	return nil
}

type AIGenerationResponse struct {
	GeneratedText string `json:"generated_text"`
}

type GenerateAutomationRequest struct {
	Prompt string `json:"prompt"`
}

// Validate requires a non-blank prompt within the length limit
func (r *GenerateAutomationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewValidationError("prompt is required")
	}
	if len(r.Prompt) > MaxAIPromptLength {
		return NewValidationError(fmt.Sprintf("prompt cannot exceed %d characters", MaxAIPromptLength))
	}
	return nil
}

// TextGenerator is the remote text generation collaborator
type TextGenerator interface {
	Generate(ctx context.Context, req AIGenerationRequest) (*AIGenerationResponse, error)
}

type AIService interface {
	GenerateText(ctx context.Context, organizationID string, req AIGenerationRequest) (*AIGenerationResponse, error)
	GenerateAutomation(ctx context.Context, organizationID, prompt string) (*AutomationDraft, error)
}
