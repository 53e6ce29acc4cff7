package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/domain/mocks"
	"github.com/Fieldops/fieldops/pkg/cache"
	pkgmocks "github.com/Fieldops/fieldops/pkg/mocks"
	"github.com/Fieldops/fieldops/pkg/ratelimiter"
)

func setupAIService(t *testing.T, requestsPerMin int) (*AIService, *mocks.MockTextGenerator) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockGen := mocks.NewMockTextGenerator(ctrl)
	mockLogger := pkgmocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithField(gomock.Any(), gomock.Any()).Return(mockLogger).AnyTimes()
	mockLogger.EXPECT().WithFields(gomock.Any()).Return(mockLogger).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()

	clock := func() time.Time { return fixedNow }
	svc := NewAIService(AIServiceConfig{
		Generator:      mockGen,
		Cache:          cache.NewTTLCache[*domain.AIGenerationResponse](0, cache.WithClock[*domain.AIGenerationResponse](clock)),
		CacheTTL:       time.Minute,
		RateLimiter:    ratelimiter.NewRateLimiterWithClock(clock),
		RequestsPerMin: requestsPerMin,
		Logger:         mockLogger,
	})
	return svc, mockGen
}

func TestAIService_GenerateText(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults the mode and caches the answer", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 10)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
				assert.Equal(t, domain.AIModeDraftMessage, req.Mode)
				return &domain.AIGenerationResponse{GeneratedText: "Hello"}, nil
			}).Times(1)

		for i := 0; i < 3; i++ {
			resp, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "say hello"})
			require.NoError(t, err)
			assert.Equal(t, "Hello", resp.GeneratedText)
		}
	})

	t.Run("cache is per organization", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 10)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(&domain.AIGenerationResponse{GeneratedText: "Hello"}, nil).Times(2)

		_, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "say hello"})
		require.NoError(t, err)
		_, err = svc.GenerateText(ctx, "org-2", domain.AIGenerationRequest{Prompt: "say hello"})
		require.NoError(t, err)
	})

	t.Run("rate limited per organization", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 1)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(&domain.AIGenerationResponse{GeneratedText: "ok"}, nil).Times(2)

		_, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "one"})
		require.NoError(t, err)

		_, err = svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "two"})
		var limited *domain.RateLimitError
		require.True(t, errors.As(err, &limited))
		assert.Greater(t, limited.RetryAfter, time.Duration(0))

		_, err = svc.GenerateText(ctx, "org-2", domain.AIGenerationRequest{Prompt: "two"})
		assert.NoError(t, err)
	})

	t.Run("invalid request never reaches the generator", func(t *testing.T) {
		svc, _ := setupAIService(t, 10)

		_, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: " "})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("plain errors become upstream failures", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 10)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "x"})
		assert.Equal(t, domain.AIErrorUpstream, aiErrorKind(t, err))
	})

	t.Run("typed errors pass through and are not cached", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 10)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(nil, domain.NewAIError(domain.AIErrorUnauthorized, nil)).Times(2)

		for i := 0; i < 2; i++ {
			_, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "x"})
			assert.Equal(t, domain.AIErrorUnauthorized, aiErrorKind(t, err))
		}
	})

	t.Run("concurrent identical requests share one call", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 100)

		release := make(chan struct{})
		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
				<-release
				return &domain.AIGenerationResponse{GeneratedText: "shared"}, nil
			}).MinTimes(1).MaxTimes(5)

		var wg sync.WaitGroup
		results := make([]string, 5)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "same"})
				if err == nil {
					results[i] = resp.GeneratedText
				}
			}(i)
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		for _, r := range results {
			assert.Equal(t, "shared", r)
		}
	})

	t.Run("a cancelled caller does not fail the others", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 100)

		started := make(chan struct{})
		release := make(chan struct{})
		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(genCtx context.Context, _ domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
				close(started)
				<-release
				if err := genCtx.Err(); err != nil {
					return nil, err
				}
				_, hasDeadline := genCtx.Deadline()
				assert.True(t, hasDeadline)
				return &domain.AIGenerationResponse{GeneratedText: "shared"}, nil
			}).Times(1)

		firstCtx, cancelFirst := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := svc.GenerateText(firstCtx, "org-1", domain.AIGenerationRequest{Prompt: "same"})
			firstErr <- err
		}()
		<-started

		second := make(chan *domain.AIGenerationResponse, 1)
		go func() {
			resp, err := svc.GenerateText(ctx, "org-1", domain.AIGenerationRequest{Prompt: "same"})
			assert.NoError(t, err)
			second <- resp
		}()
		time.Sleep(20 * time.Millisecond)

		cancelFirst()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		resp := <-second
		require.NotNil(t, resp)
		assert.Equal(t, "shared", resp.GeneratedText)
	})
}

func TestAIService_GenerateAutomation(t *testing.T) {
	ctx := context.Background()

	t.Run("fenced json becomes a draft", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 10)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req domain.AIGenerationRequest) (*domain.AIGenerationResponse, error) {
				assert.Equal(t, domain.AIModeGenerateAutomation, req.Mode)
				assert.Contains(t, req.SystemContext, "job_status_changed")
				assert.Contains(t, req.SystemContext, "{{client_first_name}}")
				return &domain.AIGenerationResponse{GeneratedText: "Here you go:\n```json\n" + `{
					"name": "On my way",
					"trigger": {"type": "job_status_changed", "conditions": [
						{"field": "status_from", "operator": "equals", "value": "scheduled"},
						{"field": "status_to", "operator": "equals", "value": "in_progress"}
					]},
					"action": {"type": "send_sms", "config": {"message": "{{technician_name}} is on the way"}}
				}` + "\n```\nLet me know!"}, nil
			})

		draft, err := svc.GenerateAutomation(ctx, "org-1", "text clients when the tech leaves")
		require.NoError(t, err)
		assert.Equal(t, "On my way", draft.Rule.Name)
		assert.Equal(t, "scheduled", draft.StatusFrom)
		assert.Equal(t, "in_progress", draft.StatusTo)
		assert.Empty(t, draft.Rule.Trigger.Conditions)
		assert.Equal(t, "{{technician_name}} is on the way", draft.Rule.Action.Config.String("message"))
		assert.True(t, draft.Validate().Valid)
	})

	t.Run("prose only is unparseable", func(t *testing.T) {
		svc, mockGen := setupAIService(t, 10)

		mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(&domain.AIGenerationResponse{GeneratedText: "I cannot help with that"}, nil)

		_, err := svc.GenerateAutomation(ctx, "org-1", "do something")
		assert.Equal(t, domain.AIErrorUnparseableOutput, aiErrorKind(t, err))
	})

	t.Run("empty prompt", func(t *testing.T) {
		svc, _ := setupAIService(t, 10)

		_, err := svc.GenerateAutomation(ctx, "org-1", "")
		assert.Error(t, err)
	})
}

func TestParseAutomationDraft(t *testing.T) {
	t.Run("bare object with delay and trigger config", func(t *testing.T) {
		draft, err := ParseAutomationDraft(`{
			"name": "Overdue nudge",
			"trigger": {"type": "invoice_overdue", "config": {"days_overdue": 7}},
			"action": {"type": "send_email", "config": {"subject": "Reminder", "body": "{{balance_due}} is due"},
			           "delay": {"unit": "hours", "value": 2}}
		}`)
		require.NoError(t, err)

		n, ok := draft.Rule.Trigger.Config.Int("days_overdue")
		assert.True(t, ok)
		assert.Equal(t, 7, n)
		assert.Equal(t, "Reminder", draft.Rule.Action.Config.String("subject"))
		require.NotNil(t, draft.Rule.Action.Delay)
		assert.Equal(t, domain.DelayHours, draft.Rule.Action.Delay.Unit)
		assert.Equal(t, 2, draft.Rule.Action.Delay.Value)
	})

	t.Run("flat status fields", func(t *testing.T) {
		draft, err := ParseAutomationDraft(`{"name":"x","trigger":{"type":"job_status_to"},"status_to":"completed","action":{"type":"send_sms"}}`)
		require.NoError(t, err)
		assert.Equal(t, "completed", draft.StatusTo)
		assert.Empty(t, draft.StatusFrom)
	})

	t.Run("missing types", func(t *testing.T) {
		_, err := ParseAutomationDraft(`{"name":"x"}`)
		var aiErr *domain.AIGenerationError
		require.True(t, errors.As(err, &aiErr))
		assert.Equal(t, domain.AIErrorUnparseableOutput, aiErr.Kind)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := ParseAutomationDraft("```json\n{\"name\": \n```")
		assert.Error(t, err)
	})
}
