package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/domain/mocks"
	pkgmocks "github.com/Fieldops/fieldops/pkg/mocks"
)

func TestExecutionService_RecordExecution(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAutomationRepository(ctrl)
	mockLogger := pkgmocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithFields(gomock.Any()).Return(mockLogger).AnyTimes()
	mockLogger.EXPECT().Debug(gomock.Any()).AnyTimes()

	svc := NewExecutionService(mockRepo, mockLogger)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().RecordExecution(gomock.Any(), "org-1", "rule-1", true).Return(nil)

		err := svc.RecordExecution(ctx, domain.ExecutionReport{
			RuleID:         "rule-1",
			OrganizationID: "org-1",
			Success:        true,
			Channel:        domain.ChannelSMS,
		})
		assert.NoError(t, err)
	})

	t.Run("invalid report", func(t *testing.T) {
		err := svc.RecordExecution(ctx, domain.ExecutionReport{OrganizationID: "org-1"})
		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("unknown rule", func(t *testing.T) {
		mockRepo.EXPECT().RecordExecution(gomock.Any(), "org-1", "missing", false).
			Return(&domain.ErrNotFound{Entity: "automation", ID: "missing"})
		mockLogger.EXPECT().Error(gomock.Any())

		err := svc.RecordExecution(ctx, domain.ExecutionReport{RuleID: "missing", OrganizationID: "org-1"})
		var notFound *domain.ErrNotFound
		assert.True(t, errors.As(err, &notFound))
	})
}
