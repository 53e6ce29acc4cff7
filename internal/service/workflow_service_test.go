package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/domain/mocks"
	pkgmocks "github.com/Fieldops/fieldops/pkg/mocks"
)

func setupWorkflowService(t *testing.T) (*WorkflowService, *mocks.MockWorkflowRepository, *pkgmocks.MockLogger) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockWorkflowRepository(ctrl)
	mockLogger := pkgmocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().WithField(gomock.Any(), gomock.Any()).Return(mockLogger).AnyTimes()
	mockLogger.EXPECT().WithFields(gomock.Any()).Return(mockLogger).AnyTimes()

	svc := NewWorkflowService(mockRepo, mockLogger)
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, mockRepo, mockLogger
}

func newTestWorkflow() *domain.Workflow {
	w := &domain.Workflow{
		Name:    "Follow up",
		Trigger: domain.WorkflowTrigger{ID: "temp-1", Type: domain.TriggerJobCompleted, Name: "Job Completed"},
	}
	sms := domain.NewWorkflowStep(domain.StepSMS, fixedNow)
	sms.Config["message"] = "Thanks {{client_first_name}}"
	w.AddStep(sms)
	return w
}

func TestWorkflowService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("new workflow gets persistent ids", func(t *testing.T) {
		svc, mockRepo, _ := setupWorkflowService(t)

		mockRepo.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, w *domain.Workflow) error {
				assert.Equal(t, "id-1", w.ID)
				assert.Equal(t, "org-1", w.OrganizationID)
				assert.Equal(t, "id-2", w.Trigger.ID)
				assert.Equal(t, "id-3", w.Steps[0].ID)
				assert.False(t, w.Steps[0].IsTemporary())
				assert.Equal(t, fixedNow, w.CreatedAt)
				return nil
			})

		saved, err := svc.Save(ctx, "org-1", newTestWorkflow())
		require.NoError(t, err)
		assert.Equal(t, "id-1", saved.ID)
	})

	t.Run("existing workflow keeps creation time", func(t *testing.T) {
		svc, mockRepo, _ := setupWorkflowService(t)
		created := fixedNow.Add(-time.Hour)

		w := newTestWorkflow()
		w.ID = "wf-1"
		mockRepo.EXPECT().GetByID(gomock.Any(), "org-1", "wf-1").Return(&domain.Workflow{ID: "wf-1", CreatedAt: created}, nil)
		mockRepo.EXPECT().Upsert(gomock.Any(), w).Return(nil)

		saved, err := svc.Save(ctx, "org-1", w)
		require.NoError(t, err)
		assert.Equal(t, created, saved.CreatedAt)
		assert.Equal(t, fixedNow, saved.UpdatedAt)
	})

	t.Run("invalid workflow", func(t *testing.T) {
		svc, _, _ := setupWorkflowService(t)

		w := newTestWorkflow()
		w.Steps[0].Config["message"] = ""
		_, err := svc.Save(ctx, "org-1", w)

		var validationErr domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("storage failure", func(t *testing.T) {
		svc, mockRepo, mockLogger := setupWorkflowService(t)

		mockRepo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(errors.New("boom"))
		mockLogger.EXPECT().Error(gomock.Any())

		_, err := svc.Save(ctx, "org-1", newTestWorkflow())
		assert.Error(t, err)
	})
}

func TestWorkflowService_GetListDelete(t *testing.T) {
	ctx := context.Background()
	svc, mockRepo, mockLogger := setupWorkflowService(t)

	wf := &domain.Workflow{ID: "wf-1"}
	mockRepo.EXPECT().GetByID(ctx, "org-1", "wf-1").Return(wf, nil)
	got, err := svc.Get(ctx, "org-1", "wf-1")
	require.NoError(t, err)
	assert.Same(t, wf, got)

	mockRepo.EXPECT().List(ctx, "org-1").Return([]*domain.Workflow{wf}, nil)
	list, err := svc.List(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mockRepo.EXPECT().List(ctx, "org-2").Return(nil, errors.New("boom"))
	mockLogger.EXPECT().Error(gomock.Any())
	_, err = svc.List(ctx, "org-2")
	assert.Error(t, err)

	mockRepo.EXPECT().Delete(ctx, "org-1", "wf-1").Return(&domain.ErrNotFound{Entity: "workflow", ID: "wf-1"})
	err = svc.Delete(ctx, "org-1", "wf-1")
	var notFound *domain.ErrNotFound
	assert.True(t, errors.As(err, &notFound))
}
