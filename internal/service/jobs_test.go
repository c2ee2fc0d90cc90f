package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	calls *[]string
	err   error
}

func (g stubGenerator) GenerateForms(context.Context, uuid.UUID, time.Time, int, int) (*service.GenerateResult, error) {
	return nil, errors.New("not used")
}

func (g stubGenerator) GenerateRecurringForms(context.Context) (*service.JobResult, error) {
	*g.calls = append(*g.calls, "generate")
	return &service.JobResult{Job: "generate_recurring_forms"}, g.err
}

type stubLifecycle struct {
	calls *[]string
}

func (l stubLifecycle) RunDailyTasks(context.Context) (*service.JobResult, error) {
	*l.calls = append(*l.calls, "daily")
	return &service.JobResult{Job: "daily_tasks"}, nil
}

func (l stubLifecycle) UpdateOverdueFeedbackAssignments(context.Context) (*service.JobResult, error) {
	*l.calls = append(*l.calls, "reconcile")
	return &service.JobResult{Job: "overdue_assignments"}, nil
}

func (l stubLifecycle) UpdateFeedbackFormStatus(context.Context, uuid.UUID, models.FormStatus) (*models.FeedbackForm, error) {
	return nil, errors.New("not used")
}

func (l stubLifecycle) ListOverdueAssignments(context.Context) ([]*models.OverdueFeedbackAssignment, error) {
	return nil, nil
}

func TestJobRunner_WeeklyGeneratesThenReconciles(t *testing.T) {
	var calls []string
	runner := service.NewJobRunner(stubGenerator{calls: &calls}, stubLifecycle{calls: &calls}, service.NewJobLocker(nil))

	results, err := runner.Run(context.Background(), service.JobWeekly)
	require.NoError(t, err)
	assert.Equal(t, []string{"generate", "reconcile"}, calls)
	require.Len(t, results, 2)
	assert.Equal(t, "generate_recurring_forms", results[0].Job)
}

func TestJobRunner_WeeklyStopsWhenGenerationFails(t *testing.T) {
	var calls []string
	runner := service.NewJobRunner(stubGenerator{calls: &calls, err: errors.New("db gone")}, stubLifecycle{calls: &calls}, nil)

	results, err := runner.Run(context.Background(), service.JobWeekly)
	assert.Error(t, err)
	assert.Equal(t, []string{"generate"}, calls)
	assert.Len(t, results, 1)
}

func TestJobRunner_DailyAndUnknown(t *testing.T) {
	var calls []string
	runner := service.NewJobRunner(stubGenerator{calls: &calls}, stubLifecycle{calls: &calls}, nil)

	_, err := runner.Run(context.Background(), service.JobDaily)
	require.NoError(t, err)
	assert.Equal(t, []string{"daily"}, calls)

	_, err = runner.Run(context.Background(), "hourly")
	assert.ErrorIs(t, err, service.ErrValidation)
}
