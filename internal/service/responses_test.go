package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type responseFixture struct {
	db     *gorm.DB
	svc    *service.ResponseService
	user   *models.User
	form   *models.FeedbackForm
	text   *models.Question
	choice *models.Question
}

func newResponseFixture(t *testing.T) *responseFixture {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	text := testhelpers.CreateQuestion(t, db, tmpl, "What went well?", models.QuestionTypeFreeText)
	choice := testhelpers.CreateQuestion(t, db, tmpl, "How satisfied is the client?", models.QuestionTypeMultipleChoice, "Low", "Medium", "High")
	return &responseFixture{
		db:     db,
		svc:    service.NewResponseService(db),
		user:   testhelpers.CreateUser(t, db, "Una", "u1@example.com"),
		form:   testhelpers.CreateForm(t, db, tmpl, testhelpers.Date(2024, 1, 8), models.FormStatusActive),
		text:   text,
		choice: choice,
	}
}

func (f *responseFixture) answers() map[string]string {
	return map[string]string{
		f.text.ID.String():   "Shipped the release",
		f.choice.ID.String(): "High",
	}
}

func (f *responseFixture) countAnswers(t *testing.T, trackingID uuid.UUID) int64 {
	var n int64
	require.NoError(t, f.db.Model(&models.FormAnswer{}).Where("user_feedback_form_id = ?", trackingID).Count(&n).Error)
	return n
}

func TestSubmitFormAnswer_MarksRecordSubmitted(t *testing.T) {
	for _, status := range []models.TrackingStatus{models.TrackingStatusActive, models.TrackingStatusOverdue, models.TrackingStatusPending} {
		t.Run(string(status), func(t *testing.T) {
			f := newResponseFixture(t)
			rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, status)

			saved, err := f.svc.SubmitFormAnswer(context.Background(), service.NewFormAnswer(rec.ID, f.user.ID, f.answers()))
			require.NoError(t, err)
			assert.Equal(t, rec.ID, saved.UserFeedbackFormID)
			assert.Equal(t, "High", saved.Answers.Data()[f.choice.ID.String()])

			assert.Equal(t, models.TrackingStatusSubmitted, testhelpers.ReloadTracking(t, f.db, rec.ID).Status)
			assert.Equal(t, int64(1), f.countAnswers(t, rec.ID))
		})
	}
}

func TestSubmitFormAnswer_ClosedRecordRejected(t *testing.T) {
	f := newResponseFixture(t)
	rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusClosed)

	_, err := f.svc.SubmitFormAnswer(context.Background(), service.NewFormAnswer(rec.ID, f.user.ID, f.answers()))
	assert.ErrorIs(t, err, service.ErrFormClosed)
	assert.Zero(t, f.countAnswers(t, rec.ID))
	assert.Equal(t, models.TrackingStatusClosed, testhelpers.ReloadTracking(t, f.db, rec.ID).Status)
}

func TestSubmitFormAnswer_ResubmissionReplacesAnswer(t *testing.T) {
	f := newResponseFixture(t)
	ctx := context.Background()
	rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusActive)

	first, err := f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(rec.ID, f.user.ID, f.answers()))
	require.NoError(t, err)

	changed := f.answers()
	changed[f.choice.ID.String()] = "Low"
	second, err := f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(rec.ID, f.user.ID, changed))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), f.countAnswers(t, rec.ID))

	stored, err := f.svc.GetSubmission(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Low", stored.Answers.Data()[f.choice.ID.String()])
}

func TestSubmitFormAnswer_Validation(t *testing.T) {
	f := newResponseFixture(t)
	ctx := context.Background()
	rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusActive)
	other := testhelpers.CreateUser(t, f.db, "Dos", "u2@example.com")

	tests := []struct {
		name    string
		answer  *models.FormAnswer
		wantErr error
	}{
		{"unknown record", service.NewFormAnswer(uuid.New(), f.user.ID, f.answers()), service.ErrTrackingRecordNotFound},
		{"empty answers", service.NewFormAnswer(rec.ID, f.user.ID, map[string]string{}), service.ErrValidation},
		{"unknown question", service.NewFormAnswer(rec.ID, f.user.ID, map[string]string{uuid.NewString(): "x"}), service.ErrValidation},
		{"invalid option", service.NewFormAnswer(rec.ID, f.user.ID, map[string]string{f.choice.ID.String(): "Ecstatic"}), service.ErrValidation},
		{"same question twice", service.NewFormAnswer(rec.ID, f.user.ID, map[string]string{
			f.text.ID.String():                  "a",
			strings.ToUpper(f.text.ID.String()): "b",
		}), service.ErrValidation},
		{"foreign user", service.NewFormAnswer(rec.ID, other.ID, f.answers()), service.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitFormAnswer(ctx, tt.answer)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Zero(t, f.countAnswers(t, rec.ID))
	assert.Equal(t, models.TrackingStatusActive, testhelpers.ReloadTracking(t, f.db, rec.ID).Status)
}

func TestDeleteSubmission_ResetsToPending(t *testing.T) {
	f := newResponseFixture(t)
	ctx := context.Background()
	rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusActive)
	_, err := f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(rec.ID, f.user.ID, f.answers()))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSubmission(ctx, rec.ID))

	assert.Equal(t, models.TrackingStatusPending, testhelpers.ReloadTracking(t, f.db, rec.ID).Status)
	assert.Zero(t, f.countAnswers(t, rec.ID))

	_, err = f.svc.GetSubmission(ctx, rec.ID)
	assert.ErrorIs(t, err, service.ErrSubmissionNotFound)
}

func TestDeleteSubmission_NothingChangesOnFailure(t *testing.T) {
	f := newResponseFixture(t)
	ctx := context.Background()

	closed := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusClosed)
	assert.ErrorIs(t, f.svc.DeleteSubmission(ctx, closed.ID), service.ErrFormClosed)
	assert.Equal(t, models.TrackingStatusClosed, testhelpers.ReloadTracking(t, f.db, closed.ID).Status)

	other := testhelpers.CreateUser(t, f.db, "Dos", "u2@example.com")
	active := testhelpers.CreateTracking(t, f.db, other, f.form, models.TrackingStatusActive)
	assert.ErrorIs(t, f.svc.DeleteSubmission(ctx, active.ID), service.ErrNotFound)
	assert.Equal(t, models.TrackingStatusActive, testhelpers.ReloadTracking(t, f.db, active.ID).Status)

	assert.ErrorIs(t, f.svc.DeleteSubmission(ctx, uuid.New()), service.ErrTrackingRecordNotFound)
}

func TestCompleteTrackingRecord(t *testing.T) {
	f := newResponseFixture(t)
	ctx := context.Background()
	rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusSubmitted)

	closed, err := f.svc.CompleteTrackingRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrackingStatusClosed, closed.Status)

	_, err = f.svc.CompleteTrackingRecord(ctx, rec.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyClosed)

	_, err = f.svc.CompleteTrackingRecord(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(rec.ID, f.user.ID, f.answers()))
	assert.ErrorIs(t, err, service.ErrFormClosed)
	assert.ErrorIs(t, f.svc.DeleteSubmission(ctx, rec.ID), service.ErrFormClosed)
}

func TestListTrackingRecords_Filters(t *testing.T) {
	f := newResponseFixture(t)
	other := testhelpers.CreateUser(t, f.db, "Dos", "u2@example.com")
	testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusActive)
	testhelpers.CreateTracking(t, f.db, other, f.form, models.TrackingStatusPending)

	mine, err := f.svc.ListTrackingRecords(context.Background(), &models.TrackingFilters{UserID: f.user.ID.String()})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.user.ID, mine[0].UserID)

	pending, err := f.svc.ListTrackingRecords(context.Background(), &models.TrackingFilters{Status: string(models.TrackingStatusPending)})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, other.ID, pending[0].UserID)

	all, err := f.svc.ListTrackingRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
