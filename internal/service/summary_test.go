package service_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pageza/clientpulse/backend/internal/mocks"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedAnswers(t *testing.T, f *responseFixture) {
	ctx := context.Background()
	dos := testhelpers.CreateUser(t, f.db, "Dos", "u2@example.com")
	tres := testhelpers.CreateUser(t, f.db, "Tres", "u3@example.com")

	r1 := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusActive)
	r2 := testhelpers.CreateTracking(t, f.db, dos, f.form, models.TrackingStatusActive)
	testhelpers.CreateTracking(t, f.db, tres, f.form, models.TrackingStatusActive)

	_, err := f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(r1.ID, f.user.ID, f.answers()))
	require.NoError(t, err)
	_, err = f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(r2.ID, dos.ID, map[string]string{
		f.text.ID.String():   "Kickoff, went fine",
		f.choice.ID.String(): "High",
	}))
	require.NoError(t, err)
}

func TestSummarizeFeedbackForm_AggregatesAndStoresBlob(t *testing.T) {
	f := newResponseFixture(t)
	seedAnswers(t, f)

	summary, err := service.NewSummaryService(f.db, nil).SummarizeFeedbackForm(context.Background(), f.form.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Assigned)
	assert.Equal(t, 2, summary.Respondents)
	require.Len(t, summary.Questions, 2)

	text := summary.Questions[0]
	assert.Equal(t, f.text.ID, text.QuestionID)
	assert.Equal(t, 2, text.Responses)
	assert.ElementsMatch(t, []string{"Shipped the release", "Kickoff, went fine"}, text.TextAnswers)

	choice := summary.Questions[1]
	assert.Equal(t, map[string]int{"Low": 0, "Medium": 0, "High": 2}, choice.Counts)

	var stored models.FeedbackForm
	require.NoError(t, f.db.First(&stored, "id = ?", f.form.ID).Error)
	var decoded service.FormSummary
	require.NoError(t, json.Unmarshal(stored.Responses, &decoded))
	assert.Equal(t, 2, decoded.Respondents)
}

func TestExportFeedbackFormCSV_Inline(t *testing.T) {
	f := newResponseFixture(t)
	seedAnswers(t, f)

	export, err := service.NewSummaryService(f.db, nil).ExportFeedbackFormCSV(context.Background(), f.form.ID)
	require.NoError(t, err)
	assert.Empty(t, export.URL)
	assert.Equal(t, 2, export.Rows)

	rows, err := csv.NewReader(strings.NewReader(string(export.CSV))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"user_email", "user_name", "status", "submitted_at", "What went well?", "How satisfied is the client?"}, rows[0])
	assert.Equal(t, "u1@example.com", rows[1][0])
	assert.Equal(t, "Kickoff, went fine", rows[2][4])
}

func TestSubmitFormAnswer_UppercaseKeysReachSummaryAndExport(t *testing.T) {
	ctx := context.Background()
	f := newResponseFixture(t)
	rec := testhelpers.CreateTracking(t, f.db, f.user, f.form, models.TrackingStatusActive)

	saved, err := f.svc.SubmitFormAnswer(ctx, service.NewFormAnswer(rec.ID, f.user.ID, map[string]string{
		strings.ToUpper(f.text.ID.String()):   "Shipped",
		strings.ToUpper(f.choice.ID.String()): "High",
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		f.text.ID.String():   "Shipped",
		f.choice.ID.String(): "High",
	}, saved.Answers.Data())

	summaries := service.NewSummaryService(f.db, nil)
	summary, err := summaries.SummarizeFeedbackForm(ctx, f.form.ID)
	require.NoError(t, err)
	require.Len(t, summary.Questions, 2)
	assert.Equal(t, 1, summary.Questions[0].Responses)
	assert.Equal(t, []string{"Shipped"}, summary.Questions[0].TextAnswers)
	assert.Equal(t, 1, summary.Questions[1].Counts["High"])

	export, err := summaries.ExportFeedbackFormCSV(ctx, f.form.ID)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(export.CSV))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Shipped", rows[1][4])
	assert.Equal(t, "High", rows[1][5])
}

func TestExportFeedbackFormCSV_UploadsWhenStoreConfigured(t *testing.T) {
	f := newResponseFixture(t)
	seedAnswers(t, f)

	store := &mocks.MockObjectStore{}
	store.On("PutObject", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "exports/") && strings.HasSuffix(key, ".csv")
	}), "text/csv", mock.Anything).Return(nil).Once()
	store.On("GeneratePresignedURL", mock.Anything, mock.Anything, mock.Anything).Return("https://s3.example.com/export.csv", nil).Once()

	export, err := service.NewSummaryService(f.db, store).ExportFeedbackFormCSV(context.Background(), f.form.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/export.csv", export.URL)
	store.AssertExpectations(t)
}

func TestExportFeedbackFormCSV_StorageFailureIsDependencyError(t *testing.T) {
	f := newResponseFixture(t)
	store := &mocks.MockObjectStore{}
	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access denied"))

	_, err := service.NewSummaryService(f.db, store).ExportFeedbackFormCSV(context.Background(), f.form.ID)
	assert.ErrorIs(t, err, service.ErrDependency)
}
