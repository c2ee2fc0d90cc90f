package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateForms_DueDatesFollowInterval(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))

	svc := service.NewGeneratorService(db)
	result, err := svc.GenerateForms(context.Background(), tmpl.ID, testhelpers.Date(2024, 1, 8), 7, 4)
	require.NoError(t, err)
	require.Len(t, result.FormIDs, 4)

	var forms []models.FeedbackForm
	require.NoError(t, db.Where("template_id = ?", tmpl.ID).Order("due_date ASC").Find(&forms).Error)
	require.Len(t, forms, 4)

	want := []time.Time{
		testhelpers.Date(2024, 1, 8),
		testhelpers.Date(2024, 1, 15),
		testhelpers.Date(2024, 1, 22),
		testhelpers.Date(2024, 1, 29),
	}
	for i, form := range forms {
		assert.True(t, want[i].Equal(form.DueDate.UTC()), "instance %d due %s, want %s", i, form.DueDate, want[i])
		assert.Equal(t, models.FormStatusPending, form.Status)
		assert.Equal(t, "Weekly Check-in", form.TemplateName)
		assert.Equal(t, "Acme", form.ClientName)
		assert.Equal(t, client.ID, form.ClientID)
	}
}

func TestGenerateForms_ZeroIntervalStacksOnSameDay(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "One-off", 0, testhelpers.Date(2024, 1, 1))

	result, err := service.NewGeneratorService(db).GenerateForms(context.Background(), tmpl.ID, testhelpers.Date(2024, 2, 1), 0, 2)
	require.NoError(t, err)
	require.Len(t, result.FormIDs, 2)

	var count int64
	db.Model(&models.FeedbackForm{}).Where("template_id = ? AND due_date = ?", tmpl.ID, testhelpers.Date(2024, 2, 1)).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestGenerateForms_FansOutToAssignedUsers(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	u1 := testhelpers.CreateUser(t, db, "Una", "u1@example.com")
	u2 := testhelpers.CreateUser(t, db, "Dos", "u2@example.com")
	testhelpers.Assign(t, db, u1, tmpl)
	testhelpers.Assign(t, db, u2, tmpl)

	result, err := service.NewGeneratorService(db).GenerateForms(context.Background(), tmpl.ID, testhelpers.Date(2024, 1, 8), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TrackingRecords)
	assert.Zero(t, result.FanOutFailures)

	var records []models.UserFeedbackForm
	require.NoError(t, db.Where("template_id = ?", tmpl.ID).Find(&records).Error)
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.Equal(t, models.TrackingStatusPending, rec.Status)
		assert.Equal(t, "Weekly Check-in", rec.TemplateName)
		assert.Equal(t, "Acme", rec.ClientName)

		var form models.FeedbackForm
		require.NoError(t, db.First(&form, "id = ?", rec.FeedbackFormID).Error)
		assert.True(t, form.DueDate.Equal(rec.DueDate), "tracking due date must match its instance")
	}
}

func TestGenerateForms_Errors(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	orphan := &models.Template{Name: "Orphan", ClientID: uuid.New(), RecurrenceInterval: 7, StartDate: testhelpers.Date(2024, 1, 1)}
	require.NoError(t, db.Create(orphan).Error)

	svc := service.NewGeneratorService(db)
	ctx := context.Background()
	first := testhelpers.Date(2024, 1, 8)

	tests := []struct {
		name       string
		templateID uuid.UUID
		interval   int
		quantity   int
		wantErr    error
	}{
		{"zero quantity", tmpl.ID, 7, 0, service.ErrValidation},
		{"negative interval", tmpl.ID, -1, 1, service.ErrValidation},
		{"unknown template", uuid.New(), 7, 1, service.ErrTemplateNotFound},
		{"missing client", orphan.ID, 7, 1, service.ErrClientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GenerateForms(ctx, tt.templateID, first, tt.interval, tt.quantity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.GenerateForms(ctx, uuid.New(), first, 7, 1)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var count int64
	db.Model(&models.FeedbackForm{}).Count(&count)
	assert.Zero(t, count)
}

func TestGenerateRecurringForms_BackfillsMissedOccurrences(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	user := testhelpers.CreateUser(t, db, "Una", "u1@example.com")
	testhelpers.Assign(t, db, user, tmpl)

	now := time.Date(2024, 1, 29, 9, 30, 0, 0, time.UTC)
	svc := service.NewGeneratorService(db).WithClock(testhelpers.Clock(now))

	result, err := svc.GenerateRecurringForms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)
	assert.Zero(t, result.Failed)

	var forms []models.FeedbackForm
	require.NoError(t, db.Where("template_id = ?", tmpl.ID).Order("due_date ASC").Find(&forms).Error)
	require.Len(t, forms, 4)
	for i, form := range forms {
		want := testhelpers.Date(2024, 1, 8+7*i)
		assert.True(t, want.Equal(form.DueDate.UTC()), "instance %d due %s, want %s", i, form.DueDate, want)
	}

	var tracking int64
	db.Model(&models.UserFeedbackForm{}).Where("user_id = ?", user.ID).Count(&tracking)
	assert.Equal(t, int64(4), tracking)
}

func TestGenerateRecurringForms_SecondRunCreatesNothing(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	testhelpers.CreateTemplate(t, db, client, "Monthly Review", 30, testhelpers.Date(2023, 11, 1))

	svc := service.NewGeneratorService(db).WithClock(testhelpers.Clock(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	first, err := svc.GenerateRecurringForms(ctx)
	require.NoError(t, err)
	assert.Positive(t, first.Created)

	var before int64
	db.Model(&models.FeedbackForm{}).Count(&before)

	second, err := svc.GenerateRecurringForms(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Created)

	var after int64
	db.Model(&models.FeedbackForm{}).Count(&after)
	assert.Equal(t, before, after)
}

func TestGenerateRecurringForms_ContinuesFromLatestInstance(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	testhelpers.CreateForm(t, db, tmpl, testhelpers.Date(2024, 1, 15), models.FormStatusClosed)

	svc := service.NewGeneratorService(db).WithClock(testhelpers.Clock(time.Date(2024, 1, 23, 0, 0, 0, 0, time.UTC)))
	result, err := svc.GenerateRecurringForms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	var latest models.FeedbackForm
	require.NoError(t, db.Where("template_id = ?", tmpl.ID).Order("due_date DESC").First(&latest).Error)
	assert.True(t, testhelpers.Date(2024, 1, 22).Equal(latest.DueDate.UTC()))
}

func TestGenerateRecurringForms_SkipsTemplateWithMissingClient(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	client := testhelpers.CreateClient(t, db, "Acme")
	good := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	orphan := &models.Template{Name: "Orphan", ClientID: uuid.New(), RecurrenceInterval: 7, StartDate: testhelpers.Date(2024, 1, 1)}
	require.NoError(t, db.Create(orphan).Error)

	svc := service.NewGeneratorService(db).WithClock(testhelpers.Clock(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	result, err := svc.GenerateRecurringForms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Created)

	var count int64
	db.Model(&models.FeedbackForm{}).Where("template_id = ?", orphan.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.FeedbackForm{}).Where("template_id = ?", good.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

// Acme scenario: weekly template, one consultant, three generated instances.
func TestAcmeWeeklyCheckInScenario(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	ctx := context.Background()

	client := testhelpers.CreateClient(t, db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 1, 1))
	u1 := testhelpers.CreateUser(t, db, "U1", "u1@example.com")

	_, err := service.NewAssignmentService(db).AssignUsersToTemplate(ctx, tmpl.ID, []uuid.UUID{u1.ID})
	require.NoError(t, err)

	result, err := service.NewGeneratorService(db).GenerateForms(ctx, tmpl.ID, testhelpers.Date(2024, 1, 8), tmpl.RecurrenceInterval, 3)
	require.NoError(t, err)
	require.Len(t, result.FormIDs, 3)

	var records []models.UserFeedbackForm
	require.NoError(t, db.Where("user_id = ?", u1.ID).Order("due_date ASC").Find(&records).Error)
	require.Len(t, records, 3)
	for i, want := range []time.Time{testhelpers.Date(2024, 1, 8), testhelpers.Date(2024, 1, 15), testhelpers.Date(2024, 1, 22)} {
		assert.True(t, want.Equal(records[i].DueDate.UTC()), "record %d due %s, want %s", i, records[i].DueDate, want)
		assert.Equal(t, models.TrackingStatusPending, records[i].Status)
	}
}
