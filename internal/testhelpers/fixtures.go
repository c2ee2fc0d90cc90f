package testhelpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Clock returns a fixed time source.
func Clock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func CreateUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, Role: models.RoleConsultant}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func CreateClient(t *testing.T, db *gorm.DB, name string) *models.Client {
	t.Helper()
	client := &models.Client{Name: name}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func CreateTemplate(t *testing.T, db *gorm.DB, client *models.Client, name string, intervalDays int, start time.Time) *models.Template {
	t.Helper()
	tmpl := &models.Template{
		Name:               name,
		ClientID:           client.ID,
		RecurrenceInterval: intervalDays,
		StartDate:          start,
	}
	if err := db.Create(tmpl).Error; err != nil {
		t.Fatalf("failed to create template: %v", err)
	}
	return tmpl
}

// CreateQuestion creates a question and appends it to tmpl when tmpl is not nil.
func CreateQuestion(t *testing.T, db *gorm.DB, tmpl *models.Template, text string, qType models.QuestionType, options ...string) *models.Question {
	t.Helper()
	q := &models.Question{Text: text, Type: qType, Options: datatypes.NewJSONType(options)}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("failed to create question: %v", err)
	}
	if tmpl != nil {
		var count int64
		db.Model(&models.TemplateQuestion{}).Where("template_id = ?", tmpl.ID).Count(&count)
		link := &models.TemplateQuestion{TemplateID: tmpl.ID, QuestionID: q.ID, Order: int(count) + 1}
		if err := db.Create(link).Error; err != nil {
			t.Fatalf("failed to link question: %v", err)
		}
	}
	return q
}

func Assign(t *testing.T, db *gorm.DB, user *models.User, tmpl *models.Template) {
	t.Helper()
	a := &models.UserTemplateAssignment{UserID: user.ID, TemplateID: tmpl.ID, UserEmail: user.Email}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("failed to create assignment: %v", err)
	}
}

// CreateForm inserts a form instance directly, bypassing generation.
func CreateForm(t *testing.T, db *gorm.DB, tmpl *models.Template, due time.Time, status models.FormStatus) *models.FeedbackForm {
	t.Helper()
	form := &models.FeedbackForm{
		TemplateID:   tmpl.ID,
		TemplateName: tmpl.Name,
		ClientID:     tmpl.ClientID,
		DueDate:      due,
		Status:       status,
	}
	if err := db.Create(form).Error; err != nil {
		t.Fatalf("failed to create feedback form: %v", err)
	}
	return form
}

// CreateTracking inserts a tracking record for user on form with the given status.
func CreateTracking(t *testing.T, db *gorm.DB, user *models.User, form *models.FeedbackForm, status models.TrackingStatus) *models.UserFeedbackForm {
	t.Helper()
	rec := models.NewTrackingRecord(user.ID, form)
	rec.Status = status
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create tracking record: %v", err)
	}
	return rec
}

// ReloadTracking reads a tracking record back from the database.
func ReloadTracking(t *testing.T, db *gorm.DB, id uuid.UUID) *models.UserFeedbackForm {
	t.Helper()
	var rec models.UserFeedbackForm
	if err := db.First(&rec, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload tracking record: %v", err)
	}
	return &rec
}
