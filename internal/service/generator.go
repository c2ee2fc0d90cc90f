package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenerateResult lists the feedback form instances created by GenerateForms.
type GenerateResult struct {
	FormIDs         []uuid.UUID `json:"form_ids"`
	TrackingRecords int         `json:"tracking_records"`
	FanOutFailures  int         `json:"fan_out_failures"`
}

// GeneratorService materializes feedback form instances from templates
type GeneratorService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGeneratorService(db *gorm.DB) *GeneratorService {
	return &GeneratorService{db: db, now: utcNow}
}

// WithClock replaces the time source used for catch-up generation.
func (s *GeneratorService) WithClock(now func() time.Time) *GeneratorService {
	s.now = now
	return s
}

// GenerateForms creates quantity instances of the template, the i-th due at
// firstDueDate + i*intervalDays, each fanned out to the currently assigned users.
// Instances created before a failing one are kept.
func (s *GeneratorService) GenerateForms(ctx context.Context, templateID uuid.UUID, firstDueDate time.Time, intervalDays, quantity int) (*GenerateResult, error) {
	if quantity < 1 {
		return nil, validationErrorf("quantity must be at least 1")
	}
	if intervalDays < 0 {
		return nil, validationErrorf("recurrence interval must not be negative")
	}
	if firstDueDate.IsZero() {
		return nil, validationErrorf("first due date is required")
	}

	db := s.db.WithContext(ctx)
	tmpl, client, err := loadTemplateAndClient(db, templateID)
	if err != nil {
		return nil, err
	}
	assignees, err := assignedUserIDs(db, templateID)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{FormIDs: make([]uuid.UUID, 0, quantity)}
	due := models.DateOnly(firstDueDate)
	for i := 0; i < quantity; i++ {
		form, created, failed, err := createInstance(db, tmpl, client, models.AddDays(due, i*intervalDays), assignees)
		if err != nil {
			return result, err
		}
		result.FormIDs = append(result.FormIDs, form.ID)
		result.TrackingRecords += created
		result.FanOutFailures += failed
	}

	log.Printf("[generator] created %d forms for template %s (%d tracking records, %d failures)",
		len(result.FormIDs), tmpl.ID, result.TrackingRecords, result.FanOutFailures)
	return result, nil
}

// GenerateRecurringForms catches every recurring template up to now: from the
// latest existing due date (or the start date) it creates an instance every
// interval days while the next due date is not in the future.
func (s *GeneratorService) GenerateRecurringForms(ctx context.Context) (*JobResult, error) {
	now := s.now()
	result := newJobResult("generate_recurring_forms", now)
	db := s.db.WithContext(ctx)

	var templates []models.Template
	if err := db.Order("created_at ASC").Find(&templates).Error; err != nil {
		return result.finish(s.now()), fmt.Errorf("failed to list templates: %w", err)
	}

	for i := range templates {
		tmpl := &templates[i]
		result.Processed++
		if tmpl.RecurrenceInterval <= 0 {
			continue
		}

		var client models.Client
		if err := db.First(&client, "id = ?", tmpl.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.skip("template %s: client %s not found, skipping", tmpl.ID, tmpl.ClientID)
			} else {
				result.fail("template %s: failed to load client: %v", tmpl.ID, err)
			}
			continue
		}

		base, err := latestDueDate(db, tmpl)
		if err != nil {
			result.fail("template %s: %v", tmpl.ID, err)
			continue
		}

		assignees, err := assignedUserIDs(db, tmpl.ID)
		if err != nil {
			result.fail("template %s: %v", tmpl.ID, err)
			continue
		}

		for next := models.AddDays(base, tmpl.RecurrenceInterval); !next.After(now); next = models.AddDays(next, tmpl.RecurrenceInterval) {
			_, created, failed, err := createInstance(db, tmpl, &client, next, assignees)
			if err != nil {
				result.fail("template %s: %v", tmpl.ID, err)
				break
			}
			result.add(&result.Created, 1)
			for j := 0; j < failed; j++ {
				result.fail("template %s: tracking record fan-out failed for instance due %s", tmpl.ID, next.Format("2006-01-02"))
			}
			log.Printf("[generate_recurring_forms] template %s: instance due %s with %d tracking records",
				tmpl.ID, next.Format("2006-01-02"), created)
		}
	}

	return result.finish(s.now()), nil
}

// latestDueDate returns the due date of the newest instance of tmpl, or its
// start date when none exists.
func latestDueDate(db *gorm.DB, tmpl *models.Template) (time.Time, error) {
	var last models.FeedbackForm
	err := db.Select("due_date").
		Where("template_id = ?", tmpl.ID).
		Order("due_date DESC").
		Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DateOnly(tmpl.StartDate), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to find latest instance: %w", err)
	}
	return models.DateOnly(last.DueDate), nil
}

func loadTemplateAndClient(db *gorm.DB, templateID uuid.UUID) (*models.Template, *models.Client, error) {
	var tmpl models.Template
	if err := db.First(&tmpl, "id = ?", templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTemplateNotFound
		}
		return nil, nil, fmt.Errorf("failed to get template: %w", err)
	}
	var client models.Client
	if err := db.First(&client, "id = ?", tmpl.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrClientNotFound
		}
		return nil, nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &tmpl, &client, nil
}

func assignedUserIDs(db *gorm.DB, templateID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Model(&models.UserTemplateAssignment{}).
		Where("template_id = ?", templateID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return ids, nil
}

// createInstance inserts one pending form and a pending tracking record per
// assignee. A failed instance insert is returned; failed tracking inserts are
// logged and counted.
func createInstance(db *gorm.DB, tmpl *models.Template, client *models.Client, due time.Time, assignees []uuid.UUID) (*models.FeedbackForm, int, int, error) {
	form := &models.FeedbackForm{
		TemplateID:   tmpl.ID,
		TemplateName: tmpl.Name,
		ClientID:     client.ID,
		ClientName:   client.Name,
		DueDate:      due,
		Status:       models.FormStatusPending,
	}
	if err := db.Create(form).Error; err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create feedback form due %s: %w", due.Format("2006-01-02"), err)
	}

	created, failed := 0, 0
	for _, userID := range assignees {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(models.NewTrackingRecord(userID, form))
		if res.Error != nil {
			log.Printf("[generator] failed to create tracking record for user %s form %s: %v", userID, form.ID, res.Error)
			failed++
			continue
		}
		created += int(res.RowsAffected)
	}
	return form, created, failed, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
