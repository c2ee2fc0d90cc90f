package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResponseService records consultant answers and the status changes they imply
type ResponseService struct {
	db *gorm.DB
}

func NewResponseService(db *gorm.DB) *ResponseService {
	return &ResponseService{db: db}
}

// SubmitFormAnswer stores the answer set of a tracking record and marks it
// submitted. Re-submitting replaces the previous answers. The answer write and
// the status change commit together.
func (s *ResponseService) SubmitFormAnswer(ctx context.Context, answer *models.FormAnswer) (*models.FormAnswer, error) {
	if answer == nil || answer.UserFeedbackFormID == uuid.Nil {
		return nil, validationErrorf("tracking record id is required")
	}

	var saved models.FormAnswer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findTrackingRecord(tx, answer.UserFeedbackFormID)
		if err != nil {
			return err
		}
		if answer.UserID != uuid.Nil && answer.UserID != rec.UserID {
			return validationErrorf("tracking record %s belongs to another user", rec.ID)
		}
		next, err := rec.Status.Transition(models.EventSubmit)
		if err != nil {
			if errors.Is(err, models.ErrTerminalStatus) {
				return ErrFormClosed
			}
			return validationErrorf("%v", err)
		}

		questions, err := templateQuestions(tx, rec.TemplateID)
		if err != nil {
			return err
		}
		canonical, err := validateAnswers(answer.Answers.Data(), questions)
		if err != nil {
			return err
		}
		answer.Answers = datatypes.NewJSONType(canonical)

		err = tx.Where("user_feedback_form_id = ?", rec.ID).Take(&saved).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = models.FormAnswer{
				UserFeedbackFormID: rec.ID,
				UserID:             rec.UserID,
				Answers:            answer.Answers,
				SubmittedAt:        answer.SubmittedAt,
			}
			if err := tx.Create(&saved).Error; err != nil {
				return fmt.Errorf("failed to save answer: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load previous answer: %w", err)
		default:
			saved.Answers = answer.Answers
			saved.SubmittedAt = answer.SubmittedAt
			if saved.SubmittedAt.IsZero() {
				saved.SubmittedAt = utcNow()
			}
			if err := tx.Save(&saved).Error; err != nil {
				return fmt.Errorf("failed to replace answer: %w", err)
			}
		}

		return setTrackingStatus(tx, rec, next)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteSubmission removes the answer of a submitted tracking record and
// returns the record to pending.
func (s *ResponseService) DeleteSubmission(ctx context.Context, trackingID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findTrackingRecord(tx, trackingID)
		if err != nil {
			return err
		}
		if rec.Status.IsTerminal() {
			return ErrFormClosed
		}
		next, err := rec.Status.Transition(models.EventReopen)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubmissionNotFound, err)
		}

		res := tx.Where("user_feedback_form_id = ?", rec.ID).Delete(&models.FormAnswer{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete answer: %w", res.Error)
		}
		return setTrackingStatus(tx, rec, next)
	})
}

// CompleteTrackingRecord closes a tracking record. Closed is terminal.
func (s *ResponseService) CompleteTrackingRecord(ctx context.Context, trackingID uuid.UUID) (*models.UserFeedbackForm, error) {
	var rec *models.UserFeedbackForm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = findTrackingRecord(tx, trackingID)
		if err != nil {
			return err
		}
		next, err := rec.Status.Transition(models.EventClose)
		if err != nil {
			if errors.Is(err, models.ErrTerminalStatus) {
				return ErrAlreadyClosed
			}
			return validationErrorf("%v", err)
		}
		return setTrackingStatus(tx, rec, next)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ResponseService) GetSubmission(ctx context.Context, trackingID uuid.UUID) (*models.FormAnswer, error) {
	var answer models.FormAnswer
	err := s.db.WithContext(ctx).Where("user_feedback_form_id = ?", trackingID).Take(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &answer, nil
}

func (s *ResponseService) GetTrackingRecord(ctx context.Context, id uuid.UUID) (*models.UserFeedbackForm, error) {
	return findTrackingRecord(s.db.WithContext(ctx), id)
}

func (s *ResponseService) ListTrackingRecords(ctx context.Context, filters *models.TrackingFilters) ([]*models.UserFeedbackForm, error) {
	query := s.db.WithContext(ctx).Model(&models.UserFeedbackForm{})
	if filters != nil {
		if filters.UserID != "" {
			query = query.Where("user_id = ?", filters.UserID)
		}
		if filters.TemplateID != "" {
			query = query.Where("template_id = ?", filters.TemplateID)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
		if filters.Limit > 0 {
			query = query.Limit(filters.Limit)
		}
		if filters.Offset > 0 {
			query = query.Offset(filters.Offset)
		}
	}

	var records []*models.UserFeedbackForm
	if err := query.Order("due_date ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracking records: %w", err)
	}
	return records, nil
}

func (s *ResponseService) GetFeedbackForm(ctx context.Context, id uuid.UUID) (*models.FeedbackForm, error) {
	var form models.FeedbackForm
	if err := s.db.WithContext(ctx).First(&form, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackFormNotFound
		}
		return nil, fmt.Errorf("failed to get feedback form: %w", err)
	}
	return &form, nil
}

func (s *ResponseService) ListFeedbackForms(ctx context.Context, filters *models.FeedbackFormFilters) ([]*models.FeedbackForm, error) {
	query := s.db.WithContext(ctx).Model(&models.FeedbackForm{})
	if filters != nil {
		if filters.TemplateID != "" {
			query = query.Where("template_id = ?", filters.TemplateID)
		}
		if filters.ClientID != "" {
			query = query.Where("client_id = ?", filters.ClientID)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
		if filters.Limit > 0 {
			query = query.Limit(filters.Limit)
		}
		if filters.Offset > 0 {
			query = query.Offset(filters.Offset)
		}
	}

	var forms []*models.FeedbackForm
	if err := query.Order("due_date ASC").Find(&forms).Error; err != nil {
		return nil, fmt.Errorf("failed to list feedback forms: %w", err)
	}
	return forms, nil
}

func findTrackingRecord(tx *gorm.DB, id uuid.UUID) (*models.UserFeedbackForm, error) {
	var rec models.UserFeedbackForm
	if err := tx.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackingRecordNotFound
		}
		return nil, fmt.Errorf("failed to get tracking record: %w", err)
	}
	return &rec, nil
}

// setTrackingStatus moves rec to next only if nobody changed it since it was read.
func setTrackingStatus(tx *gorm.DB, rec *models.UserFeedbackForm, next models.TrackingStatus) error {
	now := utcNow()
	res := tx.Model(&models.UserFeedbackForm{}).
		Where("id = ? AND status = ?", rec.ID, rec.Status).
		Updates(map[string]interface{}{"status": next, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to update tracking record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	rec.Status = next
	rec.UpdatedAt = now
	return nil
}

// validateAnswers checks every key against the template's questions and
// choice answers against the question's options. It returns the answers keyed
// by canonical question id. A template without questions accepts any keys.
func validateAnswers(answers map[string]string, questions []models.Question) (map[string]string, error) {
	if len(answers) == 0 {
		return nil, validationErrorf("answers are required")
	}
	if len(questions) == 0 {
		return answers, nil
	}

	byID := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	canonical := make(map[string]string, len(answers))
	for key, value := range answers {
		id, err := uuid.Parse(strings.TrimSpace(key))
		if err != nil {
			return nil, validationErrorf("answer for unknown question %s", key)
		}
		q, ok := byID[id]
		if !ok {
			return nil, validationErrorf("answer for unknown question %s", key)
		}
		if _, dup := canonical[q.ID.String()]; dup {
			return nil, validationErrorf("duplicate answer for question %s", q.ID)
		}
		if q.Type.HasOptions() && value != "" && !containsOption(q.Options.Data(), value) {
			return nil, validationErrorf("%q is not an option of question %s", value, key)
		}
		canonical[q.ID.String()] = value
	}
	return canonical, nil
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// NewFormAnswer builds an unsaved answer for a tracking record.
func NewFormAnswer(trackingID, userID uuid.UUID, answers map[string]string) *models.FormAnswer {
	return &models.FormAnswer{
		UserFeedbackFormID: trackingID,
		UserID:             userID,
		Answers:            datatypes.NewJSONType(answers),
		SubmittedAt:        utcNow(),
	}
}
