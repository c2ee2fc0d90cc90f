package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignResult reports the outcome of AssignUsersToTemplate.
type AssignResult struct {
	Assigned        []uuid.UUID `json:"assigned"`
	AlreadyAssigned []uuid.UUID `json:"already_assigned"`
	TrackingRecords int         `json:"tracking_records"`
}

// AssignmentService links consultants to templates
type AssignmentService struct {
	db *gorm.DB
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db}
}

// AssignUsersToTemplate assigns every listed user in one transaction. Users
// that are already assigned are skipped; new assignees get a pending tracking
// record for every existing instance of the template.
func (s *AssignmentService) AssignUsersToTemplate(ctx context.Context, templateID uuid.UUID, userIDs []uuid.UUID) (*AssignResult, error) {
	if len(userIDs) == 0 {
		return nil, validationErrorf("at least one user is required")
	}

	result := &AssignResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tmpl models.Template
		if err := tx.First(&tmpl, "id = ?", templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("failed to get template: %w", err)
		}

		var forms []models.FeedbackForm
		if err := tx.Where("template_id = ?", templateID).Order("due_date ASC").Find(&forms).Error; err != nil {
			return fmt.Errorf("failed to list template instances: %w", err)
		}

		seen := make(map[uuid.UUID]bool, len(userIDs))
		for _, userID := range userIDs {
			if seen[userID] {
				continue
			}
			seen[userID] = true

			var user models.User
			if err := tx.First(&user, "id = ?", userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
				}
				return fmt.Errorf("failed to get user: %w", err)
			}

			var existing int64
			if err := tx.Model(&models.UserTemplateAssignment{}).
				Where("user_id = ? AND template_id = ?", userID, templateID).
				Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to check assignment: %w", err)
			}
			if existing > 0 {
				result.AlreadyAssigned = append(result.AlreadyAssigned, userID)
				continue
			}

			assignment := &models.UserTemplateAssignment{
				UserID:     userID,
				TemplateID: templateID,
				UserEmail:  user.Email,
			}
			if err := tx.Create(assignment).Error; err != nil {
				return fmt.Errorf("failed to create assignment: %w", err)
			}

			for i := range forms {
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(models.NewTrackingRecord(userID, &forms[i]))
				if res.Error != nil {
					return fmt.Errorf("failed to create tracking record: %w", res.Error)
				}
				result.TrackingRecords += int(res.RowsAffected)
			}
			result.Assigned = append(result.Assigned, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[assignment] template %s: assigned %d users, %d already assigned, %d tracking records",
		templateID, len(result.Assigned), len(result.AlreadyAssigned), result.TrackingRecords)
	return result, nil
}

// RemoveUserFromTemplateAssignment deletes the assignment and the user's
// pending tracking records for the template. Records in any other status are
// history and are kept. It returns the number of tracking records removed.
func (s *AssignmentService) RemoveUserFromTemplateAssignment(ctx context.Context, userID, templateID uuid.UUID) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND template_id = ?", userID, templateID).Delete(&models.UserTemplateAssignment{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete assignment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAssignmentNotFound
		}

		res = tx.Where("user_id = ? AND template_id = ? AND status = ?", userID, templateID, models.TrackingStatusPending).
			Delete(&models.UserFeedbackForm{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete pending tracking records: %w", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *AssignmentService) ListAssignments(ctx context.Context, templateID uuid.UUID) ([]*models.UserTemplateAssignment, error) {
	var assignments []*models.UserTemplateAssignment
	err := s.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}
