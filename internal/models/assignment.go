package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserTemplateAssignment is a standing link between a user and a template.
type UserTemplateAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_template_assignment,priority:1" json:"user_id"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_template_assignment,priority:2;index" json:"template_id"`
	UserEmail  string    `json:"user_email"`
}

func (UserTemplateAssignment) TableName() string {
	return "user_template_assignments"
}

func (a *UserTemplateAssignment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// OverdueFeedbackAssignment marks a (user, template) pair that has no closed
// instance past its due date. Rows are derived by reconciliation only.
type OverdueFeedbackAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_overdue_user_template,priority:1" json:"user_id"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_overdue_user_template,priority:2" json:"template_id"`
}

func (OverdueFeedbackAssignment) TableName() string {
	return "overdue_feedback_assignments"
}

func (o *OverdueFeedbackAssignment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
