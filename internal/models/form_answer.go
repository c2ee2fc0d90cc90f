package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormAnswer is the submitted answer set of one tracking record,
// keyed by question id.
type FormAnswer struct {
	ID                 uuid.UUID                             `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt          time.Time                             `json:"created_at"`
	UpdatedAt          time.Time                             `json:"updated_at"`
	UserFeedbackFormID uuid.UUID                             `gorm:"type:uuid;not null;uniqueIndex" json:"user_feedback_form_id"`
	UserID             uuid.UUID                             `gorm:"type:uuid;not null;index" json:"user_id"`
	Answers            datatypes.JSONType[map[string]string] `json:"answers"`
	SubmittedAt        time.Time                             `gorm:"not null" json:"submitted_at"`
}

func (FormAnswer) TableName() string {
	return "form_answers"
}

func (a *FormAnswer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}
	return nil
}

// All returns every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Client{},
		&Question{},
		&Template{},
		&TemplateQuestion{},
		&FeedbackForm{},
		&UserTemplateAssignment{},
		&UserFeedbackForm{},
		&FormAnswer{},
		&OverdueFeedbackAssignment{},
	}
}
