package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFeedbackForm is one user's tracking record for a FeedbackForm instance.
// There is at most one per (user, feedback form).
type UserFeedbackForm struct {
	ID             uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_feedback_form,priority:1;index:idx_user_template,priority:1" json:"user_id"`
	FeedbackFormID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_feedback_form,priority:2" json:"feedback_form_id"`
	TemplateID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_template,priority:2" json:"template_id"`
	TemplateName   string         `json:"template_name"`
	ClientName     string         `json:"client_name"`
	DueDate        time.Time      `gorm:"type:date;not null;index" json:"due_date"`
	Status         TrackingStatus `gorm:"not null;default:'pending';index" json:"status"`
}

func (UserFeedbackForm) TableName() string {
	return "user_feedback_forms"
}

func (u *UserFeedbackForm) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	u.DueDate = DateOnly(u.DueDate)
	if u.Status == "" {
		u.Status = TrackingStatusPending
	}
	return nil
}

// NewTrackingRecord builds the pending tracking record of user for form.
func NewTrackingRecord(userID uuid.UUID, form *FeedbackForm) *UserFeedbackForm {
	return &UserFeedbackForm{
		UserID:         userID,
		FeedbackFormID: form.ID,
		TemplateID:     form.TemplateID,
		TemplateName:   form.TemplateName,
		ClientName:     form.ClientName,
		DueDate:        form.DueDate,
		Status:         TrackingStatusPending,
	}
}

// TrackingFilters narrows tracking record listings.
type TrackingFilters struct {
	UserID     string `json:"user_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
