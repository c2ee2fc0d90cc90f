package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeedbackForm is one dated occurrence of a Template.
// TemplateName and ClientName are stamped at creation and never resynchronized.
type FeedbackForm struct {
	ID           uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	TemplateID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_feedback_forms_template_due,priority:1" json:"template_id"`
	TemplateName string         `json:"template_name"`
	ClientID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	ClientName   string         `json:"client_name"`
	DueDate      time.Time      `gorm:"type:date;not null;index:idx_feedback_forms_template_due,priority:2" json:"due_date"`
	Status       FormStatus     `gorm:"not null;default:'pending';index" json:"status"`
	Responses    datatypes.JSON `json:"responses,omitempty"`
}

func (FeedbackForm) TableName() string {
	return "feedback_forms"
}

func (f *FeedbackForm) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	f.DueDate = DateOnly(f.DueDate)
	if f.Status == "" {
		f.Status = FormStatusPending
	}
	return nil
}

// FeedbackFormFilters narrows FeedbackForm listings.
type FeedbackFormFilters struct {
	TemplateID string `json:"template_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
