package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Template is the seed from which recurring FeedbackForm instances are generated.
type Template struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`
	Name               string             `gorm:"not null" json:"name"`
	ClientID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"client_id"`
	RecurrenceInterval int                `gorm:"not null;default:0" json:"recurrence_interval"` // days
	StartDate          time.Time          `gorm:"type:date;not null" json:"start_date"`
	Questions          []TemplateQuestion `gorm:"foreignKey:TemplateID" json:"questions,omitempty"`
}

func (Template) TableName() string {
	return "templates"
}

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	t.StartDate = DateOnly(t.StartDate)
	return nil
}

// TemplateQuestion links a question into a template at a given position.
// The composite key (template_id, question_id) keeps each question unique per template.
type TemplateQuestion struct {
	TemplateID uuid.UUID `gorm:"type:uuid;primaryKey" json:"template_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"question_id"`
	Order      int       `gorm:"column:position;not null" json:"order"`
	Question   *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (TemplateQuestion) TableName() string {
	return "template_questions"
}
