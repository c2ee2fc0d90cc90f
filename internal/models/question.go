package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionType is the answer widget a question expects.
type QuestionType string

const (
	QuestionTypeFreeText       QuestionType = "free-text"
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeDropDown       QuestionType = "drop-down"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeFreeText, QuestionTypeMultipleChoice, QuestionTypeDropDown:
		return true
	}
	return false
}

// HasOptions reports whether answers must be picked from Options.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeDropDown
}

// Question is a unit of inquiry. A nil ClientID makes it global.
type Question struct {
	ID        uuid.UUID                    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
	DeletedAt gorm.DeletedAt               `gorm:"index" json:"-"`
	Text      string                       `gorm:"type:text;not null" json:"text"`
	Type      QuestionType                 `gorm:"not null" json:"type"`
	Theme     string                       `gorm:"index" json:"theme"`
	ClientID  *uuid.UUID                   `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Options   datatypes.JSONType[[]string] `json:"options"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// IsGlobal reports whether the question is usable by every client.
func (q *Question) IsGlobal() bool {
	return q.ClientID == nil
}
