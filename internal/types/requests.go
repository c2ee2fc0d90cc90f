package types

import (
	"github.com/google/uuid"
)

// CreateUserRequest represents the request body for adding a consultant
type CreateUserRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Role    string `json:"role" binding:"omitempty,oneof=admin consultant"`
	ChatKey string `json:"chat_key"`
}

// ClientRequest is used for both creating and updating a client
type ClientRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

// QuestionRequest is used for both creating and updating a question.
// A nil ClientID makes the question global.
type QuestionRequest struct {
	Text     string     `json:"text" binding:"required"`
	Type     string     `json:"type" binding:"required,oneof=free-text multiple-choice drop-down"`
	Theme    string     `json:"theme"`
	ClientID *uuid.UUID `json:"client_id"`
	Options  []string   `json:"options"`
}

// TemplateRequest is used for both creating and updating a template
type TemplateRequest struct {
	Name               string    `json:"name" binding:"required,max=200"`
	ClientID           uuid.UUID `json:"client_id" binding:"required"`
	RecurrenceInterval int       `json:"recurrence_interval" binding:"min=0"`
	StartDate          Date      `json:"start_date"`
}

// TemplateQuestionInput places one question at a position in a template
type TemplateQuestionInput struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Order      int       `json:"order"`
}

// SetTemplateQuestionsRequest replaces a template's question list
type SetTemplateQuestionsRequest struct {
	Questions []TemplateQuestionInput `json:"questions" binding:"dive"`
}

// GenerateFormsRequest asks for a batch of form instances.
// A nil RecurrenceInterval falls back to the template's interval.
type GenerateFormsRequest struct {
	FirstDueDate       Date `json:"first_due_date"`
	RecurrenceInterval *int `json:"recurrence_interval"`
	Quantity           int  `json:"quantity" binding:"required,min=1,max=520"`
}

// AssignUsersRequest lists the consultants to attach to a template
type AssignUsersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// SubmitAnswerRequest carries question id to answer text
type SubmitAnswerRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// UpdateFormStatusRequest moves a feedback form to a new status
type UpdateFormStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending active overdue closed"`
}
