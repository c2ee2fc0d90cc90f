package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/types"
)

// ITokenService issues and validates bearer tokens
type ITokenService interface {
	ValidateToken(token string) (*types.TokenClaims, error)
	GenerateToken(claims *types.TokenClaims) (string, error)
}

// IUserService defines the interface for consultant directory operations
type IUserService interface {
	CreateUser(ctx context.Context, req *types.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// ICatalogService defines the interface for clients, questions and templates
type ICatalogService interface {
	CreateClient(ctx context.Context, req *types.ClientRequest) (*models.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context) ([]*models.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, req *types.ClientRequest) (*models.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error

	CreateQuestion(ctx context.Context, req *types.QuestionRequest) (*models.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestions(ctx context.Context, clientID *uuid.UUID) ([]*models.Question, error)
	UpdateQuestion(ctx context.Context, id uuid.UUID, req *types.QuestionRequest) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error

	CreateTemplate(ctx context.Context, req *types.TemplateRequest) (*models.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error)
	ListTemplates(ctx context.Context, clientID *uuid.UUID) ([]*models.Template, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, req *types.TemplateRequest) (*models.Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	SetTemplateQuestions(ctx context.Context, templateID uuid.UUID, questions []types.TemplateQuestionInput) (*models.Template, error)
}

// IGeneratorService creates feedback form instances from templates
type IGeneratorService interface {
	GenerateForms(ctx context.Context, templateID uuid.UUID, firstDueDate time.Time, intervalDays, quantity int) (*GenerateResult, error)
	GenerateRecurringForms(ctx context.Context) (*JobResult, error)
}

// IAssignmentService manages which consultants receive a template's forms
type IAssignmentService interface {
	AssignUsersToTemplate(ctx context.Context, templateID uuid.UUID, userIDs []uuid.UUID) (*AssignResult, error)
	RemoveUserFromTemplateAssignment(ctx context.Context, userID, templateID uuid.UUID) (int64, error)
	ListAssignments(ctx context.Context, templateID uuid.UUID) ([]*models.UserTemplateAssignment, error)
}

// ILifecycleService advances tracking records and forms through their statuses
type ILifecycleService interface {
	RunDailyTasks(ctx context.Context) (*JobResult, error)
	UpdateOverdueFeedbackAssignments(ctx context.Context) (*JobResult, error)
	UpdateFeedbackFormStatus(ctx context.Context, formID uuid.UUID, status models.FormStatus) (*models.FeedbackForm, error)
	ListOverdueAssignments(ctx context.Context) ([]*models.OverdueFeedbackAssignment, error)
}

// IResponseService records and reads consultant answers
type IResponseService interface {
	SubmitFormAnswer(ctx context.Context, answer *models.FormAnswer) (*models.FormAnswer, error)
	DeleteSubmission(ctx context.Context, trackingID uuid.UUID) error
	CompleteTrackingRecord(ctx context.Context, trackingID uuid.UUID) (*models.UserFeedbackForm, error)
	GetSubmission(ctx context.Context, trackingID uuid.UUID) (*models.FormAnswer, error)
	GetTrackingRecord(ctx context.Context, id uuid.UUID) (*models.UserFeedbackForm, error)
	ListTrackingRecords(ctx context.Context, filters *models.TrackingFilters) ([]*models.UserFeedbackForm, error)
	GetFeedbackForm(ctx context.Context, id uuid.UUID) (*models.FeedbackForm, error)
	ListFeedbackForms(ctx context.Context, filters *models.FeedbackFormFilters) ([]*models.FeedbackForm, error)
}

// ISummaryService aggregates submitted answers per form
type ISummaryService interface {
	SummarizeFeedbackForm(ctx context.Context, formID uuid.UUID) (*FormSummary, error)
	ExportFeedbackFormCSV(ctx context.Context, formID uuid.UUID) (*ExportResult, error)
}

// INotifier delivers notifications to consultants
type INotifier interface {
	SendTemplatedEmail(ctx context.Context, to, templateKey string, fields map[string]interface{}) error
	SendChatMessage(ctx context.Context, recipientKey, text string) (bool, error)
}

// IObjectStore stores exported artifacts
type IObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
}

// IJobRunner runs named batch jobs
type IJobRunner interface {
	Run(ctx context.Context, name string) ([]*JobResult, error)
}
