package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CatalogService owns clients, questions and templates
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Clients

func (s *CatalogService) CreateClient(ctx context.Context, req *types.ClientRequest) (*models.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErrorf("client name is required")
	}
	client := &models.Client{
		Name:        name,
		Description: req.Description,
	}
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *CatalogService) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (s *CatalogService) ListClients(ctx context.Context) ([]*models.Client, error) {
	var clients []*models.Client
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *CatalogService) UpdateClient(ctx context.Context, id uuid.UUID, req *types.ClientRequest) (*models.Client, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErrorf("client name is required")
	}
	// Existing feedback forms keep the client name they were created with.
	client.Name = name
	client.Description = req.Description
	if err := s.db.WithContext(ctx).Save(client).Error; err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

func (s *CatalogService) DeleteClient(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete client: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}

// Questions

func (s *CatalogService) CreateQuestion(ctx context.Context, req *types.QuestionRequest) (*models.Question, error) {
	question := &models.Question{}
	if err := s.applyQuestion(ctx, question, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return question, nil
}

func (s *CatalogService) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

// ListQuestions returns global questions plus, when clientID is set, that client's own questions.
func (s *CatalogService) ListQuestions(ctx context.Context, clientID *uuid.UUID) ([]*models.Question, error) {
	query := s.db.WithContext(ctx).Model(&models.Question{})
	if clientID != nil {
		query = query.Where("client_id IS NULL OR client_id = ?", *clientID)
	} else {
		query = query.Where("client_id IS NULL")
	}

	var questions []*models.Question
	if err := query.Order("theme ASC, created_at ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *CatalogService) UpdateQuestion(ctx context.Context, id uuid.UUID, req *types.QuestionRequest) (*models.Question, error) {
	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyQuestion(ctx, question, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(question).Error; err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return question, nil
}

func (s *CatalogService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.TemplateQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to unlink question: %w", err)
		}
		result := tx.Delete(&models.Question{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete question: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrQuestionNotFound
		}
		return nil
	})
}

func (s *CatalogService) applyQuestion(ctx context.Context, q *models.Question, req *types.QuestionRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return validationErrorf("question text is required")
	}
	qType := models.QuestionType(req.Type)
	if !qType.Valid() {
		return validationErrorf("unknown question type %q", req.Type)
	}

	var options []string
	for _, opt := range req.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if qType.HasOptions() && len(options) == 0 {
		return validationErrorf("%s questions need at least one option", qType)
	}
	if !qType.HasOptions() {
		options = nil
	}

	if req.ClientID != nil {
		if _, err := s.GetClient(ctx, *req.ClientID); err != nil {
			return err
		}
	}

	q.Text = text
	q.Type = qType
	q.Theme = strings.TrimSpace(req.Theme)
	q.ClientID = req.ClientID
	q.Options = datatypes.NewJSONType(options)
	return nil
}

// Templates

func (s *CatalogService) CreateTemplate(ctx context.Context, req *types.TemplateRequest) (*models.Template, error) {
	tmpl := &models.Template{}
	if err := s.applyTemplate(ctx, tmpl, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return tmpl, nil
}

// GetTemplate loads a template with its questions in display order.
func (s *CatalogService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var tmpl models.Template
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Questions.Question").
		First(&tmpl, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

func (s *CatalogService) ListTemplates(ctx context.Context, clientID *uuid.UUID) ([]*models.Template, error) {
	query := s.db.WithContext(ctx).Model(&models.Template{})
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}

	var templates []*models.Template
	if err := query.Order("name ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *CatalogService) UpdateTemplate(ctx context.Context, id uuid.UUID, req *types.TemplateRequest) (*models.Template, error) {
	var tmpl models.Template
	if err := s.db.WithContext(ctx).First(&tmpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if err := s.applyTemplate(ctx, &tmpl, req); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Questions").Save(&tmpl).Error; err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return s.GetTemplate(ctx, id)
}

// DeleteTemplate removes the template and its standing assignments. Generated
// forms and their tracking records are history and stay in place.
func (s *CatalogService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Template{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete template: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTemplateNotFound
		}
		if err := tx.Where("template_id = ?", id).Delete(&models.TemplateQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to delete template questions: %w", err)
		}
		if err := tx.Where("template_id = ?", id).Delete(&models.UserTemplateAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete template assignments: %w", err)
		}
		if err := tx.Where("template_id = ?", id).Delete(&models.OverdueFeedbackAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to delete overdue ledger rows: %w", err)
		}
		return nil
	})
}

// SetTemplateQuestions replaces the template's question list. Each question
// must be global or belong to the template's client, and may appear once.
func (s *CatalogService) SetTemplateQuestions(ctx context.Context, templateID uuid.UUID, questions []types.TemplateQuestionInput) (*models.Template, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tmpl models.Template
		if err := tx.First(&tmpl, "id = ?", templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("failed to get template: %w", err)
		}

		seen := make(map[uuid.UUID]bool, len(questions))
		links := make([]models.TemplateQuestion, 0, len(questions))
		for i, in := range questions {
			if seen[in.QuestionID] {
				return validationErrorf("question %s listed twice", in.QuestionID)
			}
			seen[in.QuestionID] = true

			var q models.Question
			if err := tx.First(&q, "id = ?", in.QuestionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrQuestionNotFound, in.QuestionID)
				}
				return fmt.Errorf("failed to get question: %w", err)
			}
			if !q.IsGlobal() && *q.ClientID != tmpl.ClientID {
				return validationErrorf("question %s belongs to another client", q.ID)
			}

			order := in.Order
			if order == 0 {
				order = i + 1
			}
			links = append(links, models.TemplateQuestion{
				TemplateID: tmpl.ID,
				QuestionID: q.ID,
				Order:      order,
			})
		}

		if err := tx.Where("template_id = ?", tmpl.ID).Delete(&models.TemplateQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to clear template questions: %w", err)
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("failed to link template questions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTemplate(ctx, templateID)
}

func (s *CatalogService) applyTemplate(ctx context.Context, tmpl *models.Template, req *types.TemplateRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return validationErrorf("template name is required")
	}
	if req.RecurrenceInterval < 0 {
		return validationErrorf("recurrence interval must not be negative")
	}
	if _, err := s.GetClient(ctx, req.ClientID); err != nil {
		return err
	}

	start := req.StartDate.Time
	if start.IsZero() {
		start = time.Now()
	}
	tmpl.Name = name
	tmpl.ClientID = req.ClientID
	tmpl.RecurrenceInterval = req.RecurrenceInterval
	tmpl.StartDate = models.DateOnly(start)
	return nil
}

// templateQuestions returns the questions of a template in display order.
func templateQuestions(tx *gorm.DB, templateID uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	err := tx.Model(&models.Question{}).
		Joins("JOIN template_questions tq ON tq.question_id = questions.id").
		Where("tq.template_id = ?", templateID).
		Order("tq.position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load template questions: %w", err)
	}
	return questions, nil
}
