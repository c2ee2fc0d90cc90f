package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const exportURLTTL = 24 * time.Hour

// QuestionSummary aggregates the answers given to one question.
type QuestionSummary struct {
	QuestionID  uuid.UUID           `json:"question_id"`
	Text        string              `json:"text"`
	Type        models.QuestionType `json:"type"`
	Theme       string              `json:"theme,omitempty"`
	Responses   int                 `json:"responses"`
	Counts      map[string]int      `json:"counts,omitempty"`
	TextAnswers []string            `json:"text_answers,omitempty"`
}

// FormSummary is the aggregate stored in a feedback form's responses blob.
type FormSummary struct {
	FeedbackFormID uuid.UUID         `json:"feedback_form_id"`
	TemplateName   string            `json:"template_name"`
	ClientName     string            `json:"client_name"`
	DueDate        string            `json:"due_date"`
	Assigned       int               `json:"assigned"`
	Respondents    int               `json:"respondents"`
	Questions      []QuestionSummary `json:"questions"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// ExportResult describes a CSV export of a feedback form.
type ExportResult struct {
	FileName  string `json:"file_name"`
	ObjectKey string `json:"object_key,omitempty"`
	URL       string `json:"url,omitempty"`
	Rows      int    `json:"rows"`
	CSV       []byte `json:"-"`
}

// SummaryService builds per-form aggregates and exports
type SummaryService struct {
	db    *gorm.DB
	store IObjectStore
	now   func() time.Time
}

// NewSummaryService creates the service. store may be nil, in which case
// exports are returned inline only.
func NewSummaryService(db *gorm.DB, store IObjectStore) *SummaryService {
	return &SummaryService{db: db, store: store, now: utcNow}
}

type formResponses struct {
	form      models.FeedbackForm
	questions []models.Question
	records   []models.UserFeedbackForm
	answers   map[uuid.UUID]models.FormAnswer // keyed by tracking record id
}

func (s *SummaryService) load(ctx context.Context, formID uuid.UUID) (*formResponses, error) {
	db := s.db.WithContext(ctx)
	out := &formResponses{answers: map[uuid.UUID]models.FormAnswer{}}

	if err := db.First(&out.form, "id = ?", formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackFormNotFound
		}
		return nil, fmt.Errorf("failed to get feedback form: %w", err)
	}

	questions, err := templateQuestions(db, out.form.TemplateID)
	if err != nil {
		return nil, err
	}
	out.questions = questions

	if err := db.Where("feedback_form_id = ?", formID).Order("created_at ASC").Find(&out.records).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracking records: %w", err)
	}
	if len(out.records) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(out.records))
	for i, rec := range out.records {
		ids[i] = rec.ID
	}
	var answers []models.FormAnswer
	if err := db.Where("user_feedback_form_id IN ?", ids).Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	for _, a := range answers {
		out.answers[a.UserFeedbackFormID] = a
	}
	return out, nil
}

// SummarizeFeedbackForm aggregates every submitted answer of the form and
// stores the result in the form's responses blob.
func (s *SummaryService) SummarizeFeedbackForm(ctx context.Context, formID uuid.UUID) (*FormSummary, error) {
	data, err := s.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	summary := &FormSummary{
		FeedbackFormID: data.form.ID,
		TemplateName:   data.form.TemplateName,
		ClientName:     data.form.ClientName,
		DueDate:        data.form.DueDate.Format("2006-01-02"),
		Assigned:       len(data.records),
		Respondents:    len(data.answers),
		Questions:      make([]QuestionSummary, 0, len(data.questions)),
		GeneratedAt:    s.now(),
	}

	for _, q := range data.questions {
		qs := QuestionSummary{QuestionID: q.ID, Text: q.Text, Type: q.Type, Theme: q.Theme}
		if q.Type.HasOptions() {
			qs.Counts = make(map[string]int)
			for _, opt := range q.Options.Data() {
				qs.Counts[opt] = 0
			}
		}
		for _, rec := range data.records {
			answer, ok := data.answers[rec.ID]
			if !ok {
				continue
			}
			value, ok := answer.Answers.Data()[q.ID.String()]
			if !ok || value == "" {
				continue
			}
			qs.Responses++
			if q.Type.HasOptions() {
				qs.Counts[value]++
			} else {
				qs.TextAnswers = append(qs.TextAnswers, value)
			}
		}
		summary.Questions = append(summary.Questions, qs)
	}

	blob, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	err = s.db.WithContext(ctx).
		Model(&models.FeedbackForm{}).
		Where("id = ?", formID).
		Updates(map[string]interface{}{"responses": datatypes.JSON(blob), "updated_at": s.now()}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}
	return summary, nil
}

// ExportFeedbackFormCSV writes one row per respondent and one column per
// template question. When object storage is configured the file is uploaded
// and a presigned download URL is returned.
func (s *SummaryService) ExportFeedbackFormCSV(ctx context.Context, formID uuid.UUID) (*ExportResult, error) {
	data, err := s.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uuid.UUID, 0, len(data.answers))
	for _, a := range data.answers {
		userIDs = append(userIDs, a.UserID)
	}
	users, err := usersByID(s.db.WithContext(ctx), userIDs)
	if err != nil {
		return nil, err
	}

	header := []string{"user_email", "user_name", "status", "submitted_at"}
	for _, q := range data.questions {
		header = append(header, q.Text)
	}

	var rows [][]string
	for _, rec := range data.records {
		answer, ok := data.answers[rec.ID]
		if !ok {
			continue
		}
		user := users[rec.UserID]
		row := []string{user.Email, user.Name, string(rec.Status), answer.SubmittedAt.UTC().Format(time.RFC3339)}
		values := answer.Answers.Data()
		for _, q := range data.questions {
			row = append(row, values[q.ID.String()])
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}

	result := &ExportResult{
		FileName: fmt.Sprintf("%s-%s.csv", data.form.DueDate.Format("2006-01-02"), data.form.ID),
		Rows:     len(rows),
		CSV:      buf.Bytes(),
	}
	if s.store == nil {
		return result, nil
	}

	result.ObjectKey = fmt.Sprintf("exports/%s/%s", data.form.TemplateID, result.FileName)
	if err := s.store.PutObject(ctx, result.ObjectKey, "text/csv", result.CSV); err != nil {
		return nil, dependencyError("upload export", err)
	}
	url, err := s.store.GeneratePresignedURL(ctx, result.ObjectKey, exportURLTTL)
	if err != nil {
		return nil, dependencyError("presign export", err)
	}
	result.URL = url
	log.Printf("[summary] exported %d rows for form %s to %s", result.Rows, formID, result.ObjectKey)
	return result, nil
}
