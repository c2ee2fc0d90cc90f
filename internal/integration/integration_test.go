package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/clientpulse/backend/internal/api"
	"github.com/pageza/clientpulse/backend/internal/middleware"
	"github.com/pageza/clientpulse/backend/internal/mocks"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/router"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/testhelpers"
	"github.com/pageza/clientpulse/backend/internal/types"
)

const cronSecret = "integration-cron"

type stack struct {
	db       *gorm.DB
	router   *gin.Engine
	jobs     *service.JobRunner
	locker   *service.JobLocker
	notifier *mocks.MockNotifier
	tokens   *service.TokenService
}

// setupStack wires the real services against postgres and redis containers
// with clocks pinned to now.
func setupStack(t *testing.T, now time.Time) *stack {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupPostgresTestDB(t)
	rdb := testhelpers.SetupRedis(t)

	notifier := &mocks.MockNotifier{}
	notifier.On("SendTemplatedEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier.On("SendChatMessage", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	generator := service.NewGeneratorService(db).WithClock(testhelpers.Clock(now))
	lifecycle := service.NewLifecycleService(db, notifier, service.LifecycleOptions{
		Concurrency: 2,
		FrontendURL: "https://pulse.example.com",
	}).WithClock(testhelpers.Clock(now))
	locker := service.NewJobLocker(rdb)
	jobs := service.NewJobRunner(generator, lifecycle, locker)
	tokens := service.NewTokenService("integration-secret")

	svc := &api.Services{
		Tokens:      tokens,
		Users:       service.NewUserService(db),
		Catalog:     service.NewCatalogService(db),
		Generator:   generator,
		Assignments: service.NewAssignmentService(db),
		Lifecycle:   lifecycle,
		Responses:   service.NewResponseService(db),
		Summaries:   service.NewSummaryService(db, nil),
		Jobs:        jobs,
	}
	engine := router.SetupRouter(db, svc, api.Options{
		CronSecret:        cronSecret,
		SubmissionLimiter: middleware.NewSubmissionRateLimiter(rdb),
	}, "")

	return &stack{db: db, router: engine, jobs: jobs, locker: locker, notifier: notifier, tokens: tokens}
}

func (s *stack) request(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *stack) token(t *testing.T, user *models.User) string {
	token, err := s.tokens.GenerateToken(&types.TokenClaims{UserID: user.ID, Email: user.Email, Role: user.Role})
	require.NoError(t, err)
	return token
}

func TestWeeklyAndDailyJobsOverPostgres(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	s := setupStack(t, now)

	client := testhelpers.CreateClient(t, s.db, "Acme")
	tmpl := testhelpers.CreateTemplate(t, s.db, client, "Weekly Check-in", 7, testhelpers.Date(2024, 2, 18))
	testhelpers.CreateQuestion(t, s.db, tmpl, "What went well?", models.QuestionTypeFreeText)
	una := testhelpers.CreateUser(t, s.db, "Una", "una@example.com")
	testhelpers.Assign(t, s.db, una, tmpl)
	testhelpers.CreateForm(t, s.db, tmpl, testhelpers.Date(2024, 2, 18), models.FormStatusActive)

	// Weekly: catch up 02-25, 03-03 and 03-10, then reconcile the ledger
	w := s.request(t, http.MethodPost, "/api/v1/cron/weekly", nil, cronSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var forms []models.FeedbackForm
	require.NoError(t, s.db.Where("template_id = ?", tmpl.ID).Order("due_date").Find(&forms).Error)
	require.Len(t, forms, 4)
	assert.Equal(t, "2024-03-10", forms[3].DueDate.Format("2006-01-02"))

	var ledger int64
	require.NoError(t, s.db.Model(&models.OverdueFeedbackAssignment{}).Count(&ledger).Error)
	assert.Equal(t, int64(1), ledger, "no closed instance yet")

	// Daily: the record due today becomes active; older ones were never activated
	w = s.request(t, http.MethodPost, "/api/v1/cron/daily", nil, cronSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var records []models.UserFeedbackForm
	require.NoError(t, s.db.Where("user_id = ?", una.ID).Order("due_date").Find(&records).Error)
	require.Len(t, records, 3)
	assert.Equal(t, models.TrackingStatusActive, records[2].Status)

	// Una answers the newest instance through the API
	w = s.request(t, http.MethodGet, "/api/v1/templates/"+tmpl.ID.String(), nil, s.token(t, una))
	require.Equal(t, http.StatusOK, w.Code)
	var full models.Template
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &full))
	require.Len(t, full.Questions, 1)

	answers := map[string]interface{}{"answers": map[string]string{full.Questions[0].QuestionID.String(): "Shipped"}}
	w = s.request(t, http.MethodPost, "/api/v1/tracking/"+records[2].ID.String()+"/submission", answers, s.token(t, una))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
}

func TestJobLockIsExclusive(t *testing.T) {
	s := setupStack(t, time.Now().UTC())
	ctx := context.Background()

	release, err := s.locker.Acquire(ctx, service.JobDaily)
	require.NoError(t, err)

	_, err = s.jobs.Run(ctx, service.JobDaily)
	assert.True(t, errors.Is(err, service.ErrJobLocked))

	w := s.request(t, http.MethodPost, "/api/v1/cron/daily", nil, cronSecret)
	assert.Equal(t, http.StatusConflict, w.Code)

	release()
	_, err = s.jobs.Run(ctx, service.JobDaily)
	assert.NoError(t, err)
}
