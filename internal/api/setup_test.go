package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/clientpulse/backend/internal/middleware"
	"github.com/pageza/clientpulse/backend/internal/mocks"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/testhelpers"
	"github.com/pageza/clientpulse/backend/internal/types"
)

const (
	testJWTSecret  = "test-secret"
	testCronSecret = "cron-secret"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *service.TokenService
	jobs   *mocks.MockJobRunner
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	tokens := service.NewTokenService(testJWTSecret)
	jobs := &mocks.MockJobRunner{}

	svc := &Services{
		Tokens:      tokens,
		Users:       service.NewUserService(db),
		Catalog:     service.NewCatalogService(db),
		Generator:   service.NewGeneratorService(db),
		Assignments: service.NewAssignmentService(db),
		Lifecycle:   service.NewLifecycleService(db, &mocks.MockNotifier{}, service.LifecycleOptions{}),
		Responses:   service.NewResponseService(db),
		Summaries:   service.NewSummaryService(db, nil),
		Jobs:        jobs,
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	SetupAPI(router, svc, Options{
		CronSecret:        testCronSecret,
		SubmissionLimiter: middleware.NewSubmissionRateLimiter(nil),
	})

	return &testAPI{router: router, db: db, tokens: tokens, jobs: jobs}
}

func (a *testAPI) token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := a.tokens.GenerateToken(&types.TokenClaims{UserID: userID, Email: "someone@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func (a *testAPI) adminToken(t *testing.T) string {
	return a.token(t, uuid.New(), "admin")
}

// do performs a request with an optional JSON body and bearer token
func (a *testAPI) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		req = httptest.NewRequest(method, path, bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
