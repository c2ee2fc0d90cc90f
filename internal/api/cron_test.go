package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/clientpulse/backend/internal/service"
)

func TestCronTriggers(t *testing.T) {
	a := newTestAPI(t)
	a.jobs.On("Run", mock.Anything, service.JobDaily).
		Return([]*service.JobResult{{Job: "daily", Processed: 3}}, nil).Once()
	a.jobs.On("Run", mock.Anything, service.JobWeekly).
		Return(nil, fmt.Errorf("weekly: %w", service.ErrJobLocked)).Once()

	w := a.do(http.MethodPost, "/api/v1/cron/daily", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/v1/cron/daily", nil, a.adminToken(t))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "user tokens are not cron secrets")

	w = a.do(http.MethodPost, "/api/v1/cron/daily", nil, testCronSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"processed":3`)

	w = a.do(http.MethodPost, "/api/v1/cron/weekly", nil, testCronSecret)
	assert.Equal(t, http.StatusConflict, w.Code)

	a.jobs.AssertExpectations(t)
}

func TestCronJobOutlivesRequestCancellation(t *testing.T) {
	a := newTestAPI(t)
	detached := mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return ctx.Err() == nil && hasDeadline
	})
	a.jobs.On("Run", detached, service.JobDaily).
		Return([]*service.JobResult{{Job: "daily"}}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/daily", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	a.jobs.AssertExpectations(t)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrTemplateNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrTrackingRecordNotFound), http.StatusNotFound},
		{service.ErrAlreadyClosed, http.StatusConflict},
		{service.ErrFormClosed, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrJobLocked, http.StatusConflict},
		{fmt.Errorf("%w: quantity must be >= 1", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: smtp", service.ErrDependency), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
