package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/clientpulse/backend/internal/middleware"
	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/types"
)

// TrackingHandler serves per-user tracking records and their submissions
type TrackingHandler struct {
	responseService service.IResponseService
	submitLimit     gin.HandlerFunc
}

func NewTrackingHandler(responseService service.IResponseService, submitLimit gin.HandlerFunc) *TrackingHandler {
	return &TrackingHandler{
		responseService: responseService,
		submitLimit:     submitLimit,
	}
}

func (h *TrackingHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/me/forms", h.ListMine)

	tracking := authed.Group("/tracking")
	{
		tracking.GET("/:id", h.Get)
		tracking.POST("/:id/complete", h.Complete)
		tracking.GET("/:id/submission", h.GetSubmission)
		tracking.POST("/:id/submission", h.submitLimit, h.Submit)
		tracking.DELETE("/:id/submission", h.DeleteSubmission)
	}

	admin.GET("/tracking", h.List)
}

// loadVisible fetches a tracking record the caller may see: their own, or any
// record for administrators.
func (h *TrackingHandler) loadVisible(c *gin.Context) (*models.UserFeedbackForm, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	rec, err := h.responseService.GetTrackingRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get tracking record")
		return nil, false
	}
	userID, _ := middleware.CurrentUserID(c)
	if rec.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return nil, false
	}
	return rec, true
}

func trackingFilters(c *gin.Context) (*models.TrackingFilters, bool) {
	filters := &models.TrackingFilters{
		TemplateID: c.Query("template_id"),
		Status:     c.Query("status"),
	}
	if filters.Status != "" {
		if _, err := models.ParseTrackingStatus(filters.Status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
	}
	filters.Limit, filters.Offset = pagination(c)
	return filters, true
}

// ListMine returns the caller's tracking records ordered by due date
func (h *TrackingHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	filters, ok := trackingFilters(c)
	if !ok {
		return
	}
	filters.UserID = userID.String()

	records, err := h.responseService.ListTrackingRecords(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to list tracking records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *TrackingHandler) List(c *gin.Context) {
	filters, ok := trackingFilters(c)
	if !ok {
		return
	}
	filters.UserID = c.Query("user_id")

	records, err := h.responseService.ListTrackingRecords(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to list tracking records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *TrackingHandler) Get(c *gin.Context) {
	rec, ok := h.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Submit records the caller's answers; only the record owner may submit
func (h *TrackingHandler) Submit(c *gin.Context) {
	rec, ok := h.loadVisible(c)
	if !ok {
		return
	}
	userID, _ := middleware.CurrentUserID(c)
	if rec.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the assigned user can submit answers"})
		return
	}

	var req types.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.responseService.SubmitFormAnswer(c.Request.Context(), service.NewFormAnswer(rec.ID, userID, req.Answers))
	if err != nil {
		respondError(c, err, "Failed to submit answers")
		return
	}
	c.JSON(http.StatusCreated, answer)
}

func (h *TrackingHandler) GetSubmission(c *gin.Context) {
	rec, ok := h.loadVisible(c)
	if !ok {
		return
	}
	answer, err := h.responseService.GetSubmission(c.Request.Context(), rec.ID)
	if err != nil {
		respondError(c, err, "Failed to get submission")
		return
	}
	c.JSON(http.StatusOK, answer)
}

// DeleteSubmission withdraws the answers and puts the record back to pending
func (h *TrackingHandler) DeleteSubmission(c *gin.Context) {
	rec, ok := h.loadVisible(c)
	if !ok {
		return
	}
	if err := h.responseService.DeleteSubmission(c.Request.Context(), rec.ID); err != nil {
		respondError(c, err, "Failed to delete submission")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TrackingHandler) Complete(c *gin.Context) {
	rec, ok := h.loadVisible(c)
	if !ok {
		return
	}
	updated, err := h.responseService.CompleteTrackingRecord(c.Request.Context(), rec.ID)
	if err != nil {
		respondError(c, err, "Failed to complete tracking record")
		return
	}
	c.JSON(http.StatusOK, updated)
}
