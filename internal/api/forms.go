package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/clientpulse/backend/internal/models"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/types"
)

// FormHandler serves feedback form instances: generation, status, summaries and exports
type FormHandler struct {
	catalogService   service.ICatalogService
	generatorService service.IGeneratorService
	lifecycleService service.ILifecycleService
	responseService  service.IResponseService
	summaryService   service.ISummaryService
}

func NewFormHandler(
	catalogService service.ICatalogService,
	generatorService service.IGeneratorService,
	lifecycleService service.ILifecycleService,
	responseService service.IResponseService,
	summaryService service.ISummaryService,
) *FormHandler {
	return &FormHandler{
		catalogService:   catalogService,
		generatorService: generatorService,
		lifecycleService: lifecycleService,
		responseService:  responseService,
		summaryService:   summaryService,
	}
}

func (h *FormHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/templates/:id/generate", h.GenerateForms)

	forms := admin.Group("/forms")
	{
		forms.GET("", h.ListForms)
		forms.GET("/:id", h.GetForm)
		forms.PUT("/:id/status", h.UpdateStatus)
		forms.POST("/:id/summary", h.Summarize)
		forms.GET("/:id/export", h.Export)
	}
}

// GenerateForms creates a batch of dated instances of a template. The
// template's start date and interval fill in whatever the request omits.
func (h *FormHandler) GenerateForms(c *gin.Context) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.GenerateFormsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	firstDue := req.FirstDueDate.Time
	interval := 0
	if req.RecurrenceInterval != nil {
		interval = *req.RecurrenceInterval
	}
	if firstDue.IsZero() || req.RecurrenceInterval == nil {
		tmpl, err := h.catalogService.GetTemplate(c.Request.Context(), templateID)
		if err != nil {
			respondError(c, err, "Failed to load template")
			return
		}
		if firstDue.IsZero() {
			firstDue = tmpl.StartDate
		}
		if req.RecurrenceInterval == nil {
			interval = tmpl.RecurrenceInterval
		}
	}

	result, err := h.generatorService.GenerateForms(c.Request.Context(), templateID, firstDue, interval, req.Quantity)
	if err != nil {
		if result != nil && len(result.FormIDs) > 0 {
			// Instances created before the failure stay committed.
			status, message := statusFor(err), err.Error()
			if status == http.StatusInternalServerError {
				log.Printf("generate forms for template %s failed after %d instances: %v", templateID, len(result.FormIDs), err)
				message = "Failed to generate forms"
			}
			c.JSON(status, gin.H{"error": message, "result": result})
			return
		}
		respondError(c, err, "Failed to generate forms")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *FormHandler) ListForms(c *gin.Context) {
	filters := &models.FeedbackFormFilters{
		TemplateID: c.Query("template_id"),
		ClientID:   c.Query("client_id"),
		Status:     c.Query("status"),
	}
	if filters.Status != "" {
		if _, err := models.ParseFormStatus(filters.Status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	filters.Limit, filters.Offset = pagination(c)

	forms, err := h.responseService.ListFeedbackForms(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to list feedback forms")
		return
	}
	c.JSON(http.StatusOK, forms)
}

func (h *FormHandler) GetForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	form, err := h.responseService.GetFeedbackForm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get feedback form")
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *FormHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.UpdateFormStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form, err := h.lifecycleService.UpdateFeedbackFormStatus(c.Request.Context(), id, models.FormStatus(req.Status))
	if err != nil {
		respondError(c, err, "Failed to update feedback form status")
		return
	}
	c.JSON(http.StatusOK, form)
}

// Summarize recomputes the aggregate responses of a form
func (h *FormHandler) Summarize(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	summary, err := h.summaryService.SummarizeFeedbackForm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to summarize feedback form")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Export returns a presigned link when object storage is configured and the
// CSV itself otherwise.
func (h *FormHandler) Export(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	export, err := h.summaryService.ExportFeedbackFormCSV(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to export feedback form")
		return
	}
	if export.URL != "" {
		c.JSON(http.StatusOK, export)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", export.CSV)
}
