package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/types"
)

// CatalogHandler serves clients, questions and templates
type CatalogHandler struct {
	catalogService service.ICatalogService
}

func NewCatalogHandler(catalogService service.ICatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// RegisterRoutes exposes template reads to every consultant so forms can be
// rendered; everything else is admin only.
func (h *CatalogHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/templates/:id", h.GetTemplate)

	clients := admin.Group("/clients")
	{
		clients.POST("", h.CreateClient)
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.PUT("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
	}

	questions := admin.Group("/questions")
	{
		questions.POST("", h.CreateQuestion)
		questions.GET("", h.ListQuestions)
		questions.GET("/:id", h.GetQuestion)
		questions.PUT("/:id", h.UpdateQuestion)
		questions.DELETE("/:id", h.DeleteQuestion)
	}

	templates := admin.Group("/templates")
	{
		templates.POST("", h.CreateTemplate)
		templates.GET("", h.ListTemplates)
		templates.PUT("/:id", h.UpdateTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)
		templates.PUT("/:id/questions", h.SetTemplateQuestions)
	}
}

func (h *CatalogHandler) CreateClient(c *gin.Context) {
	var req types.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.catalogService.CreateClient(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create client")
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *CatalogHandler) ListClients(c *gin.Context) {
	clients, err := h.catalogService.ListClients(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *CatalogHandler) GetClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	client, err := h.catalogService.GetClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get client")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *CatalogHandler) UpdateClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.catalogService.UpdateClient(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update client")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *CatalogHandler) DeleteClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteClient(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete client")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) CreateQuestion(c *gin.Context) {
	var req types.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, err := h.catalogService.CreateQuestion(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create question")
		return
	}
	c.JSON(http.StatusCreated, question)
}

// ListQuestions returns global questions, plus the client's own when ?client_id is set
func (h *CatalogHandler) ListQuestions(c *gin.Context) {
	clientID, ok := optionalUUIDQuery(c, "client_id")
	if !ok {
		return
	}
	questions, err := h.catalogService.ListQuestions(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err, "Failed to list questions")
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *CatalogHandler) GetQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	question, err := h.catalogService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get question")
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *CatalogHandler) UpdateQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, err := h.catalogService.UpdateQuestion(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update question")
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *CatalogHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteQuestion(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete question")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var req types.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := h.catalogService.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create template")
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	clientID, ok := optionalUUIDQuery(c, "client_id")
	if !ok {
		return
	}
	templates, err := h.catalogService.ListTemplates(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err, "Failed to list templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *CatalogHandler) GetTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tmpl, err := h.catalogService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *CatalogHandler) UpdateTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := h.catalogService.UpdateTemplate(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *CatalogHandler) DeleteTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete template")
		return
	}
	c.Status(http.StatusNoContent)
}

// SetTemplateQuestions replaces the ordered question list of a template
func (h *CatalogHandler) SetTemplateQuestions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.SetTemplateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := h.catalogService.SetTemplateQuestions(c.Request.Context(), id, req.Questions)
	if err != nil {
		respondError(c, err, "Failed to set template questions")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}
