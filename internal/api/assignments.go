package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/types"
)

// AssignmentHandler manages template assignments and the overdue ledger
type AssignmentHandler struct {
	assignmentService service.IAssignmentService
	lifecycleService  service.ILifecycleService
}

func NewAssignmentHandler(assignmentService service.IAssignmentService, lifecycleService service.ILifecycleService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		lifecycleService:  lifecycleService,
	}
}

func (h *AssignmentHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/templates/:id/assignments", h.AssignUsers)
	admin.GET("/templates/:id/assignments", h.ListAssignments)
	admin.DELETE("/templates/:id/assignments/:user_id", h.RemoveUser)
	admin.GET("/overdue-assignments", h.ListOverdue)
}

// AssignUsers attaches consultants to a template and creates their pending
// tracking records for every existing instance.
func (h *AssignmentHandler) AssignUsers(c *gin.Context) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req types.AssignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.assignmentService.AssignUsersToTemplate(c.Request.Context(), templateID, req.UserIDs)
	if err != nil {
		respondError(c, err, "Failed to assign users")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return
	}
	assignments, err := h.assignmentService.ListAssignments(c.Request.Context(), templateID)
	if err != nil {
		respondError(c, err, "Failed to list assignments")
		return
	}
	c.JSON(http.StatusOK, assignments)
}

// RemoveUser detaches a consultant and drops their still-pending records
func (h *AssignmentHandler) RemoveUser(c *gin.Context) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	removed, err := h.assignmentService.RemoveUserFromTemplateAssignment(c.Request.Context(), userID, templateID)
	if err != nil {
		respondError(c, err, "Failed to remove assignment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed_tracking_records": removed})
}

func (h *AssignmentHandler) ListOverdue(c *gin.Context) {
	rows, err := h.lifecycleService.ListOverdueAssignments(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list overdue assignments")
		return
	}
	c.JSON(http.StatusOK, rows)
}
