package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/clientpulse/backend/internal/service"
)

// cronJobTimeout bounds a triggered job once it is detached from the request.
const cronJobTimeout = 30 * time.Minute

// CronHandler lets an external scheduler trigger the batch jobs
type CronHandler struct {
	jobs service.IJobRunner
}

func NewCronHandler(jobs service.IJobRunner) *CronHandler {
	return &CronHandler{jobs: jobs}
}

func (h *CronHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/daily", h.run(service.JobDaily))
	router.POST("/weekly", h.run(service.JobWeekly))
}

func (h *CronHandler) run(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Printf("cron trigger received for %s job", name)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), cronJobTimeout)
		defer cancel()
		results, err := h.jobs.Run(ctx, name)
		if err != nil {
			status := statusFor(err)
			c.JSON(status, gin.H{"job": name, "error": err.Error(), "results": results})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": name, "results": results})
	}
}
