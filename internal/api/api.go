package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pageza/clientpulse/backend/internal/middleware"
	"github.com/pageza/clientpulse/backend/internal/service"
)

// Services bundles the service layer the HTTP handlers depend on
type Services struct {
	Tokens      service.ITokenService
	Users       service.IUserService
	Catalog     service.ICatalogService
	Generator   service.IGeneratorService
	Assignments service.IAssignmentService
	Lifecycle   service.ILifecycleService
	Responses   service.IResponseService
	Summaries   service.ISummaryService
	Jobs        service.IJobRunner
}

// Options carries the HTTP-only knobs of SetupAPI
type Options struct {
	CronSecret        string
	SubmissionLimiter *middleware.RateLimiter
}

// SetupAPI registers every /api/v1 route on router
func SetupAPI(router *gin.Engine, svc *Services, opts Options) {
	v1 := router.Group("/api/v1")

	NewCronHandler(svc.Jobs).RegisterRoutes(v1.Group("/cron", middleware.CronAuth(opts.CronSecret)))

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(svc.Tokens))

	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())

	submitLimit := gin.HandlerFunc(func(c *gin.Context) { c.Next() })
	if opts.SubmissionLimiter != nil {
		submitLimit = opts.SubmissionLimiter.RateLimitMiddleware()
	}

	NewUserHandler(svc.Users).RegisterRoutes(authed, admin)
	NewCatalogHandler(svc.Catalog).RegisterRoutes(authed, admin)
	NewAssignmentHandler(svc.Assignments, svc.Lifecycle).RegisterRoutes(admin)
	NewFormHandler(svc.Catalog, svc.Generator, svc.Lifecycle, svc.Responses, svc.Summaries).RegisterRoutes(admin)
	NewTrackingHandler(svc.Responses, submitLimit).RegisterRoutes(authed, admin)
}
