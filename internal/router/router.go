package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pageza/clientpulse/backend/internal/api"
	"github.com/pageza/clientpulse/backend/internal/database"
	"github.com/pageza/clientpulse/backend/internal/middleware"
)

// SetupRouter configures the application routes
func SetupRouter(db *gorm.DB, svc *api.Services, opts api.Options, allowedOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(allowedOrigins))

	health := HealthCheck(db)
	router.GET("/health", health)
	router.GET("/api/health", health)

	api.SetupAPI(router, svc, opts)
	return router
}

// HealthCheck reports whether the API and its database are reachable
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "ClientPulse API is running",
		})
	}
}
