package routes

import (
	"net/http"
	"time"

	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupHealthRoutes registers liveness and readiness checks. /health checks
// the store and, when index is set, the vector index; /ready only reports
// that the process serves requests.
func SetupHealthRoutes(router *gin.Engine, repos store.Repositories, index IndexStatusReporter) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		body := gin.H{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)}

		if err := repos.Ping(ctx); err != nil {
			utils.RespondWithServiceUnavailable(c, "Store unreachable", gin.H{"store": err.Error()})
			return
		}
		body["store"] = "ok"

		if index != nil {
			status, err := index.Status(ctx)
			switch {
			case err != nil:
				body["status"] = "degraded"
				body["vector_index"] = gin.H{"error": err.Error()}
			case !status.Queryable:
				body["status"] = "degraded"
				body["vector_index"] = status
			default:
				body["vector_index"] = status
			}
		}

		c.JSON(http.StatusOK, body)
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
