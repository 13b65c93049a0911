package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/queue"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/middleware"
	"ai-tutor-backend/services"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// IndexStatusReporter reports the state of the resource vector index.
// *store.IndexManager satisfies it.
type IndexStatusReporter interface {
	Status(ctx context.Context) (*store.IndexStatus, error)
}

type reembedRequest struct {
	ResourceID  string `json:"resource_id"`
	OnlyMissing bool   `json:"only_missing"`
}

// SetupAdminRoutes registers maintenance endpoints. A nil enqueuer disables
// re-embedding and a nil index reporter disables the index status endpoint;
// both then answer 503.
func SetupAdminRoutes(router *gin.Engine, enqueuer queue.Enqueuer, exporter *services.ExportService, index IndexStatusReporter, adminGuard gin.HandlerFunc) {
	admin := router.Group("/admin", adminGuard)

	admin.POST("/resources/reembed", func(c *gin.Context) {
		if enqueuer == nil {
			utils.RespondWithServiceUnavailable(c, "Task queue not configured", nil)
			return
		}

		var req reembedRequest
		// an empty body re-embeds everything
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				utils.RespondWithBadRequest(c, "Invalid re-embed request", gin.H{"error": err.Error()})
				return
			}
		}
		if req.ResourceID != "" {
			if _, err := store.ParseID(req.ResourceID); err != nil {
				utils.RespondWithInvalidID(c, req.ResourceID)
				return
			}
		}

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		info, err := queue.EnqueueReembed(ctx, enqueuer, queue.ReembedPayload{
			ResourceID:  req.ResourceID,
			OnlyMissing: req.OnlyMissing,
			RequestedBy: middleware.GetAdminSubject(c),
		})
		if errors.Is(err, asynq.ErrDuplicateTask) {
			utils.RespondWithConflict(c, "already_queued", "An identical re-embedding run is already queued")
			return
		}
		if err != nil {
			logger.Error("Failed to enqueue re-embedding", "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "Failed to enqueue re-embedding", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id":      info.ID,
			"queue":        info.Queue,
			"resource_id":  req.ResourceID,
			"only_missing": req.OnlyMissing,
		})
	})

	admin.GET("/resources/export", func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		result, err := exporter.ExportResources(ctx)
		if err != nil {
			respondStoreError(c, err, "Failed to export resources")
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		c.Header("X-Record-Count", fmt.Sprint(result.RecordCount))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Data.Bytes())
	})

	admin.GET("/index/status", func(c *gin.Context) {
		if index == nil {
			utils.RespondWithServiceUnavailable(c, "Vector index not managed by this backend", nil)
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		status, err := index.Status(ctx)
		if err != nil {
			respondStoreError(c, err, "Failed to read index status")
			return
		}
		c.JSON(http.StatusOK, status)
	})
}
