package routes

import (
	"context"
	"errors"
	"net/http"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/middleware"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

// recordRepo is the id-addressed part shared by every repository.
type recordRepo[T any] interface {
	Create(ctx context.Context, rec T) (string, error)
	Update(ctx context.Context, id string, rec T) (bool, error)
	GetByID(ctx context.Context, id string) (*T, error)
}

func getByIDHandler[T any](repo recordRepo[T], kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		rec, err := repo.GetByID(ctx, c.Param("id"))
		if err != nil {
			respondStoreError(c, err, "Failed to fetch "+kind)
			return
		}
		if rec == nil {
			utils.RespondWithNotFound(c, kind+" not found")
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// lookupHandler serves a secondary-key lookup (slug or title) from a path param.
func lookupHandler[T any](lookup func(context.Context, string) (*T, error), param, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		rec, err := lookup(ctx, c.Param(param))
		if err != nil {
			respondStoreError(c, err, "Failed to fetch "+kind)
			return
		}
		if rec == nil {
			utils.RespondWithNotFound(c, kind+" not found")
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func createHandler[T any](repo recordRepo[T], kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec T
		if err := c.ShouldBindJSON(&rec); err != nil {
			utils.RespondWithBadRequest(c, "Invalid "+kind+" data", gin.H{"error": err.Error()})
			return
		}

		// creating a resource embeds its text
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		id, err := repo.Create(ctx, rec)
		if err != nil {
			respondStoreError(c, err, "Failed to create "+kind)
			return
		}

		logger.Info("Record created", "kind", kind, "id", id,
			"admin", middleware.GetAdminSubject(c), "request_id", middleware.GetRequestID(c))
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// updateHandler replaces business fields. An unknown id is a 404; an
// existing record left unchanged answers updated=false.
func updateHandler[T any](repo recordRepo[T], kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := store.ParseID(id); err != nil {
			utils.RespondWithInvalidID(c, id)
			return
		}

		var rec T
		if err := c.ShouldBindJSON(&rec); err != nil {
			utils.RespondWithBadRequest(c, "Invalid "+kind+" data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		updated, err := repo.Update(ctx, id, rec)
		if err != nil {
			respondStoreError(c, err, "Failed to update "+kind)
			return
		}
		if !updated {
			existing, err := repo.GetByID(ctx, id)
			if err != nil {
				respondStoreError(c, err, "Failed to update "+kind)
				return
			}
			if existing == nil {
				utils.RespondWithError(c, http.StatusNotFound, "not_found", kind+" not found", gin.H{"updated": false})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "updated": updated})
	}
}

func respondStoreError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		utils.RespondWithInvalidID(c, c.Param("id"))
	case errors.Is(err, store.ErrInvalidLimit):
		utils.RespondWithBadRequest(c, "limit must be a positive integer", nil)
	case errors.Is(err, ai.ErrEmbedderUnavailable):
		utils.RespondWithServiceUnavailable(c, "Embedding service unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		utils.RespondWithError(c, http.StatusGatewayTimeout, "timeout", message, nil)
	default:
		logger.Error(message, "error", err, "path", c.FullPath(), "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, message, nil)
	}
}
