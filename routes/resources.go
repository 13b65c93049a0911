package routes

import (
	"net/http"
	"strconv"

	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/models"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

// DefaultSearchLimit applies when the limit query parameter is absent.
const DefaultSearchLimit = 2

type searchHit struct {
	models.Resource
	Score float64 `json:"score"`
}

// SetupResourceRoutes registers the resource catalog and semantic search.
// searchLimiter guards the search endpoint, which costs an embedding per call.
func SetupResourceRoutes(router *gin.Engine, repos store.Repositories, adminGuard, searchLimiter gin.HandlerFunc) {
	resources := router.Group("/resources")
	repo := repos.Resources()

	resources.GET("", func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		list, err := repo.List(ctx)
		if err != nil {
			respondStoreError(c, err, "Failed to list resources")
			return
		}
		c.JSON(http.StatusOK, gin.H{"resources": list, "total": len(list)})
	})

	resources.GET("/search", searchLimiter, func(c *gin.Context) {
		query := c.Query("q")
		limit := DefaultSearchLimit
		if raw, ok := c.GetQuery("limit"); ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				utils.RespondWithBadRequest(c, "limit must be a positive integer", gin.H{"limit": raw})
				return
			}
			limit = n
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		scored, err := repo.SearchScored(ctx, query, limit)
		if err != nil {
			respondStoreError(c, err, "Search failed")
			return
		}

		hits := make([]searchHit, 0, len(scored))
		for _, s := range scored {
			hits = append(hits, searchHit{Resource: s.Resource, Score: s.Score})
		}
		c.JSON(http.StatusOK, gin.H{"query": query, "results": hits, "total": len(hits)})
	})

	resources.GET("/:id", getByIDHandler(repo, "Resource"))
	resources.GET("/by-slug/:slug", lookupHandler(repo.GetBySlug, "slug", "Resource"))

	resources.POST("", adminGuard, createHandler(repo, "Resource"))
	resources.PUT("/:id", adminGuard, updateHandler(repo, "Resource"))
}
