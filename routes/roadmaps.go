package routes

import (
	"net/http"

	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupRoadmapRoutes(router *gin.Engine, repos store.Repositories, adminGuard gin.HandlerFunc) {
	roadmaps := router.Group("/roadmaps")
	repo := repos.Roadmaps()

	roadmaps.GET("", func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		list, err := repo.List(ctx)
		if err != nil {
			respondStoreError(c, err, "Failed to list roadmaps")
			return
		}
		c.JSON(http.StatusOK, gin.H{"roadmaps": list, "total": len(list)})
	})
	roadmaps.GET("/:id", getByIDHandler(repo, "Roadmap"))
	roadmaps.GET("/by-title/:title", lookupHandler(repo.GetByTitle, "title", "Roadmap"))

	roadmaps.POST("", adminGuard, createHandler(repo, "Roadmap"))
	roadmaps.PUT("/:id", adminGuard, updateHandler(repo, "Roadmap"))
}
