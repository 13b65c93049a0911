package routes

import (
	"net/http"

	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupQuizRoutes(router *gin.Engine, repos store.Repositories, adminGuard gin.HandlerFunc) {
	quizzes := router.Group("/quizzes")
	repo := repos.Quizzes()

	// newest first
	quizzes.GET("", func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		list, err := repo.List(ctx)
		if err != nil {
			respondStoreError(c, err, "Failed to list quizzes")
			return
		}
		c.JSON(http.StatusOK, gin.H{"quizzes": list, "total": len(list)})
	})
	quizzes.GET("/:id", getByIDHandler(repo, "Quiz"))
	quizzes.GET("/by-slug/:slug", lookupHandler(repo.GetBySlug, "slug", "Quiz"))

	quizzes.POST("", adminGuard, createHandler(repo, "Quiz"))
	quizzes.PUT("/:id", adminGuard, updateHandler(repo, "Quiz"))
}
