package routes

import (
	"errors"
	"net/http"
	"time"

	"ai-tutor-backend/internal/agent"
	"ai-tutor-backend/internal/chat"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/middleware"
	"ai-tutor-backend/models"
	"ai-tutor-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupChatRoutes exposes the learner chat. Every turn round-trips the agent
// service, so sending is rate limited. turnTimeout bounds one turn and must
// exceed the time the agent may hold the reply poll open.
func SetupChatRoutes(router *gin.Engine, bridge *chat.Bridge, chatLimiter gin.HandlerFunc, turnTimeout time.Duration) {
	if turnTimeout <= 0 {
		turnTimeout = utils.LongTimeout
	}

	sessions := router.Group("/chat/sessions")

	sessions.POST("", chatLimiter, func(c *gin.Context) {
		var req models.StartChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "agent_id is required", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		st, err := bridge.Init(ctx, req.SessionID, req.AgentID)
		if err != nil {
			respondChatError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.StartChatResponse{
			SessionID:      st.SessionID,
			AgentID:        st.AgentID,
			AgentSessionID: st.AgentSessionID,
			Messages:       st.Messages,
		})
	})

	sessions.POST("/:id/messages", chatLimiter, func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid message", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := utils.WithCustomTimeout(c.Request.Context(), turnTimeout)
		defer cancel()

		resp, err := bridge.Send(ctx, c.Param("id"), req.Message, req.ExtraInfo)
		if err != nil {
			respondChatError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	sessions.GET("/:id/messages", func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		history, err := bridge.History(ctx, c.Param("id"))
		if err != nil {
			respondChatError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "messages": history})
	})
}

func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNoSession):
		utils.RespondWithNotFound(c, "Chat session not found; start one first")
	case errors.Is(err, chat.ErrAgentRetrieve) && agent.IsNotFound(err):
		utils.RespondWithNotFound(c, "Agent not found")
	case errors.Is(err, agent.ErrUnavailable):
		utils.RespondWithServiceUnavailable(c, "Agent service unavailable", nil)
	case errors.Is(err, chat.ErrAgentRetrieve),
		errors.Is(err, chat.ErrSessionCreate),
		errors.Is(err, chat.ErrSendMessage),
		errors.Is(err, chat.ErrReceiveMessage),
		errors.Is(err, chat.ErrEmptyReply):
		utils.RespondWithBadGateway(c, "agent_error", chatErrorMessage(err))
	default:
		logger.Error("Chat request failed", "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, "Chat request failed", nil)
	}
}

// chatErrorMessage returns the learner-facing text of the sentinel in err.
func chatErrorMessage(err error) string {
	for _, sentinel := range []error{
		chat.ErrEmptyReply, chat.ErrReceiveMessage, chat.ErrSendMessage,
		chat.ErrSessionCreate, chat.ErrAgentRetrieve,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
