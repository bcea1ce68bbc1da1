package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saintchat/platform"
	"saintchat/service"
)

type ChatController struct {
	chat    *service.ChatService
	history *service.HistoryService
	log     logrus.FieldLogger
}

func NewChatController(chat *service.ChatService, history *service.HistoryService, log logrus.FieldLogger) *ChatController {
	return &ChatController{chat: chat, history: history, log: log}
}

func requestContext(c *gin.Context) context.Context {
	return service.WithRequestID(c.Request.Context(), c.GetString("requestId"))
}

// Every failure on a route is reported with the same status and body, whatever its
// kind. The kind only reaches logs and metrics.
const (
	processFailure = "Failed to process message"
	historyFailure = "Failed to fetch chat history"
	statusFailure  = "Failed to fetch status"
)

func abortWithFailure(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// ProcessMessage handles POST /v1/chat/message.
func (ch *ChatController) ProcessMessage(c *gin.Context) {
	reqID := c.GetString("requestId")
	ch.log.Infof("[%s] Processing chat message", reqID)

	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ch.log.Warnf("[%s] Invalid input, %s", reqID, err)
		platform.RecordChatOutcome(service.Outcome(service.ErrValidation), "unknown")
		abortWithFailure(c, processFailure)
		return
	}

	result, err := ch.chat.ProcessMessage(requestContext(c), callerUID(c), req)
	if err != nil {
		outcome := service.Outcome(err)
		ch.log.Warnf("[%s] Error processing message, outcome=%s: %s", reqID, outcome, err)
		platform.RecordChatOutcome(outcome, "unknown")
		abortWithFailure(c, processFailure)
		return
	}

	platform.RecordChatOutcome(service.Outcome(nil), result.Tier.String())
	if result.Durability.Degraded() {
		ch.log.Warnf("[%s] reply sent with degraded persistence: load=%v append=%v count=%v",
			reqID,
			result.Durability.TranscriptLoadErr,
			result.Durability.TranscriptErr,
			result.Durability.CounterErr)
	}
	c.JSON(http.StatusOK, result.Reply)
}

// History handles GET /v1/chat/history.
func (ch *ChatController) History(c *gin.Context) {
	convs, err := ch.history.List(requestContext(c), callerUID(c))
	if err != nil {
		ch.log.Warnf("[%s] Error fetching chat history: %s", c.GetString("requestId"), err)
		abortWithFailure(c, historyFailure)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// Status handles GET /v1/chat/status.
func (ch *ChatController) Status(c *gin.Context) {
	status, err := ch.chat.Status(requestContext(c), callerUID(c))
	if err != nil {
		ch.log.Warnf("[%s] Error fetching status: %s", c.GetString("requestId"), err)
		abortWithFailure(c, statusFailure)
		return
	}
	c.JSON(http.StatusOK, status)
}
