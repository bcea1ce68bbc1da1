package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	CORSOrigin string
	Auth       *AuthController
	Chat       *ChatController
	Log        logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(cfg.CORSOrigin))
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware(cfg.Log))
	r.Use(MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		chat := v1.Group("/chat")
		chat.POST("/message", cfg.Auth.TokenAuthMiddleware(processFailure), cfg.Chat.ProcessMessage)
		chat.GET("/history", cfg.Auth.TokenAuthMiddleware(historyFailure), cfg.Chat.History)
		chat.GET("/status", cfg.Auth.TokenAuthMiddleware(statusFailure), cfg.Chat.Status)
	}
	return r
}
