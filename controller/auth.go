package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saintchat/service"
)

const uidKey = "uid"

// AuthController ...
type AuthController struct {
	tokens *service.TokenService
	log    logrus.FieldLogger
}

func NewAuthController(tokens *service.TokenService, log logrus.FieldLogger) *AuthController {
	return &AuthController{tokens: tokens, log: log}
}

// TokenAuthMiddleware ...
// Validates the bearer token and stores the caller identity in the context. A rejected
// token gets the route's failure body, the same one every other failure on it gets.
func (a *AuthController) TokenAuthMiddleware(failure string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := a.tokens.ExtractUID(c.Request)
		if err != nil {
			//Token either expired or not valid
			a.log.Infof("[%s] rejected unauthenticated request: %s", c.GetString("requestId"), err)
			abortWithFailure(c, failure)
			return
		}
		c.Set(uidKey, uid)
		c.Next()
	}
}

func callerUID(c *gin.Context) string {
	return c.GetString(uidKey)
}
