package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sitelens/api/utils"
)

const (
	AuthCookieName = "jwt_token"

	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
)

// AuthRequired accepts a JWT from the jwt_token cookie or a Bearer
// Authorization header and stores the caller's id and email on the context.
func AuthRequired(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AuthCookieName)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := jwtManager.ValidateJWT(tokenString)
		if err != nil {
			log.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected JWT")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
