package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/models"
	"github.com/tablelink/restaurant-ops/utils"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer token into an Identity and puts it on
// the context. Guest routes never pass through here; their only credential is
// the session token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
			c.Abort()
			return
		}
		if claims.UserID == 0 {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid user id in token"))
			c.Abort()
			return
		}

		c.Set(identityKey, models.Identity{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

// IdentityFrom pulls the authenticated identity off the context.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}
