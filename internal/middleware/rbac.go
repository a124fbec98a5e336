package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/agape-api/pkg/errors"
	"github.com/noah-isme/agape-api/pkg/response"
)

// RequireAdmin lets only administrators through. It must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if !claims.IsAdmin {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "administrator access required"))
			return
		}
		c.Next()
	}
}
