package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
	"github.com/noah-isme/agape-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated principal.
const ContextUserKey = "currentUser"

// TokenValidator checks a signed access token.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Authenticate resolves the principal from an Authorization bearer header,
// falling back to the session cookie, and halts with 401 when neither holds
// a valid token.
func Authenticate(tokens TokenValidator, sessions *SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
				return
			}
			token = strings.TrimSpace(parts[1])
		} else {
			token = sessions.Token(c)
		}
		if token == "" {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentUser returns the principal placed on the context by Authenticate.
func CurrentUser(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
