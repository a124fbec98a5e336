package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/noah-isme/agape-api/pkg/config"
)

const sessionTokenKey = "access_token"

// SessionStore keeps the access token in an HMAC-signed browser cookie so
// form clients can stay logged in without handling the bearer token. The
// cookie is not encrypted: its holder can read the token but not alter it.
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionStore builds the cookie store from configuration.
func NewSessionStore(cfg config.SessionConfig) *SessionStore {
	name := cfg.CookieName
	if name == "" {
		name = "agape_session"
	}
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store, name: name}
}

// Save stores the token in the session cookie.
func (s *SessionStore) Save(c *gin.Context, token string) error {
	session, _ := s.store.Get(c.Request, s.name)
	session.Values[sessionTokenKey] = token
	return session.Save(c.Request, c.Writer)
}

// Token returns the stored token, or "" when there is no usable session.
func (s *SessionStore) Token(c *gin.Context) string {
	if s == nil {
		return ""
	}
	session, err := s.store.Get(c.Request, s.name)
	if err != nil {
		return ""
	}
	token, _ := session.Values[sessionTokenKey].(string)
	return token
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(c *gin.Context) error {
	session, _ := s.store.Get(c.Request, s.name)
	delete(session.Values, sessionTokenKey)
	session.Options.MaxAge = -1
	return session.Save(c.Request, c.Writer)
}
