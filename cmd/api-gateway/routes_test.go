package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/handler"
	"github.com/noah-isme/agape-api/internal/middleware"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/internal/service"
	"github.com/noah-isme/agape-api/pkg/config"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Wrap(errors.New("unknown token"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	metrics := service.NewMetricsService()
	return newRouter(cfg, zap.NewNop(), routerDeps{
		sessions: middleware.NewSessionStore(config.SessionConfig{Secret: "route-test-secret-0123456789abcd"}),
		tokens: tokenTable{
			"staff": {UserID: "u1", Email: "staff@agape.local"},
			"admin": {UserID: "u2", Email: "admin@agape.local", IsAdmin: true},
		},
		metrics:     metrics,
		auth:        handler.NewAuthHandler(nil, nil, nil),
		users:       handler.NewUserHandler(nil),
		students:    handler.NewStudentHandler(nil),
		projects:    handler.NewProjectHandler(nil, nil),
		classes:     handler.NewClassHandler(nil, nil),
		enrollments: handler.NewEnrollmentHandler(nil),
		dashboard:   handler.NewDashboardHandler(nil),
		reports:     handler.NewReportHandler(nil),
		probes:      handler.NewMetricsHandler(metrics, nil),
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProbesArePublic(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", "").Code)
}

func TestDocsHiddenInProduction(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/docs/index.html", "").Code)
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	r := testRouter(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/students"},
		{http.MethodPost, "/api/v1/enrollments"},
		{http.MethodGet, "/api/v1/dashboard"},
		{http.MethodGet, "/api/v1/reports/annual"},
		{http.MethodGet, "/api/v1/auth/me"},
	} {
		rec := serve(r, route.method, route.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/students", "forged").Code)
}

func TestDestructiveRoutesRequireAdmin(t *testing.T) {
	r := testRouter(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodDelete, "/api/v1/students/s1"},
		{http.MethodDelete, "/api/v1/projects/p1"},
		{http.MethodDelete, "/api/v1/classes/c1"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPut, "/api/v1/users/u9/password"},
	} {
		rec := serve(r, route.method, route.path, "staff")
		assert.Equal(t, http.StatusForbidden, rec.Code, route.path)
	}
}
