package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/handler"
	"github.com/noah-isme/agape-api/internal/middleware"
	"github.com/noah-isme/agape-api/internal/service"
	"github.com/noah-isme/agape-api/pkg/config"
	"github.com/noah-isme/agape-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/agape-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/agape-api/pkg/middleware/requestid"
)

type routerDeps struct {
	sessions *middleware.SessionStore
	tokens   middleware.TokenValidator
	metrics  *service.MetricsService

	auth        *handler.AuthHandler
	users       *handler.UserHandler
	students    *handler.StudentHandler
	projects    *handler.ProjectHandler
	classes     *handler.ClassHandler
	enrollments *handler.EnrollmentHandler
	dashboard   *handler.DashboardHandler
	reports     *handler.ReportHandler
	probes      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.probes.Health)
	r.GET("/ready", d.probes.Ready)
	r.GET("/metrics", d.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", d.auth.Login)
	api.GET("/reports/files/:token", d.reports.Download)

	secured := api.Group("")
	secured.Use(middleware.Authenticate(d.tokens, d.sessions))
	admin := middleware.RequireAdmin()
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr, action, resource)
	}

	secured.POST("/auth/logout", d.auth.Logout)
	secured.GET("/auth/me", d.auth.Me)
	secured.PUT("/auth/password", audit("change_password", "user"), d.auth.ChangePassword)

	secured.GET("/forms/student-intake", d.students.IntakeSchema)

	students := secured.Group("/students")
	students.GET("", d.students.List)
	students.POST("", audit("create", "student"), d.students.Create)
	students.GET("/:id", d.students.Get)
	students.GET("/:id/form", d.students.Form)
	students.PUT("/:id", audit("update", "student"), d.students.Update)
	students.PATCH("/:id/status", audit("set_status", "student"), d.students.SetStatus)
	students.DELETE("/:id", admin, audit("delete", "student"), d.students.Delete)

	projects := secured.Group("/projects")
	projects.GET("", d.projects.List)
	projects.POST("", audit("create", "project"), d.projects.Create)
	projects.GET("/:id", d.projects.Get)
	projects.PUT("/:id", audit("update", "project"), d.projects.Update)
	projects.DELETE("/:id", admin, audit("delete", "project"), d.projects.Delete)
	projects.POST("/:id/classes", audit("open_class", "project"), d.projects.OpenClass)
	projects.POST("/:id/offerings", audit("reoffer", "project"), d.projects.Reoffer)

	classes := secured.Group("/classes")
	classes.GET("", d.classes.List)
	classes.GET("/:id", d.classes.Get)
	classes.PUT("/:id", audit("update", "class"), d.classes.Update)
	classes.DELETE("/:id", admin, audit("delete", "class"), d.classes.Delete)
	classes.GET("/:id/availability", d.classes.Availability)
	classes.GET("/:id/roster", d.classes.Roster)
	classes.GET("/:id/roster.csv", d.classes.RosterCSV)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", d.enrollments.List)
	enrollments.POST("", audit("enroll", "enrollment"), d.enrollments.Create)
	enrollments.DELETE("/:id", audit("cancel", "enrollment"), d.enrollments.Delete)

	secured.GET("/dashboard", d.dashboard.Summary)

	secured.GET("/reports/annual", d.reports.Annual)
	secured.POST("/reports/annual/archive", audit("archive", "report"), d.reports.Archive)

	users := secured.Group("/users", admin)
	users.GET("", d.users.List)
	users.POST("", audit("create", "user"), d.users.Create)
	users.GET("/:id", d.users.Get)
	users.PUT("/:id", audit("update", "user"), d.users.Update)
	users.PUT("/:id/password", audit("reset_password", "user"), d.users.ResetPassword)
	users.DELETE("/:id", audit("delete", "user"), d.users.Delete)

	return r
}
