package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/middleware"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/internal/service"
	"github.com/noah-isme/agape-api/pkg/config"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, &payload)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

type fakeEnrollmentSrv struct {
	err  error
	last dto.EnrollmentRequest
}

func (f *fakeEnrollmentSrv) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	return []models.EnrollmentDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeEnrollmentSrv) Enroll(ctx context.Context, req dto.EnrollmentRequest) (*models.Enrollment, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Enrollment{ID: "e1", StudentID: req.StudentID, ClassID: req.ClassID}, nil
}

func (f *fakeEnrollmentSrv) Cancel(ctx context.Context, id string) error { return f.err }

func TestEnrollmentCreateMapsOutcomes(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"created":   {status: http.StatusCreated},
		"duplicate": {err: appErrors.ErrAlreadyEnrolledInProject, status: http.StatusConflict, code: "ALREADY_ENROLLED_IN_PROJECT"},
		"full":      {err: appErrors.ErrClassFull, status: http.StatusConflict, code: "CLASS_FULL"},
		"inactive":  {err: appErrors.ErrPreconditionFailed, status: http.StatusPreconditionFailed, code: "PRECONDITION_FAILED"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := &fakeEnrollmentSrv{err: tc.err}
			c, rec := newContext(http.MethodPost, "/enrollments", dto.EnrollmentRequest{StudentID: "s1", ClassID: "c1"})

			NewEnrollmentHandler(srv).Create(c)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "s1", srv.last.StudentID)
			if tc.code != "" {
				assert.Equal(t, tc.code, decode(t, rec).Error.Code)
			}
		})
	}
}

func TestEnrollmentListRejectsBadYear(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/enrollments?school_year=abc", nil)
	NewEnrollmentHandler(&fakeEnrollmentSrv{}).List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"school_year"}, decode(t, rec).Error.Fields)
}

type fakeStudentSrv struct {
	registerErr error
	filter      models.StudentFilter
}

func (f *fakeStudentSrv) Schema() *forms.Schema {
	return &forms.Schema{Categories: []forms.Category{{Name: "identificacao", Title: "Identificação"}}}
}

func (f *fakeStudentSrv) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	f.filter = filter
	return []models.Student{{ID: "s1", FullName: "Ana"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeStudentSrv) Register(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.Student{ID: "s1", FullName: "Ana", Active: true}, nil
}

func (f *fakeStudentSrv) Update(ctx context.Context, id string, req dto.StudentRequest) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentSrv) SetStatus(ctx context.Context, id string, req dto.StudentStatusRequest) (*models.Student, error) {
	return &models.Student{ID: id, Active: *req.Active}, nil
}

func (f *fakeStudentSrv) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeStudentSrv) Profile(ctx context.Context, id string) (*dto.StudentProfile, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeStudentSrv) Form(ctx context.Context, id string) (*dto.StudentForm, error) {
	return &dto.StudentForm{StudentID: id}, nil
}

func TestStudentCreateReportsEveryMissingLabel(t *testing.T) {
	srv := &fakeStudentSrv{registerErr: appErrors.Validation("Por favor, preencha os seguintes campos obrigatórios", []string{"Nome Completo", "Data de Nascimento"})}
	c, rec := newContext(http.MethodPost, "/students", dto.StudentRequest{Answers: map[string]interface{}{"cpf": "1"}})

	NewStudentHandler(srv).Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, []string{"Nome Completo", "Data de Nascimento"}, env.Error.Fields)
	assert.Contains(t, env.Error.Message, "Nome Completo, Data de Nascimento")
}

func TestStudentCreateRejectsMalformedJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	NewStudentHandler(&fakeStudentSrv{}).Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentListPassesFilters(t *testing.T) {
	srv := &fakeStudentSrv{}
	c, rec := newContext(http.MethodGet, "/students?search=ana&active=true&page=2&page_size=5", nil)

	NewStudentHandler(srv).List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", srv.filter.Search)
	require.NotNil(t, srv.filter.Active)
	assert.True(t, *srv.filter.Active)
	assert.Equal(t, 2, decode(t, rec).Pagination.Page)
}

func TestStudentProfileNotFound(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	NewStudentHandler(&fakeStudentSrv{}).Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntakeSchemaEndpoint(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/forms/student-intake", nil)
	NewStudentHandler(&fakeStudentSrv{}).IntakeSchema(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"title":"Identificação"`)
}

type fakeDashboardSrv struct {
	hit  bool
	year int
}

func (f *fakeDashboardSrv) Summary(ctx context.Context, year int) (*dto.DashboardSummary, bool, error) {
	f.year = year
	return &dto.DashboardSummary{Year: 2025}, f.hit, nil
}

func TestDashboardSummaryCarriesCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{hit: true}
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/dashboard", NewDashboardHandler(srv).Summary)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard?year=2025", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2025, srv.year)
	assert.Equal(t, true, decode(t, rec).Meta["cache_hit"])
}

type fakeAuthSrv struct {
	loginErr error
}

func (f *fakeAuthSrv) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "token-1", ExpiresIn: 3600, User: models.UserInfo{ID: "u1", Email: req.Email}}, nil
}

func (f *fakeAuthSrv) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID}, nil
}

func (f *fakeAuthSrv) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func testSessions() *middleware.SessionStore {
	return middleware.NewSessionStore(config.SessionConfig{CookieName: "agape_test", Secret: "0123456789abcdef0123456789abcdef", MaxAge: time.Hour})
}

func TestLoginStoresSessionCookie(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "admin@agape.org", Password: "admin123"})

	NewAuthHandler(&fakeAuthSrv{}, testSessions(), nil).Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"access_token":"token-1"`)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "agape_test", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginFailureSetsNoCookie(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "x@agape.org", Password: "bad"})

	NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials}, testSessions(), nil).Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestMeRequiresPrincipal(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/auth/me", nil)
	NewAuthHandler(&fakeAuthSrv{}, nil, nil).Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	NewAuthHandler(&fakeAuthSrv{}, nil, nil).Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeUserSrv struct {
	deleted, actor string
}

func (f *fakeUserSrv) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (f *fakeUserSrv) Get(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Create(ctx context.Context, req dto.UserCreateRequest) (*models.User, error) {
	return nil, appErrors.ErrEmailTaken
}

func (f *fakeUserSrv) Update(ctx context.Context, id string, req dto.UserUpdateRequest) (*models.User, error) {
	return &models.User{ID: id, Name: req.Name}, nil
}

func (f *fakeUserSrv) ResetPassword(ctx context.Context, id string, req dto.ResetPasswordRequest) error {
	return nil
}

func (f *fakeUserSrv) Delete(ctx context.Context, id, actorID string) error {
	f.deleted, f.actor = id, actorID
	return nil
}

func TestUserDeletePassesActor(t *testing.T) {
	srv := &fakeUserSrv{}
	c, rec := newContext(http.MethodDelete, "/users/u9", nil)
	c.Params = gin.Params{{Key: "id", Value: "u9"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", IsAdmin: true})

	NewUserHandler(srv).Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "u9", srv.deleted)
	assert.Equal(t, "u1", srv.actor)
	_ = rec
}

func TestUserCreateEmailTaken(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/users", dto.UserCreateRequest{Name: "Ana", Email: "a@agape.org", Password: "segredo1"})
	NewUserHandler(&fakeUserSrv{}).Create(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", decode(t, rec).Error.Code)
}

type fakeClassSrv struct{}

func (fakeClassSrv) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (fakeClassSrv) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	return &models.ClassDetail{}, nil
}

func (fakeClassSrv) Update(ctx context.Context, id string, req dto.ClassUpdateRequest) (*models.ClassDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity below current enrollments")
}

func (fakeClassSrv) Delete(ctx context.Context, id string) error { return nil }

func (fakeClassSrv) Roster(ctx context.Context, classID string) (*dto.ClassRoster, error) {
	return &dto.ClassRoster{}, nil
}

func (fakeClassSrv) RosterCSV(ctx context.Context, classID string) ([]byte, string, error) {
	return []byte("\ufeffAluno;Status\nAna;Ativo\n"), "chamada_turma-a_2025.csv", nil
}

type fakeAvailabilitySrv struct{}

func (fakeAvailabilitySrv) Availability(ctx context.Context, classID string) (*models.ClassAvailability, error) {
	return &models.ClassAvailability{ClassID: classID, Total: 15, Enrolled: 15, Full: true}, nil
}

func TestClassRosterCSVAttachment(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/classes/c1/roster.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	NewClassHandler(fakeClassSrv{}, fakeAvailabilitySrv{}).RosterCSV(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="chamada_turma-a_2025.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeffAluno;Status"))
}

func TestClassAvailabilityAndShrink(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/classes/c1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	NewClassHandler(fakeClassSrv{}, fakeAvailabilitySrv{}).Availability(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"full":true`)

	c, rec = newContext(http.MethodPut, "/classes/c1", dto.ClassUpdateRequest{Name: "Turma A", SchoolYear: 2025, Schedule: "Ter", TotalSlots: 1})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	NewClassHandler(fakeClassSrv{}, fakeAvailabilitySrv{}).Update(c)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

type fakeReportSrv struct {
	path string
}

func (f *fakeReportSrv) AnnualPDF(ctx context.Context, year int) ([]byte, string, error) {
	return []byte("%PDF-1.3 test"), "Relatorio_Agape_2025.pdf", nil
}

func (f *fakeReportSrv) Archive(ctx context.Context, year int) (*dto.ArchivedReport, error) {
	return &dto.ArchivedReport{FileName: "Relatorio_Agape_2025.pdf", URL: "/api/v1/reports/files/tok", Token: "tok"}, nil
}

func (f *fakeReportSrv) OpenArchived(ctx context.Context, token string) (*service.ReportDownload, error) {
	if token != "tok" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	info, _ := file.Stat()
	return &service.ReportDownload{File: file, Size: info.Size(), FileName: "Relatorio_Agape_2025.pdf"}, nil
}

func TestReportEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 archived"), 0o600))
	handler := NewReportHandler(&fakeReportSrv{path: path})

	c, rec := newContext(http.MethodGet, "/reports/annual?year=2025", nil)
	handler.Annual(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Relatorio_Agape_2025.pdf")

	c, rec = newContext(http.MethodPost, "/reports/annual/archive?year=2025", nil)
	handler.Archive(c)
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newContext(http.MethodGet, "/reports/files/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.Download(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.3 archived", rec.Body.String())

	c, rec = newContext(http.MethodGet, "/reports/files/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error { return errors.New("connection refused") }

func TestReadyProbe(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, failingPinger{}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c, rec = newContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, nil).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}
