package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/pkg/response"
)

type studentService interface {
	Schema() *forms.Schema
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Register(ctx context.Context, req dto.StudentRequest) (*models.Student, error)
	Update(ctx context.Context, id string, req dto.StudentRequest) (*models.Student, error)
	SetStatus(ctx context.Context, id string, req dto.StudentStatusRequest) (*models.Student, error)
	Delete(ctx context.Context, id string) error
	Profile(ctx context.Context, id string) (*dto.StudentProfile, error)
	Form(ctx context.Context, id string) (*dto.StudentForm, error)
}

// StudentHandler exposes registration, search and profile endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(service studentService) *StudentHandler {
	return &StudentHandler{service: service}
}

// IntakeSchema godoc
// @Summary Intake form schema
// @Description Categories, fields, kinds, options and date bounds of the student intake form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/student-intake [get]
func (h *StudentHandler) IntakeSchema(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Schema(), nil)
}

// List godoc
// @Summary Search students
// @Tags Students
// @Produce json
// @Param search query string false "Name or CPF"
// @Param active query bool false "Active filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	params := parseListParams(c)
	filter := models.StudentFilter{
		Search:    params.Search,
		Active:    queryBool(c, "active"),
		Page:      params.Page,
		PageSize:  params.PageSize,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	}
	students, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Create godoc
// @Summary Register a student
// @Description Composes the intake answers against the form schema, checks required fields and refuses an already registered student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.StudentRequest true "Intake answers"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.StudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Student profile
// @Description Identity, intake answers and enrollment history
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Form godoc
// @Summary Student edit form
// @Description The intake schema with the stored answers restored as form values
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/form [get]
func (h *StudentHandler) Form(c *gin.Context) {
	form, err := h.service.Form(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// Update godoc
// @Summary Replace a student's intake document
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.StudentRequest true "Intake answers"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.StudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SetStatus godoc
// @Summary Activate or deactivate a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.StudentStatusRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [patch]
func (h *StudentHandler) SetStatus(c *gin.Context) {
	var req dto.StudentStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Purge a student
// @Description Deletes the student's enrollments and then the student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
