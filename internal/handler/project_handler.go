package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/pkg/response"
)

type projectService interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, *models.Pagination, error)
	Create(ctx context.Context, req dto.ProjectCreateRequest) (*dto.ProjectOverview, error)
	Update(ctx context.Context, id string, req dto.ProjectUpdateRequest) (*models.Project, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*dto.ProjectOverview, error)
}

type offeringService interface {
	Open(ctx context.Context, projectID string, req dto.ClassInput) (*models.ClassDetail, error)
	Reoffer(ctx context.Context, projectID string, req dto.ReofferRequest) ([]models.Class, error)
}

// ProjectHandler exposes the project catalog.
type ProjectHandler struct {
	projects  projectService
	offerings offeringService
}

// NewProjectHandler constructs ProjectHandler.
func NewProjectHandler(projects projectService, offerings offeringService) *ProjectHandler {
	return &ProjectHandler{projects: projects, offerings: offerings}
}

// List godoc
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param search query string false "Name or location"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	params := parseListParams(c)
	projects, pagination, err := h.projects.List(c.Request.Context(), models.ProjectFilter{
		Search:    params.Search,
		Page:      params.Page,
		PageSize:  params.PageSize,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Create godoc
// @Summary Create a project with its first classes
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.ProjectCreateRequest true "Project and classes"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.ProjectCreateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	overview, err := h.projects.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, overview)
}

// Get godoc
// @Summary Project overview
// @Description The project's classes with occupancy, newest school year first
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	overview, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Update godoc
// @Summary Update a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.ProjectUpdateRequest true "Project fields"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	var req dto.ProjectUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	project, err := h.projects.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Delete godoc
// @Summary Delete a project
// @Description Deletes the enrollments of every class, the classes and the project in one transaction
// @Tags Projects
// @Param id path string true "Project ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// OpenClass godoc
// @Summary Open a class for a school year
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.ClassInput true "Class"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /projects/{id}/classes [post]
func (h *ProjectHandler) OpenClass(c *gin.Context) {
	var req dto.ClassInput
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	class, err := h.offerings.Open(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Reoffer godoc
// @Summary Offer a year's classes again
// @Description Copies every class of from_year into to_year without enrollments
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.ReofferRequest true "Years"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id}/offerings [post]
func (h *ProjectHandler) Reoffer(c *gin.Context) {
	var req dto.ReofferRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	classes, err := h.offerings.Reoffer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, classes, nil)
}
