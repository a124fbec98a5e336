package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ClassDetail, error)
	Update(ctx context.Context, id string, req dto.ClassUpdateRequest) (*models.ClassDetail, error)
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, classID string) (*dto.ClassRoster, error)
	RosterCSV(ctx context.Context, classID string) ([]byte, string, error)
}

type availabilityService interface {
	Availability(ctx context.Context, classID string) (*models.ClassAvailability, error)
}

// ClassHandler exposes yearly classes, their occupancy and roll calls.
type ClassHandler struct {
	classes      classService
	availability availabilityService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(classes classService, availability availabilityService) *ClassHandler {
	return &ClassHandler{classes: classes, availability: availability}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param project_id query string false "Project"
// @Param school_year query int false "School year"
// @Param search query string false "Class or project name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	year, err := queryYear(c, "school_year")
	if err != nil {
		response.Error(c, err)
		return
	}
	params := parseListParams(c)
	filter := models.ClassFilter{
		ProjectID: c.Query("project_id"),
		Search:    params.Search,
		Page:      params.Page,
		PageSize:  params.PageSize,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	}
	if year != 0 {
		filter.SchoolYear = &year
	}
	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Update godoc
// @Summary Update class
// @Description Capacity cannot drop below the current number of enrollments
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ClassUpdateRequest true "Class"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req dto.ClassUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	class, err := h.classes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete class
// @Description Deletes the class's enrollments and then the class
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Class occupancy
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/availability [get]
func (h *ClassHandler) Availability(c *gin.Context) {
	availability, err := h.availability.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Roster godoc
// @Summary Class roll call
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	roster, err := h.classes.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// RosterCSV godoc
// @Summary Class roll call as CSV
// @Tags Classes
// @Produce text/csv
// @Param id path string true "Class ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/roster.csv [get]
func (h *ClassHandler) RosterCSV(c *gin.Context) {
	data, filename, err := h.classes.RosterCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "text/csv; charset=utf-8", data)
}
