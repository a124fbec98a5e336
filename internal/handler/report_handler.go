package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/service"
	"github.com/noah-isme/agape-api/pkg/response"
)

type reportService interface {
	AnnualPDF(ctx context.Context, year int) ([]byte, string, error)
	Archive(ctx context.Context, year int) (*dto.ArchivedReport, error)
	OpenArchived(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler serves the annual report.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Annual godoc
// @Summary Annual report
// @Description Statistics, roll calls per class and registration sheets of the active students
// @Tags Reports
// @Produce application/pdf
// @Param year query int false "School year, defaults to the current one"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/annual [get]
func (h *ReportHandler) Annual(c *gin.Context) {
	year, err := queryYear(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	data, filename, err := h.service.AnnualPDF(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", data)
}

// Archive godoc
// @Summary Archive the annual report
// @Description Stores the report and returns a signed download link that expires
// @Tags Reports
// @Produce json
// @Param year query int false "School year, defaults to the current one"
// @Success 201 {object} response.Envelope
// @Router /reports/annual/archive [post]
func (h *ReportHandler) Archive(c *gin.Context) {
	year, err := queryYear(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	archived, err := h.service.Archive(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, archived)
}

// Download godoc
// @Summary Download an archived report
// @Tags Reports
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/files/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.service.OpenArchived(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.FileName))
	c.DataFromReader(http.StatusOK, download.Size, "application/pdf", io.Reader(download.File), nil)
}
