package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
)

// ReportHandler serves the downloadable portfolio report.
type ReportHandler struct {
	reportService service.ReportAppService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService service.ReportAppService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Download renders and streams the PDF.
func (h *ReportHandler) Download(c *gin.Context) {
	session := middleware.SessionFrom(c)

	pdf, err := h.reportService.Generate(c.Request.Context(), session)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	filename := fmt.Sprintf("portfolio-report-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
