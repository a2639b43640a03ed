package handler

import (
	"net/http"

	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *service.ReportExporter
}

func NewReportHandler(reports *service.ReportExporter) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GET /api/v1/reports/revenue
func (h *ReportHandler) Revenue(c *gin.Context) {
	summary, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "não foi possível gerar o relatório")
		return
	}
	c.JSON(http.StatusOK, summary)
}
