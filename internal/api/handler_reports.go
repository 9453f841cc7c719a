package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/report"
	"uptime-report-backend/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Welcome handles GET /api/.
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Store Monitoring API. Use /trigger_report to start a report."})
}

// TriggerReport handles POST /api/trigger_report.
func (h *Handler) TriggerReport(c *gin.Context) {
	rep, err := h.reports.Trigger(c.Request.Context())
	if err != nil {
		if errors.Is(err, report.ErrQueueFull) && rep != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"report_id": rep.ReportID,
				"status":    rep.Status,
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"report_id": rep.ReportID,
		"status":    rep.Status,
		"message":   "Report generation started in background.",
	})
}

// GetReport handles GET /api/get_report/:report_id. Completed reports are
// served as CSV, or as XLSX with ?format=xlsx.
func (h *Handler) GetReport(c *gin.Context) {
	reportID := c.Param("report_id")

	rep, err := h.store.GetReport(c.Request.Context(), reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report id not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	switch rep.Status {
	case model.ReportQueued, model.ReportRunning:
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, gin.H{
			"status":  rep.Status,
			"message": "Report is still being generated. Please try again later.",
		})
	case model.ReportFailed:
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": rep.Status,
			"error":  fmt.Sprintf("report generation failed: %s", rep.ErrorMessage),
		})
	case model.ReportCompleted:
		h.serveReport(c, rep)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected report status"})
	}
}

func (h *Handler) serveReport(c *gin.Context, rep *model.Report) {
	if rep.ReportFilePath == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report file not found"})
		return
	}

	f, err := os.Open(rep.ReportFilePath)
	if err != nil {
		log.Printf("Report %s: cannot open %s: %v", rep.ReportID, rep.ReportFilePath, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report file not found"})
		return
	}
	defer f.Close()

	if c.Query("format") != "xlsx" {
		size := int64(-1)
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report_%s.csv", rep.ReportID))
		c.DataFromReader(http.StatusOK, size, "text/csv", f, nil)
		return
	}

	rows, err := report.ReadCSV(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := report.XLSX(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report_%s.xlsx", rep.ReportID))
	c.Data(http.StatusOK, xlsxContentType, data)
}
