package controllers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	report "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Report"
)

// ReportController serves file exports and monthly aggregates
type ReportController struct {
	reportService *report.Service
	logger        *logger.Logger
}

// NewReportController creates a new report controller
func NewReportController(reportService *report.Service, log *logger.Logger) *ReportController {
	return &ReportController{
		reportService: reportService,
		logger:        log.WithComponent("report_controller"),
	}
}

// RegisterRoutes registers the report routes with Gin
func (c *ReportController) RegisterRoutes(router *gin.Engine) {
	router.GET("/download/excel/:unit_ID", c.DownloadExcel)
	router.GET("/download/pdf/:unit_ID", c.DownloadPDF)
	router.GET("/average/:unit_ID", c.MonthlyAverage)
}

// DownloadExcel streams the current reporting day's data as an xlsx workbook
func (c *ReportController) DownloadExcel(ctx *gin.Context) {
	c.download(ctx, "xlsx", c.reportService.GenerateExcel)
}

// DownloadPDF streams the current reporting day's data as a PDF table
func (c *ReportController) DownloadPDF(ctx *gin.Context) {
	c.download(ctx, "pdf", c.reportService.GeneratePDF)
}

func (c *ReportController) download(ctx *gin.Context, ext string, generate func(context.Context, int) (string, error)) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	path, err := generate(ctx.Request.Context(), unitID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			c.logger.ErrorWithError(err, "failed to remove export file")
		}
	}()

	ctx.FileAttachment(path, fmt.Sprintf("graph_data_unit_%d.%s", unitID, ext))
}

// MonthlyAverage returns average temperature and humidity for the month.
// Defaults to the current month when no query parameters are given.
func (c *ReportController) MonthlyAverage(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	now := time.Now()
	month, err := strconv.Atoi(ctx.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}
	year, err := strconv.Atoi(ctx.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	avg, err := c.reportService.MonthlyAverage(ctx.Request.Context(), unitID, month, year)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, avg)
}
