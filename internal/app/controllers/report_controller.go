package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/export"
	"github.com/yigit/madrasa/internal/pkg/helpers"
	"github.com/yigit/madrasa/internal/pkg/report"
)

// ReportController renders student and group reports
type ReportController struct {
	reportService services.ReportService
	logger        zerolog.Logger
	now           func() time.Time
}

// NewReportController creates a new ReportController
func NewReportController(reportService services.ReportService, logger zerolog.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger, now: time.Now}
}

type buildFunc func(ctx context.Context, id int64, opts services.ReportOptions) (report.Document, error)

func badQuery(ctx *gin.Context, field string, err error) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error()).WithField(field)
	ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}

// reportOptions reads academicYearId, templateId, from, to and remarks.
func reportOptions(ctx *gin.Context) (services.ReportOptions, bool) {
	var opts services.ReportOptions
	var err error
	if opts.AcademicYearID, err = helpers.QueryInt64(ctx, "academicYearId"); err != nil {
		badQuery(ctx, "academicYearId", err)
		return opts, false
	}
	if opts.TemplateID, err = helpers.QueryInt64(ctx, "templateId"); err != nil {
		badQuery(ctx, "templateId", err)
		return opts, false
	}
	if opts.From, err = helpers.QueryDate(ctx, "from"); err != nil {
		badQuery(ctx, "from", err)
		return opts, false
	}
	if opts.To, err = helpers.QueryDate(ctx, "to"); err != nil {
		badQuery(ctx, "to", err)
		return opts, false
	}
	opts.Remarks = ctx.Query("remarks")
	return opts, true
}

// render builds the document and writes it in the requested format. The
// output is buffered so a rendering failure still gets a JSON error.
func (c *ReportController) render(ctx *gin.Context, base string, build buildFunc) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	format := helpers.QueryFormat(ctx, "pdf")
	opts, ok := reportOptions(ctx)
	if !ok {
		return
	}

	doc, err := build(ctx.Request.Context(), id, opts)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	renderer, err := report.RendererFor(format, doc.Subtitle)
	if err != nil {
		badQuery(ctx, "format", err)
		return
	}
	if format == "json" {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(doc, ""))
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, doc); err != nil {
		c.logger.Error().Err(err).Str("report", base).Int64("id", id).Msg("Report rendering failed")
		middleware.HandleAPIError(ctx, fmt.Errorf("error rendering report: %w", err))
		return
	}

	filename := fmt.Sprintf("%s-%d-%s.%s", base, id, c.now().Format("20060102"), renderer.Extension())
	ctx.Header("Content-Disposition", export.ContentDisposition(filename))
	ctx.Data(http.StatusOK, renderer.ContentType(), buf.Bytes())
}

// StudentCard renders the report card of a student
// @Summary Student report card
// @Description Grades, attendance and behaviour for one academic year. Defaults to the active year and the default report card template.
// @Tags reports
// @Produce application/pdf
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param academicYearId query int false "Academic year"
// @Param templateId query int false "Report template"
// @Param remarks query string false "Remarks printed on the card"
// @Param format query string false "Output format" Enums(pdf, xlsx, json) default(pdf)
// @Success 200 {file} file "Report"
// @Failure 400 {object} dto.ErrorResponse "Invalid parameters or template"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /reports/students/{id}/card [get]
func (c *ReportController) StudentCard(ctx *gin.Context) {
	c.render(ctx, "report-card", c.reportService.StudentCard)
}

// StudentAttendance renders the attendance report of a student
// @Summary Student attendance report
// @Tags reports
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Param format query string false "Output format" Enums(pdf, xlsx, json) default(pdf)
// @Success 200 {file} file "Report"
// @Failure 400 {object} dto.ErrorResponse "Invalid period"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /reports/students/{id}/attendance [get]
func (c *ReportController) StudentAttendance(ctx *gin.Context) {
	c.render(ctx, "attendance", c.reportService.StudentAttendance)
}

// GroupAttendance renders the attendance overview of a group
// @Summary Group attendance report
// @Description One row per enrolled student with their attendance percentage.
// @Tags reports
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Student group ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Param format query string false "Output format" Enums(pdf, xlsx, json) default(pdf)
// @Success 200 {file} file "Report"
// @Failure 404 {object} dto.ErrorResponse "Student group not found"
// @Router /reports/groups/{id}/attendance [get]
func (c *ReportController) GroupAttendance(ctx *gin.Context) {
	c.render(ctx, "group-attendance", c.reportService.GroupAttendance)
}
