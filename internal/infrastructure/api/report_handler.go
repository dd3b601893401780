package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// ReportHandler serves the public member-facing endpoints: report submission
// and the week catalog.
type ReportHandler struct {
	submitUseCase    *application.SubmitReportUseCase
	reportingUseCase *application.ReportingUseCase
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(submit *application.SubmitReportUseCase, reporting *application.ReportingUseCase) *ReportHandler {
	return &ReportHandler{
		submitUseCase:    submit,
		reportingUseCase: reporting,
	}
}

// RegisterRoutes registers the public routes on the given group.
func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	if h.submitUseCase != nil {
		g.POST("/reports", h.Submit)
	}
	g.GET("/weeks", h.Weeks)
	g.GET("/weeks/current", h.CurrentWeek)
}

// SubmitReportResponse is the response for an accepted report.
type SubmitReportResponse struct {
	ReportID       string `json:"reportId"`
	CongregationID string `json:"congregationId"`
	Date           string `json:"date"`
	WeekStart      string `json:"weekStart"`
	Queued         bool   `json:"queued"`
}

// Submit handles POST /api/v1/reports
//
// @Summary Submit a weekly ministry report
// @Tags reports
// @Accept json
// @Produce json
// @Param body body application.SubmitReportInput true "Report"
// @Success 201 {object} SubmitReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/reports [post]
func (h *ReportHandler) Submit(c echo.Context) error {
	var req application.SubmitReportInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	output, err := h.submitUseCase.Execute(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}

	status := http.StatusCreated
	if output.Queued {
		status = http.StatusAccepted
	}
	return c.JSON(status, SubmitReportResponse{
		ReportID:       output.ReportID,
		CongregationID: output.CongregationID,
		Date:           output.Date,
		WeekStart:      output.WeekStart,
		Queued:         output.Queued,
	})
}

// weeksQuery selects a month of the catalog. zero values mean the current month.
type weeksQuery struct {
	Year  int `query:"year"`
	Month int `query:"month"`
}

// WeeksResponse lists the weeks overlapping a month.
type WeeksResponse struct {
	Year  int                     `json:"year"`
	Month int                     `json:"month"`
	Weeks []domain.WeekDescriptor `json:"weeks"`
}

// Weeks handles GET /api/v1/weeks?year=&month=
func (h *ReportHandler) Weeks(c echo.Context) error {
	var q weeksQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "year and month must be numbers")
	}
	if q.Year == 0 && q.Month == 0 {
		today := h.reportingUseCase.Today()
		q.Year, q.Month = today.Year(), int(today.Month())
	}

	weeks, err := h.reportingUseCase.GetWeekCatalog(q.Year, q.Month)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, WeeksResponse{Year: q.Year, Month: q.Month, Weeks: weeks})
}

// CurrentWeek handles GET /api/v1/weeks/current
func (h *ReportHandler) CurrentWeek(c echo.Context) error {
	return c.JSON(http.StatusOK, h.reportingUseCase.CurrentWeek())
}
