package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// PanelHandler serves the pastoral panel: session management and every
// reporting query, always scoped to the session's congregation.
type PanelHandler struct {
	authUseCase      *application.PanelAuthUseCase
	reportingUseCase *application.ReportingUseCase
}

// NewPanelHandler creates a new PanelHandler.
func NewPanelHandler(auth *application.PanelAuthUseCase, reporting *application.ReportingUseCase) *PanelHandler {
	return &PanelHandler{
		authUseCase:      auth,
		reportingUseCase: reporting,
	}
}

// RegisterPublicRoutes registers login, the only panel route without a session.
func (h *PanelHandler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/panel/login", h.Login)
}

// RegisterRoutes registers the session-protected panel routes.
func (h *PanelHandler) RegisterRoutes(panel *echo.Group) {
	panel.POST("/password", h.ChangePassword)
	panel.GET("/totals", h.Totals)
	panel.GET("/rankings", h.Rankings)
	panel.GET("/leaderboard", h.Leaderboard)
	panel.GET("/weeks/reported", h.ReportedWeeks)
	panel.GET("/reports", h.Reports)
	panel.GET("/reports/export", h.Export)
}

// --- Request/Response DTOs ---

// selectionQuery is the shared filter of every reporting query.
type selectionQuery struct {
	Week     string `query:"week"`
	Year     int    `query:"year"`
	Month    int    `query:"month"`
	Ministry string `query:"ministry"`
	Text     string `query:"q"`
	Undated  string `query:"undated"`
	Metric   string `query:"metric"`
	Limit    int    `query:"limit"`
}

func (q selectionQuery) selection() application.SelectionInput {
	return application.SelectionInput{
		Week:     q.Week,
		Year:     q.Year,
		Month:    q.Month,
		Ministry: q.Ministry,
		Text:     q.Text,
		Undated:  q.Undated,
	}
}

func bindSelection(c echo.Context) (selectionQuery, error) {
	var q selectionQuery
	if err := c.Bind(&q); err != nil {
		return q, echo.NewHTTPError(http.StatusBadRequest, "year, month and limit must be numbers")
	}
	return q, nil
}

// LoginResponse carries a panel session token.
type LoginResponse struct {
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CongregationID string    `json:"congregationId"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
}

// TotalsResponse is the aggregate of one selection.
type TotalsResponse struct {
	Window        string            `json:"window"`
	Reports       int               `json:"reports"`
	Chapters      int               `json:"chapters"`
	Prayer        domain.PrayerTime `json:"prayer"`
	PrayerLabel   string            `json:"prayerLabel"`
	PrayerMinutes int               `json:"prayerMinutes"`
	FastingDays   int               `json:"fastingDays"`
	SoulsReached  int               `json:"soulsReached"`
	FamilyAltars  int               `json:"familyAltars"`
}

func newTotalsResponse(window string, t domain.Totals) TotalsResponse {
	prayer := t.Prayer()
	return TotalsResponse{
		Window:        window,
		Reports:       t.Reports,
		Chapters:      t.Chapters,
		Prayer:        prayer,
		PrayerLabel:   prayer.String(),
		PrayerMinutes: t.TotalPrayerMinutes(),
		FastingDays:   t.FastingDays,
		SoulsReached:  t.SoulsReached,
		FamilyAltars:  t.FamilyAltars,
	}
}

// RankEntryResponse is one ranked member.
type RankEntryResponse struct {
	Position   int    `json:"position"`
	MemberName string `json:"memberName"`
	Value      int    `json:"value"`
	Reports    int    `json:"reports"`
}

func newRankEntries(entries []domain.RankEntry) []RankEntryResponse {
	out := make([]RankEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RankEntryResponse{
			Position:   e.Position,
			MemberName: e.MemberName,
			Value:      e.Value,
			Reports:    e.Reports,
		})
	}
	return out
}

// RankingResponse is one metric's ranking.
type RankingResponse struct {
	Metric  string              `json:"metric"`
	Label   string              `json:"label"`
	Window  string              `json:"window"`
	Entries []RankEntryResponse `json:"entries"`
}

// LeaderboardResponse holds the current month's rankings of every metric.
type LeaderboardResponse struct {
	Month     string                         `json:"month"`
	FromCache bool                           `json:"fromCache"`
	Rankings  map[string][]RankEntryResponse `json:"rankings"`
}

// WeekSummaryResponse is one week that has reports.
type WeekSummaryResponse struct {
	Start  domain.CalendarDate `json:"start"`
	End    domain.CalendarDate `json:"end"`
	Totals TotalsResponse      `json:"totals"`
}

// ReportResponse is one canonical report.
type ReportResponse struct {
	ID            string              `json:"id"`
	MemberName    string              `json:"memberName"`
	Ministry      string              `json:"ministry"`
	Date          domain.CalendarDate `json:"date"`
	WeekStart     domain.CalendarDate `json:"weekStart"`
	Chapters      int                 `json:"chapters"`
	PrayerHours   int                 `json:"prayerHours"`
	PrayerMinutes int                 `json:"prayerMinutes"`
	FastingDays   int                 `json:"fastingDays"`
	SoulsReached  int                 `json:"soulsReached"`
	FamilyAltar   bool                `json:"familyAltar"`
}

func newReportResponse(r domain.Report) ReportResponse {
	m := r.Metrics()
	return ReportResponse{
		ID:            r.ID(),
		MemberName:    r.MemberName(),
		Ministry:      r.Ministry(),
		Date:          r.Date(),
		WeekStart:     r.WeekStart(),
		Chapters:      m.Chapters,
		PrayerHours:   m.PrayerHours,
		PrayerMinutes: m.PrayerMinutes,
		FastingDays:   m.FastingDays,
		SoulsReached:  m.SoulsReached,
		FamilyAltar:   m.FamilyAltar,
	}
}

// ReportsResponse lists reports of a selection.
type ReportsResponse struct {
	Reports []ReportResponse `json:"reports"`
	Count   int              `json:"count"`
}

// --- Handlers ---

// Login handles POST /api/v1/panel/login
func (h *PanelHandler) Login(c echo.Context) error {
	var req application.LoginInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	output, err := h.authUseCase.Login(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:          output.Token,
		ExpiresAt:      output.ExpiresAt,
		CongregationID: output.CongregationID,
		Slug:           output.Slug,
		Name:           output.Name,
	})
}

// ChangePassword handles POST /api/v1/panel/password
func (h *PanelHandler) ChangePassword(c echo.Context) error {
	var req application.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.CongregationID = PanelCongregationID(c)

	if err := h.authUseCase.ChangePassword(c.Request().Context(), req); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Totals handles GET /api/v1/panel/totals
func (h *PanelHandler) Totals(c echo.Context) error {
	q, err := bindSelection(c)
	if err != nil {
		return err
	}

	output, err := h.reportingUseCase.GetTotals(c.Request().Context(), application.TotalsInput{
		CongregationID: PanelCongregationID(c),
		Selection:      q.selection(),
	})
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newTotalsResponse(output.Window, output.Totals))
}

// Rankings handles GET /api/v1/panel/rankings?metric=
func (h *PanelHandler) Rankings(c echo.Context) error {
	q, err := bindSelection(c)
	if err != nil {
		return err
	}

	output, err := h.reportingUseCase.GetRanking(c.Request().Context(), application.RankingInput{
		CongregationID: PanelCongregationID(c),
		Metric:         q.Metric,
		Selection:      q.selection(),
		Limit:          q.Limit,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, RankingResponse{
		Metric:  output.Metric.String(),
		Label:   output.Metric.Label(),
		Window:  output.Window,
		Entries: newRankEntries(output.Entries),
	})
}

// Leaderboard handles GET /api/v1/panel/leaderboard
func (h *PanelHandler) Leaderboard(c echo.Context) error {
	q, err := bindSelection(c)
	if err != nil {
		return err
	}

	output, err := h.reportingUseCase.GetLeaderboard(c.Request().Context(), application.LeaderboardInput{
		CongregationID: PanelCongregationID(c),
		Limit:          q.Limit,
	})
	if err != nil {
		return mapDomainError(err)
	}

	rankings := make(map[string][]RankEntryResponse, len(output.Rankings))
	for metric, entries := range output.Rankings {
		rankings[metric.String()] = newRankEntries(entries)
	}
	return c.JSON(http.StatusOK, LeaderboardResponse{
		Month:     output.Month.String(),
		FromCache: output.FromCache,
		Rankings:  rankings,
	})
}

// ReportedWeeks handles GET /api/v1/panel/weeks/reported
func (h *PanelHandler) ReportedWeeks(c echo.Context) error {
	q, err := bindSelection(c)
	if err != nil {
		return err
	}

	weeks, err := h.reportingUseCase.ListReportedWeeks(c.Request().Context(), application.ReportedWeeksInput{
		CongregationID: PanelCongregationID(c),
		Selection:      q.selection(),
	})
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]WeekSummaryResponse, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, WeekSummaryResponse{
			Start:  w.Start,
			End:    w.End,
			Totals: newTotalsResponse(domain.WeekWindow(w.Start).String(), w.Totals),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Reports handles GET /api/v1/panel/reports
func (h *PanelHandler) Reports(c echo.Context) error {
	q, err := bindSelection(c)
	if err != nil {
		return err
	}

	reports, err := h.reportingUseCase.ListReports(c.Request().Context(), application.ListReportsInput{
		CongregationID: PanelCongregationID(c),
		Selection:      q.selection(),
	})
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, newReportResponse(r))
	}
	return c.JSON(http.StatusOK, ReportsResponse{Reports: out, Count: len(out)})
}

// Export handles GET /api/v1/panel/reports/export
// the body is built in memory so a failed fetch still answers with a json error.
func (h *PanelHandler) Export(c echo.Context) error {
	q, err := bindSelection(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	_, err = h.reportingUseCase.ExportCSV(c.Request().Context(), application.ListReportsInput{
		CongregationID: PanelCongregationID(c),
		Selection:      q.selection(),
	}, &buf)
	if err != nil {
		return mapDomainError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", exportFilename(PanelSlug(c), q)))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// exportFilename names the file after the congregation and window.
func exportFilename(slug string, q selectionQuery) string {
	parts := []string{"reportes"}
	if slug != "" {
		parts = append(parts, slug)
	}
	switch {
	case q.Week != "":
		parts = append(parts, q.Week)
	case q.Year != 0:
		parts = append(parts, fmt.Sprintf("%04d-%02d", q.Year, q.Month))
	}
	return strings.Join(parts, "-") + ".csv"
}
