package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// CongregationHandler serves congregation provisioning (admin) and the public
// lookup the report form uses to greet members.
type CongregationHandler struct {
	congregations *application.CongregationUseCase
}

// NewCongregationHandler creates a new CongregationHandler.
func NewCongregationHandler(congregations *application.CongregationUseCase) *CongregationHandler {
	return &CongregationHandler{congregations: congregations}
}

// RegisterPublicRoutes registers the public lookup.
func (h *CongregationHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/congregations/:slug", h.Get)
}

// RegisterAdminRoutes registers the admin routes.
func (h *CongregationHandler) RegisterAdminRoutes(admin *echo.Group) {
	admin.POST("/congregations", h.Create)
	admin.GET("/congregations", h.List)
	admin.DELETE("/congregations/:slug", h.Deactivate)
}

// CongregationResponse is the public view of a congregation.
type CongregationResponse struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	IsActive bool   `json:"isActive"`
}

func newCongregationResponse(c *domain.Congregation) CongregationResponse {
	return CongregationResponse{
		ID:       c.ID().String(),
		Slug:     c.Slug().String(),
		Name:     c.Name(),
		Address:  c.Address(),
		IsActive: c.IsActive(),
	}
}

// CongregationStatsResponse adds the admin counters.
type CongregationStatsResponse struct {
	CongregationResponse
	Reports      int        `json:"reports"`
	Members      int        `json:"members"`
	LastReportAt *time.Time `json:"lastReportAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Get handles GET /api/v1/congregations/:slug
func (h *CongregationHandler) Get(c echo.Context) error {
	congregation, err := h.congregations.Get(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newCongregationResponse(congregation))
}

// Create handles POST /api/v1/admin/congregations
func (h *CongregationHandler) Create(c echo.Context) error {
	var req application.CreateCongregationInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	output, err := h.congregations.Create(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusCreated, CongregationResponse{
		ID:       output.CongregationID,
		Slug:     output.Slug,
		Name:     output.Name,
		Address:  req.Address,
		IsActive: true,
	})
}

// List handles GET /api/v1/admin/congregations
func (h *CongregationHandler) List(c echo.Context) error {
	stats, err := h.congregations.List(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]CongregationStatsResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, CongregationStatsResponse{
			CongregationResponse: newCongregationResponse(s.Congregation),
			Reports:              s.Reports,
			Members:              s.Members,
			LastReportAt:         s.LastReportAt,
			CreatedAt:            s.Congregation.CreatedAt(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Deactivate handles DELETE /api/v1/admin/congregations/:slug
// the congregation stops accepting reports, its history is kept.
func (h *CongregationHandler) Deactivate(c echo.Context) error {
	if err := h.congregations.Deactivate(c.Request().Context(), c.Param("slug")); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
