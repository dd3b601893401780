package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// MemberHandler serves the member directory of the panel.
type MemberHandler struct {
	membersUseCase *application.MembersUseCase
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(members *application.MembersUseCase) *MemberHandler {
	return &MemberHandler{membersUseCase: members}
}

// RegisterRoutes registers member routes on the panel group.
func (h *MemberHandler) RegisterRoutes(panel *echo.Group) {
	panel.GET("/members", h.List)
	panel.GET("/members/birthdays", h.Birthdays)
	panel.PUT("/members/contact", h.UpdateContact)
}

// MemberResponse is one directory entry.
type MemberResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Ministry  string              `json:"ministry"`
	BirthDate domain.CalendarDate `json:"birthDate"`
	Phone     string              `json:"phone,omitempty"`
	Email     string              `json:"email,omitempty"`
}

func newMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID().String(),
		Name:      m.Name(),
		Ministry:  m.Ministry(),
		BirthDate: m.BirthDate(),
		Phone:     m.Phone(),
		Email:     m.Email(),
	}
}

// MinistryGroupResponse is one ministry section.
type MinistryGroupResponse struct {
	Ministry string           `json:"ministry"`
	Members  []MemberResponse `json:"members"`
}

// BirthdayResponse is one upcoming birthday.
type BirthdayResponse struct {
	Member    MemberResponse      `json:"member"`
	Date      domain.CalendarDate `json:"date"`
	DaysUntil int                 `json:"daysUntil"`
	Age       int                 `json:"age"`
}

// List handles GET /api/v1/panel/members
func (h *MemberHandler) List(c echo.Context) error {
	groups, err := h.membersUseCase.ListByMinistry(c.Request().Context(), PanelCongregationID(c))
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]MinistryGroupResponse, 0, len(groups))
	for _, g := range groups {
		members := make([]MemberResponse, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, newMemberResponse(m))
		}
		out = append(out, MinistryGroupResponse{Ministry: g.Ministry, Members: members})
	}
	return c.JSON(http.StatusOK, out)
}

// Birthdays handles GET /api/v1/panel/members/birthdays?period=day|week|month
func (h *MemberHandler) Birthdays(c echo.Context) error {
	birthdays, err := h.membersUseCase.UpcomingBirthdays(c.Request().Context(), PanelCongregationID(c), c.QueryParam("period"))
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]BirthdayResponse, 0, len(birthdays))
	for _, b := range birthdays {
		out = append(out, BirthdayResponse{
			Member:    newMemberResponse(b.Member),
			Date:      b.Date,
			DaysUntil: b.DaysUntil,
			Age:       b.Age,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateContact handles PUT /api/v1/panel/members/contact
func (h *MemberHandler) UpdateContact(c echo.Context) error {
	var req application.UpdateContactInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.CongregationID = PanelCongregationID(c)

	member, err := h.membersUseCase.UpdateContact(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newMemberResponse(member))
}
