package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// NotificationHandler serves pastoral notifications: sending and listing from
// the panel, reading from the member side.
type NotificationHandler struct {
	notifications *application.NotificationsUseCase
	congregations *application.CongregationUseCase
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *application.NotificationsUseCase, congregations *application.CongregationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		congregations: congregations,
	}
}

// RegisterPublicRoutes registers the member-facing routes.
func (h *NotificationHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/congregations/:slug/notifications", h.ListForMember)
	g.POST("/congregations/:slug/notifications/:id/read", h.MarkRead)
}

// RegisterRoutes registers the panel routes.
func (h *NotificationHandler) RegisterRoutes(panel *echo.Group) {
	panel.POST("/notifications", h.Send)
	panel.GET("/notifications", h.List)
}

// NotificationResponse is one notification.
type NotificationResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	TargetType  string    `json:"targetType"`
	TargetValue string    `json:"targetValue,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID().String(),
		Title:       n.Title(),
		Message:     n.Message(),
		TargetType:  string(n.TargetType()),
		TargetValue: n.TargetValue(),
		Read:        n.IsRead(),
		CreatedAt:   n.CreatedAt(),
	}
}

func newNotificationList(list []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, newNotificationResponse(n))
	}
	return out
}

// SendNotificationResponse reports the stored notification and its webhook fan-out.
type SendNotificationResponse struct {
	Notification NotificationResponse `json:"notification"`
	Dispatched   int                  `json:"dispatched"`
}

// Send handles POST /api/v1/panel/notifications
func (h *NotificationHandler) Send(c echo.Context) error {
	var req application.SendNotificationInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.CongregationID = PanelCongregationID(c)

	output, err := h.notifications.Send(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, SendNotificationResponse{
		Notification: newNotificationResponse(output.Notification),
		Dispatched:   output.Dispatched,
	})
}

// List handles GET /api/v1/panel/notifications?limit=
func (h *NotificationHandler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a number")
		}
		limit = v
	}

	list, err := h.notifications.List(c.Request().Context(), PanelCongregationID(c), limit)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newNotificationList(list))
}

// ListForMember handles GET /api/v1/congregations/:slug/notifications?member=&ministry=
func (h *NotificationHandler) ListForMember(c echo.Context) error {
	congregation, err := h.congregations.Get(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return mapDomainError(err)
	}

	list, err := h.notifications.ListForMember(c.Request().Context(),
		congregation.ID().String(),
		c.QueryParam("member"),
		c.QueryParam("ministry"),
	)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newNotificationList(list))
}

// MarkRead handles POST /api/v1/congregations/:slug/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	congregation, err := h.congregations.Get(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return mapDomainError(err)
	}

	if err := h.notifications.MarkRead(c.Request().Context(), congregation.ID().String(), c.Param("id")); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
