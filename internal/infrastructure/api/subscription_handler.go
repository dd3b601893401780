package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// SubscriptionHandler handles webhook subscription HTTP endpoints.
// every route is scoped to the panel session's congregation.
type SubscriptionHandler struct {
	notifications *application.NotificationsUseCase
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(notifications *application.NotificationsUseCase) *SubscriptionHandler {
	return &SubscriptionHandler{notifications: notifications}
}

// RegisterRoutes registers subscription routes on the panel group.
func (h *SubscriptionHandler) RegisterRoutes(panel *echo.Group) {
	subs := panel.Group("/subscriptions")
	subs.POST("", h.Create)
	subs.GET("", h.List)
	subs.DELETE("/:id", h.Delete)
}

// --- Request/Response DTOs ---

// subscriptionResponse is the API representation of a webhook subscription.
type subscriptionResponse struct {
	ID        string    `json:"id"`
	TargetURL string    `json:"targetUrl"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Secret is only returned once, on creation.
	Secret string `json:"secret,omitempty"`
}

func newSubscriptionResponse(sub *domain.WebhookSubscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        sub.ID().String(),
		TargetURL: sub.TargetURL(),
		IsActive:  sub.IsActive(),
		CreatedAt: sub.CreatedAt(),
		UpdatedAt: sub.UpdatedAt(),
	}
}

// listSubscriptionsResponse is the response for listing subscriptions.
type listSubscriptionsResponse struct {
	Subscriptions []subscriptionResponse `json:"subscriptions"`
	Count         int                    `json:"count"`
}

// --- Handlers ---

// Create creates a new webhook subscription.
// @Summary Create a webhook subscription
// @Description Receive every notification of the congregation as a signed POST.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body application.SubscribeInput true "Subscription details"
// @Success 201 {object} subscriptionResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/v1/panel/subscriptions [post]
// @Security BearerAuth
func (h *SubscriptionHandler) Create(c echo.Context) error {
	var req application.SubscribeInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.CongregationID = PanelCongregationID(c)

	sub, err := h.notifications.Subscribe(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}

	resp := newSubscriptionResponse(sub)
	resp.Secret = sub.Secret()
	return c.JSON(http.StatusCreated, resp)
}

// List returns all subscriptions of the congregation.
// @Summary List webhook subscriptions
// @Tags subscriptions
// @Produce json
// @Success 200 {object} listSubscriptionsResponse
// @Router /api/v1/panel/subscriptions [get]
// @Security BearerAuth
func (h *SubscriptionHandler) List(c echo.Context) error {
	subs, err := h.notifications.ListSubscriptions(c.Request().Context(), PanelCongregationID(c))
	if err != nil {
		return mapDomainError(err)
	}

	response := listSubscriptionsResponse{
		Subscriptions: make([]subscriptionResponse, 0, len(subs)),
		Count:         len(subs),
	}
	for _, sub := range subs {
		response.Subscriptions = append(response.Subscriptions, newSubscriptionResponse(sub))
	}
	return c.JSON(http.StatusOK, response)
}

// Delete removes a subscription by ID.
// @Summary Delete a webhook subscription
// @Tags subscriptions
// @Param id path string true "Subscription ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse "Subscription not found"
// @Router /api/v1/panel/subscriptions/{id} [delete]
// @Security BearerAuth
func (h *SubscriptionHandler) Delete(c echo.Context) error {
	if err := h.notifications.Unsubscribe(c.Request().Context(), PanelCongregationID(c), c.Param("id")); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
