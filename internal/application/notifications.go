package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// default and max page size for member notification lists
const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// SendNotificationInput is a pastoral message as composed in the panel.
type SendNotificationInput struct {
	CongregationID string `json:"-"`
	Title          string `json:"title" validate:"notblank,max=100"`
	Message        string `json:"message" validate:"notblank,max=2000"`
	TargetType     string `json:"targetType" validate:"omitempty,oneof=todos ministerio miembro"`
	TargetValue    string `json:"targetValue" validate:"max=100"`
}

// SendNotificationOutput contains the stored notification and how many webhooks were queued.
type SendNotificationOutput struct {
	Notification *domain.Notification
	Dispatched   int
}

// NotificationsUseCase handles pastoral notifications and their webhook subscriptions.
type NotificationsUseCase struct {
	notifications domain.NotificationRepository
	subscriptions domain.WebhookSubscriptionRepository
	dispatcher    domain.NotificationService
	logger        *logging.Logger
}

// NewNotificationsUseCase creates a new NotificationsUseCase.
func NewNotificationsUseCase(
	notifications domain.NotificationRepository,
	subscriptions domain.WebhookSubscriptionRepository,
	logger *logging.Logger,
) *NotificationsUseCase {
	return &NotificationsUseCase{
		notifications: notifications,
		subscriptions: subscriptions,
		logger:        logger.WithComponent("notifications"),
	}
}

// WithDispatcher sets the webhook delivery service.
// without one, notifications are only stored.
func (uc *NotificationsUseCase) WithDispatcher(d domain.NotificationService) *NotificationsUseCase {
	uc.dispatcher = d
	return uc
}

// Send stores a notification and hands it to the dispatcher.
// delivery is best-effort, a dispatch failure does not fail the send.
func (uc *NotificationsUseCase) Send(ctx context.Context, input SendNotificationInput) (*SendNotificationOutput, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	congregationID, err := domain.ParseCongregationID(input.CongregationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	target, err := domain.ParseTargetType(input.TargetType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	n, err := domain.NewNotification(congregationID, input.Title, input.Message, target, input.TargetValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := uc.notifications.Save(ctx, n); err != nil {
		uc.logger.Error("notification save failed",
			"congregation_id", congregationID.String(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("saving notification: %w", err)
	}

	dispatched := 0
	if uc.dispatcher != nil {
		dispatched, err = uc.dispatcher.Dispatch(ctx, n)
		if err != nil {
			uc.logger.Warn("notification dispatch failed",
				"notification_id", n.ID().String(),
				"error", err.Error(),
			)
		}
	}

	uc.logger.Info("notification sent",
		"notification_id", n.ID().String(),
		"congregation_id", congregationID.String(),
		"target_type", string(n.TargetType()),
		"dispatched", dispatched,
		"outcome", "accepted",
	)
	return &SendNotificationOutput{Notification: n, Dispatched: dispatched}, nil
}

// List returns the congregation's notifications, newest first.
func (uc *NotificationsUseCase) List(ctx context.Context, congregationID string, limit int) ([]*domain.Notification, error) {
	id, err := domain.ParseCongregationID(congregationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	switch {
	case limit <= 0:
		limit = defaultNotificationLimit
	case limit > maxNotificationLimit:
		limit = maxNotificationLimit
	}
	return uc.notifications.ListByCongregation(ctx, id, limit)
}

// ListForMember returns the notifications a member should see.
func (uc *NotificationsUseCase) ListForMember(ctx context.Context, congregationID, memberName, ministry string) ([]*domain.Notification, error) {
	all, err := uc.List(ctx, congregationID, maxNotificationLimit)
	if err != nil {
		return nil, err
	}
	visible := make([]*domain.Notification, 0, len(all))
	for _, n := range all {
		if n.VisibleTo(memberName, ministry) {
			visible = append(visible, n)
		}
	}
	return visible, nil
}

// MarkRead flags a notification as read. the notification must belong to the congregation.
func (uc *NotificationsUseCase) MarkRead(ctx context.Context, congregationID, notificationID string) error {
	cid, err := domain.ParseCongregationID(congregationID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	nid, err := domain.ParseNotificationID(notificationID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	n, err := uc.notifications.FindByID(ctx, nid)
	if err != nil {
		return err
	}
	if n.CongregationID() != cid {
		return domain.ErrNotFound
	}
	if n.IsRead() {
		return nil
	}
	return uc.notifications.MarkRead(ctx, nid)
}

// SubscribeInput registers a webhook endpoint.
type SubscribeInput struct {
	CongregationID string `json:"-"`
	TargetURL      string `json:"targetUrl" validate:"required,url,max=2048"`
	Secret         string `json:"secret" validate:"omitempty,min=16,max=256"`
}

// ErrInsecureWebhookURL is returned for non-https targets outside localhost.
var ErrInsecureWebhookURL = errors.New("webhook url must use https")

// Subscribe creates a webhook subscription. a secret is generated when none is given.
func (uc *NotificationsUseCase) Subscribe(ctx context.Context, input SubscribeInput) (*domain.WebhookSubscription, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	congregationID, err := domain.ParseCongregationID(input.CongregationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	u, err := url.Parse(input.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "https" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, ErrInsecureWebhookURL)
	}

	secret := input.Secret
	if secret == "" {
		secret, err = generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generating secret: %w", err)
		}
	}

	id, _ := domain.NewWebhookSubscriptionID(uuid.NewString())
	sub, err := domain.NewWebhookSubscription(id, congregationID, input.TargetURL, secret)
	if err != nil {
		return nil, err
	}
	if err := uc.subscriptions.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("saving subscription: %w", err)
	}

	uc.logger.Info("webhook subscription created",
		"subscription_id", id.String(),
		"congregation_id", congregationID.String(),
	)
	return sub, nil
}

// ListSubscriptions returns the congregation's active subscriptions.
func (uc *NotificationsUseCase) ListSubscriptions(ctx context.Context, congregationID string) ([]*domain.WebhookSubscription, error) {
	id, err := domain.ParseCongregationID(congregationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return uc.subscriptions.FindByCongregation(ctx, id)
}

// Unsubscribe deletes a subscription owned by the congregation.
func (uc *NotificationsUseCase) Unsubscribe(ctx context.Context, congregationID, subscriptionID string) error {
	subs, err := uc.ListSubscriptions(ctx, congregationID)
	if err != nil {
		return err
	}
	for _, s := range subs {
		if s.ID().String() == subscriptionID {
			if err := uc.subscriptions.Delete(ctx, s.ID()); err != nil {
				return fmt.Errorf("deleting subscription: %w", err)
			}
			uc.logger.Info("webhook subscription deleted",
				"subscription_id", subscriptionID,
				"congregation_id", congregationID,
			)
			return nil
		}
	}
	return domain.ErrNotFound
}

func generateSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
