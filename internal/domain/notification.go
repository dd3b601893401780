package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TargetType selects who a pastoral notification is addressed to.
type TargetType string

const (
	TargetEveryone TargetType = "todos"
	TargetMinistry TargetType = "ministerio"
	TargetMember   TargetType = "miembro"
)

var (
	ErrNotificationTitleEmpty   = errors.New("notification title cannot be empty")
	ErrNotificationTitleTooLong = errors.New("notification title must be at most 100 characters")
	ErrNotificationMessageEmpty = errors.New("notification message cannot be empty")
	ErrNotificationTarget       = errors.New("notification target is invalid")
)

// ParseTargetType validates a target type string.
func ParseTargetType(s string) (TargetType, error) {
	switch t := TargetType(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetEveryone, TargetMinistry, TargetMember:
		return t, nil
	case "":
		return TargetEveryone, nil
	default:
		return "", ErrNotificationTarget
	}
}

// Notification is a message from pastoral staff to members.
type Notification struct {
	id             NotificationID
	congregationID CongregationID
	title          string
	message        string
	targetType     TargetType
	targetValue    string
	read           bool
	createdAt      time.Time
}

// NewNotification creates an unread notification.
// ministry and member targets need a target value, "todos" ignores it.
func NewNotification(congregationID CongregationID, title, message string, targetType TargetType, targetValue string) (*Notification, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	targetValue = strings.TrimSpace(targetValue)

	if title == "" {
		return nil, ErrNotificationTitleEmpty
	}
	if len([]rune(title)) > 100 {
		return nil, ErrNotificationTitleTooLong
	}
	if message == "" {
		return nil, ErrNotificationMessageEmpty
	}
	switch targetType {
	case TargetEveryone:
		targetValue = ""
	case TargetMinistry, TargetMember:
		if targetValue == "" {
			return nil, ErrNotificationTarget
		}
	default:
		return nil, ErrNotificationTarget
	}

	return &Notification{
		id:             NewNotificationID(),
		congregationID: congregationID,
		title:          title,
		message:        message,
		targetType:     targetType,
		targetValue:    targetValue,
		createdAt:      time.Now().UTC(),
	}, nil
}

// ReconstructNotification rebuilds a notification from persistence.
func ReconstructNotification(
	id NotificationID,
	congregationID CongregationID,
	title string,
	message string,
	targetType TargetType,
	targetValue string,
	read bool,
	createdAt time.Time,
) *Notification {
	return &Notification{
		id:             id,
		congregationID: congregationID,
		title:          title,
		message:        message,
		targetType:     targetType,
		targetValue:    targetValue,
		read:           read,
		createdAt:      createdAt,
	}
}

// Getters

func (n *Notification) ID() NotificationID             { return n.id }
func (n *Notification) CongregationID() CongregationID { return n.congregationID }
func (n *Notification) Title() string                  { return n.title }
func (n *Notification) Message() string                { return n.message }
func (n *Notification) TargetType() TargetType         { return n.targetType }
func (n *Notification) TargetValue() string            { return n.targetValue }
func (n *Notification) IsRead() bool                   { return n.read }
func (n *Notification) CreatedAt() time.Time           { return n.createdAt }

// MarkRead flags the notification as read.
func (n *Notification) MarkRead() {
	n.read = true
}

// VisibleTo reports whether a member with the given name and ministry should see it.
// ministry targets match like the report filter: case-insensitive containment.
func (n *Notification) VisibleTo(memberName, ministry string) bool {
	switch n.targetType {
	case TargetEveryone:
		return true
	case TargetMinistry:
		return ministry != "" && strings.Contains(strings.ToLower(ministry), strings.ToLower(n.targetValue))
	case TargetMember:
		return strings.EqualFold(strings.TrimSpace(memberName), n.targetValue)
	default:
		return false
	}
}

// WebhookSubscription is an endpoint that receives a congregation's notifications.
type WebhookSubscription struct {
	id             WebhookSubscriptionID
	congregationID CongregationID
	targetURL      string
	secret         string
	isActive       bool
	createdAt      time.Time
	updatedAt      time.Time
}

// WebhookSubscriptionID uniquely identifies a webhook subscription.
type WebhookSubscriptionID struct {
	value string
}

// NewWebhookSubscriptionID creates a new webhook subscription ID from a string.
func NewWebhookSubscriptionID(id string) (WebhookSubscriptionID, error) {
	if id == "" {
		return WebhookSubscriptionID{}, ErrInvalidInput
	}
	return WebhookSubscriptionID{value: id}, nil
}

// String returns the string representation.
func (id WebhookSubscriptionID) String() string {
	return id.value
}

// NewWebhookSubscription creates a new webhook subscription.
func NewWebhookSubscription(
	id WebhookSubscriptionID,
	congregationID CongregationID,
	targetURL string,
	secret string,
) (*WebhookSubscription, error) {
	if targetURL == "" {
		return nil, ErrInvalidInput
	}
	if secret == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	return &WebhookSubscription{
		id:             id,
		congregationID: congregationID,
		targetURL:      targetURL,
		secret:         secret,
		isActive:       true,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructWebhookSubscription rebuilds a subscription from persistence.
// bypasses validation for trusted data from database.
func ReconstructWebhookSubscription(
	id WebhookSubscriptionID,
	congregationID CongregationID,
	targetURL string,
	secret string,
	isActive bool,
	createdAt time.Time,
	updatedAt time.Time,
) *WebhookSubscription {
	return &WebhookSubscription{
		id:             id,
		congregationID: congregationID,
		targetURL:      targetURL,
		secret:         secret,
		isActive:       isActive,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Getters

func (s *WebhookSubscription) ID() WebhookSubscriptionID      { return s.id }
func (s *WebhookSubscription) CongregationID() CongregationID { return s.congregationID }
func (s *WebhookSubscription) TargetURL() string              { return s.targetURL }
func (s *WebhookSubscription) Secret() string                 { return s.secret }
func (s *WebhookSubscription) IsActive() bool                 { return s.isActive }
func (s *WebhookSubscription) CreatedAt() time.Time           { return s.createdAt }
func (s *WebhookSubscription) UpdatedAt() time.Time           { return s.updatedAt }

// Deactivate disables the subscription without deleting it.
func (s *WebhookSubscription) Deactivate() {
	s.isActive = false
	s.updatedAt = time.Now().UTC()
}

// NotificationService delivers pastoral notifications.
// implementations handle the actual delivery mechanism (webhooks, etc).
type NotificationService interface {
	// Dispatch hands a notification to every active subscriber of its congregation.
	// returns the number of deliveries queued.
	Dispatch(ctx context.Context, n *Notification) (int, error)
}
