package domain

import "context"

// ReportStore is the bulk source the aggregation core reads from.
// it returns every raw record of a congregation in one call, no paging.
type ReportStore interface {
	FetchAll(ctx context.Context, congregationID CongregationID) ([]RawRecord, error)
}

// ReportRepository persists submitted reports.
type ReportRepository interface {
	ReportStore

	// Save persists a single report document.
	Save(ctx context.Context, doc *ReportDocument) error

	// SaveBatch persists many documents in one round trip.
	SaveBatch(ctx context.Context, docs []*ReportDocument) error
}

// MemberStore is the optional directory used to enrich member identity.
type MemberStore interface {
	FetchAll(ctx context.Context, congregationID CongregationID) ([]*Member, error)
}

// MemberRepository persists the member directory.
type MemberRepository interface {
	MemberStore

	// Save inserts or updates a member.
	Save(ctx context.Context, m *Member) error

	// FindByName looks a member up by case-insensitive name.
	FindByName(ctx context.Context, congregationID CongregationID, name string) (*Member, error)
}

// CongregationRepository persists congregations.
type CongregationRepository interface {
	Save(ctx context.Context, c *Congregation) error
	FindByID(ctx context.Context, id CongregationID) (*Congregation, error)
	FindBySlug(ctx context.Context, slug Slug) (*Congregation, error)

	// ListActive returns every congregation accepting reports.
	ListActive(ctx context.Context) ([]*Congregation, error)

	// ListStats returns every congregation with its report and member counts.
	ListStats(ctx context.Context) ([]CongregationStats, error)
}

// CredentialsRepository persists pastoral panel passwords.
type CredentialsRepository interface {
	Save(ctx context.Context, creds PanelCredentials) error
	FindByCongregation(ctx context.Context, id CongregationID) (*PanelCredentials, error)
}

// NotificationRepository persists pastoral notifications.
type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id NotificationID) (*Notification, error)

	// ListByCongregation returns notifications newest first.
	ListByCongregation(ctx context.Context, id CongregationID, limit int) ([]*Notification, error)

	MarkRead(ctx context.Context, id NotificationID) error
}

// WebhookSubscriptionRepository defines persistence for webhook subscriptions.
type WebhookSubscriptionRepository interface {
	// Save persists a webhook subscription (insert or update).
	Save(ctx context.Context, sub *WebhookSubscription) error

	// FindByCongregation retrieves all active subscriptions for a congregation.
	FindByCongregation(ctx context.Context, id CongregationID) ([]*WebhookSubscription, error)

	// Delete removes a subscription.
	Delete(ctx context.Context, id WebhookSubscriptionID) error
}
