package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joacominatel/yujo/internal/domain"
)

// WebhookSubscriptionRepository implements domain.WebhookSubscriptionRepository using Postgres.
type WebhookSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookSubscriptionRepository creates a new WebhookSubscriptionRepository.
func NewWebhookSubscriptionRepository(pool *pgxpool.Pool) *WebhookSubscriptionRepository {
	return &WebhookSubscriptionRepository{pool: pool}
}

// Save persists a webhook subscription (insert or update).
func (r *WebhookSubscriptionRepository) Save(ctx context.Context, sub *domain.WebhookSubscription) error {
	const query = `
		INSERT INTO yujo.webhook_subscriptions (id, congregation_id, target_url, secret, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			target_url = EXCLUDED.target_url,
			secret = EXCLUDED.secret,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query,
		sub.ID().String(),
		sub.CongregationID().UUID(),
		sub.TargetURL(),
		sub.Secret(),
		sub.IsActive(),
		sub.CreatedAt(),
		sub.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("saving webhook subscription: %w", err)
	}
	return nil
}

// FindByCongregation retrieves all active subscriptions for a congregation.
func (r *WebhookSubscriptionRepository) FindByCongregation(ctx context.Context, id domain.CongregationID) ([]*domain.WebhookSubscription, error) {
	const query = `
		SELECT id, congregation_id, target_url, secret, is_active, created_at, updated_at
		FROM yujo.webhook_subscriptions
		WHERE congregation_id = $1 AND is_active = true
		ORDER BY created_at
	`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, id.UUID())
	if err != nil {
		return nil, fmt.Errorf("querying webhook subscriptions: %w", err)
	}
	defer rows.Close()

	return r.scanSubscriptions(rows)
}

// Delete removes a subscription.
func (r *WebhookSubscriptionRepository) Delete(ctx context.Context, id domain.WebhookSubscriptionID) error {
	const query = `DELETE FROM yujo.webhook_subscriptions WHERE id = $1`

	result, err := GetQuerier(ctx, r.pool).Exec(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("deleting webhook subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// scanSubscriptions scans multiple rows into subscription slice.
func (r *WebhookSubscriptionRepository) scanSubscriptions(rows pgx.Rows) ([]*domain.WebhookSubscription, error) {
	var subs []*domain.WebhookSubscription

	for rows.Next() {
		var (
			id             string
			congregationID string
			targetURL      string
			secret         string
			isActive       bool
			createdAt      time.Time
			updatedAt      time.Time
		)

		err := rows.Scan(&id, &congregationID, &targetURL, &secret, &isActive, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook subscription: %w", err)
		}

		subID, err := domain.NewWebhookSubscriptionID(id)
		if err != nil {
			return nil, err
		}
		cid, err := domain.ParseCongregationID(congregationID)
		if err != nil {
			return nil, fmt.Errorf("corrupted congregation id in database: %w", err)
		}

		subs = append(subs, domain.ReconstructWebhookSubscription(
			subID, cid, targetURL, secret, isActive, createdAt, updatedAt,
		))
	}

	return subs, rows.Err()
}
