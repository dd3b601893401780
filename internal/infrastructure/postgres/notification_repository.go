package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joacominatel/yujo/internal/domain"
)

// NotificationRepository implements domain.NotificationRepository using Postgres.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `id, congregation_id, title, message, target_type, target_value, is_read, created_at`

// Save persists a notification (insert or update of the read flag).
func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	const query = `
		INSERT INTO yujo.notifications (id, congregation_id, title, message, target_type, target_value, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET is_read = EXCLUDED.is_read
	`

	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query,
		n.ID().UUID(),
		n.CongregationID().UUID(),
		n.Title(),
		n.Message(),
		string(n.TargetType()),
		n.TargetValue(),
		n.IsRead(),
		n.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("saving notification: %w", err)
	}
	return nil
}

// FindByID retrieves a notification by ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM yujo.notifications WHERE id = $1`
	return scanNotification(GetQuerier(ctx, r.pool).QueryRow(ctx, query, id.UUID()))
}

// ListByCongregation returns notifications newest first.
func (r *NotificationRepository) ListByCongregation(ctx context.Context, id domain.CongregationID, limit int) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM yujo.notifications
		WHERE congregation_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, id.UUID(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets the read flag.
func (r *NotificationRepository) MarkRead(ctx context.Context, id domain.NotificationID) error {
	result, err := GetQuerier(ctx, r.pool).Exec(ctx,
		`UPDATE yujo.notifications SET is_read = TRUE WHERE id = $1`, id.UUID())
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		id, congregationID      string
		title, message          string
		targetType, targetValue string
		isRead                  bool
		createdAt               time.Time
	)
	err := row.Scan(&id, &congregationID, &title, &message, &targetType, &targetValue, &isRead, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}

	nid, err := domain.ParseNotificationID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted notification id in database: %w", err)
	}
	cid, err := domain.ParseCongregationID(congregationID)
	if err != nil {
		return nil, fmt.Errorf("corrupted congregation id in database: %w", err)
	}
	target, err := domain.ParseTargetType(targetType)
	if err != nil {
		return nil, fmt.Errorf("corrupted target type in database: %w", err)
	}

	return domain.ReconstructNotification(nid, cid, title, message, target, targetValue, isRead, createdAt), nil
}
