package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joacominatel/yujo/internal/domain"
)

// MemberRepository implements domain.MemberRepository using Postgres.
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = `id, congregation_id, name, ministry, birth_date, phone, email, created_at`

// FetchAll returns the congregation's directory ordered by name.
func (r *MemberRepository) FetchAll(ctx context.Context, congregationID domain.CongregationID) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM yujo.members WHERE congregation_id = $1 ORDER BY lower(name)`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, congregationID.UUID())
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var out []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindByName looks a member up by case-insensitive, trimmed name.
func (r *MemberRepository) FindByName(ctx context.Context, congregationID domain.CongregationID, name string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM yujo.members WHERE congregation_id = $1 AND lower(name) = lower($2)`
	return scanMember(GetQuerier(ctx, r.pool).QueryRow(ctx, query, congregationID.UUID(), strings.TrimSpace(name)))
}

// Save inserts or updates a member. a duplicate name maps to domain.ErrAlreadyExists.
func (r *MemberRepository) Save(ctx context.Context, m *domain.Member) error {
	const query = `
		INSERT INTO yujo.members (id, congregation_id, name, ministry, birth_date, phone, email, created_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			ministry = EXCLUDED.ministry,
			birth_date = EXCLUDED.birth_date,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email
	`

	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query,
		m.ID().UUID(),
		m.CongregationID().UUID(),
		m.Name(),
		m.Ministry(),
		nullableString(m.BirthDate().String()),
		m.Phone(),
		m.Email(),
		m.CreatedAt(),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("saving member: %w", err)
	}
	return nil
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var (
		id, congregationID string
		name, ministry     string
		birthDate          *time.Time
		phone, email       string
		createdAt          time.Time
	)
	err := row.Scan(&id, &congregationID, &name, &ministry, &birthDate, &phone, &email, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning member: %w", err)
	}

	memberID, err := domain.ParseMemberID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted member id in database: %w", err)
	}
	cid, err := domain.ParseCongregationID(congregationID)
	if err != nil {
		return nil, fmt.Errorf("corrupted congregation id in database: %w", err)
	}

	var birth domain.CalendarDate
	if birthDate != nil {
		birth = domain.NewCalendarDate(birthDate.Year(), birthDate.Month(), birthDate.Day())
	}
	return domain.ReconstructMember(memberID, cid, name, ministry, birth, phone, email, createdAt), nil
}
