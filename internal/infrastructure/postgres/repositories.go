package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joacominatel/yujo/internal/domain"
)

// unique_violation
const uniqueViolation = "23505"

// CongregationRepository implements domain.CongregationRepository using Postgres.
type CongregationRepository struct {
	pool *pgxpool.Pool
}

// NewCongregationRepository creates a new CongregationRepository.
func NewCongregationRepository(pool *pgxpool.Pool) *CongregationRepository {
	return &CongregationRepository{pool: pool}
}

const congregationColumns = `id, slug, name, address, is_active, created_at, updated_at`

// FindByID retrieves a congregation by its ID.
func (r *CongregationRepository) FindByID(ctx context.Context, id domain.CongregationID) (*domain.Congregation, error) {
	query := `SELECT ` + congregationColumns + ` FROM yujo.congregations WHERE id = $1`
	return scanCongregation(GetQuerier(ctx, r.pool).QueryRow(ctx, query, id.UUID()))
}

// FindBySlug retrieves a congregation by its slug.
func (r *CongregationRepository) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Congregation, error) {
	query := `SELECT ` + congregationColumns + ` FROM yujo.congregations WHERE slug = $1`
	return scanCongregation(GetQuerier(ctx, r.pool).QueryRow(ctx, query, slug.String()))
}

// Save persists a congregation (insert or update).
// a slug taken by another congregation maps to domain.ErrAlreadyExists.
func (r *CongregationRepository) Save(ctx context.Context, c *domain.Congregation) error {
	const query = `
		INSERT INTO yujo.congregations (id, slug, name, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query,
		c.ID().UUID(),
		c.Slug().String(),
		c.Name(),
		c.Address(),
		c.IsActive(),
		c.CreatedAt(),
		c.UpdatedAt(),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("saving congregation: %w", err)
	}
	return nil
}

// ListActive returns every congregation accepting reports.
func (r *CongregationRepository) ListActive(ctx context.Context) ([]*domain.Congregation, error) {
	query := `SELECT ` + congregationColumns + ` FROM yujo.congregations WHERE is_active ORDER BY name`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying congregations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Congregation
	for rows.Next() {
		c, err := scanCongregation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListStats returns every congregation with its report and member counts.
func (r *CongregationRepository) ListStats(ctx context.Context) ([]domain.CongregationStats, error) {
	const query = `
		SELECT c.id, c.slug, c.name, c.address, c.is_active, c.created_at, c.updated_at,
			COALESCE(rep.total, 0), COALESCE(mem.total, 0), rep.last_at
		FROM yujo.congregations c
		LEFT JOIN (
			SELECT congregation_id, COUNT(*) AS total, MAX(created_at) AS last_at
			FROM yujo.reports GROUP BY congregation_id
		) rep ON rep.congregation_id = c.id
		LEFT JOIN (
			SELECT congregation_id, COUNT(*) AS total
			FROM yujo.members GROUP BY congregation_id
		) mem ON mem.congregation_id = c.id
		ORDER BY c.name
	`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying congregation stats: %w", err)
	}
	defer rows.Close()

	var out []domain.CongregationStats
	for rows.Next() {
		var (
			id, slug, name, address string
			isActive                bool
			createdAt, updatedAt    time.Time
			reports, members        int
			lastAt                  *time.Time
		)
		if err := rows.Scan(&id, &slug, &name, &address, &isActive, &createdAt, &updatedAt, &reports, &members, &lastAt); err != nil {
			return nil, fmt.Errorf("scanning congregation stats: %w", err)
		}
		c, err := buildCongregation(id, slug, name, address, isActive, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CongregationStats{
			Congregation: c,
			Reports:      reports,
			Members:      members,
			LastReportAt: lastAt,
		})
	}
	return out, rows.Err()
}

func scanCongregation(row pgx.Row) (*domain.Congregation, error) {
	var (
		id, slug, name, address string
		isActive                bool
		createdAt, updatedAt    time.Time
	)
	err := row.Scan(&id, &slug, &name, &address, &isActive, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning congregation: %w", err)
	}
	return buildCongregation(id, slug, name, address, isActive, createdAt, updatedAt)
}

func buildCongregation(id, slug, name, address string, isActive bool, createdAt, updatedAt time.Time) (*domain.Congregation, error) {
	// database stores trusted data, but we still validate ids
	congregationID, err := domain.ParseCongregationID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted congregation id in database: %w", err)
	}
	return domain.ReconstructCongregation(
		congregationID,
		domain.SlugFromTrusted(slug),
		name,
		address,
		isActive,
		createdAt,
		updatedAt,
	), nil
}

// CredentialsRepository implements domain.CredentialsRepository using Postgres.
type CredentialsRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialsRepository creates a new CredentialsRepository.
func NewCredentialsRepository(pool *pgxpool.Pool) *CredentialsRepository {
	return &CredentialsRepository{pool: pool}
}

// Save stores or replaces a congregation's panel password hash.
func (r *CredentialsRepository) Save(ctx context.Context, creds domain.PanelCredentials) error {
	const query = `
		INSERT INTO yujo.panel_credentials (congregation_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (congregation_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
	`
	_, err := GetQuerier(ctx, r.pool).Exec(ctx, query, creds.CongregationID.UUID(), creds.PasswordHash, creds.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// FindByCongregation returns the stored hash for a congregation.
func (r *CredentialsRepository) FindByCongregation(ctx context.Context, id domain.CongregationID) (*domain.PanelCredentials, error) {
	const query = `SELECT password_hash, updated_at FROM yujo.panel_credentials WHERE congregation_id = $1`

	creds := &domain.PanelCredentials{CongregationID: id}
	err := GetQuerier(ctx, r.pool).QueryRow(ctx, query, id.UUID()).Scan(&creds.PasswordHash, &creds.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}
	return creds, nil
}

// ReportRepository implements domain.ReportRepository using Postgres.
// reports are stored as the raw JSONB document they were submitted with.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// FetchAll returns every raw report document of a congregation in one query.
// documents that are not valid json objects become empty records, which
// normalize to unnamed, undated, zero reports.
func (r *ReportRepository) FetchAll(ctx context.Context, congregationID domain.CongregationID) ([]domain.RawRecord, error) {
	const query = `
		SELECT id, document
		FROM yujo.reports
		WHERE congregation_id = $1
		ORDER BY created_at
	`

	rows, err := GetQuerier(ctx, r.pool).Query(ctx, query, congregationID.UUID())
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var out []domain.RawRecord
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		raw := decodeDocument(doc)
		raw[domain.FieldID] = id
		out = append(out, raw)
	}
	return out, rows.Err()
}

// decodeDocument keeps numbers as json.Number so large counters survive.
func decodeDocument(doc []byte) domain.RawRecord {
	raw := domain.RawRecord{}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return domain.RawRecord{}
	}
	return raw
}

// Save persists a single report document.
func (r *ReportRepository) Save(ctx context.Context, doc *domain.ReportDocument) error {
	const query = `
		INSERT INTO yujo.reports (id, congregation_id, member_id, document, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`

	row, err := reportRow(doc)
	if err != nil {
		return err
	}
	if _, err := GetQuerier(ctx, r.pool).Exec(ctx, query, row...); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// SaveBatch persists multiple documents in a single transaction using CopyFrom.
func (r *ReportRepository) SaveBatch(ctx context.Context, docs []*domain.ReportDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := beginOrNest(ctx, r.pool)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		row, err := reportRow(doc)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"yujo", "reports"},
		[]string{"id", "congregation_id", "member_id", "document", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("batch inserting reports: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func reportRow(doc *domain.ReportDocument) ([]any, error) {
	body, err := json.Marshal(doc.Fields())
	if err != nil {
		return nil, fmt.Errorf("serializing report %s: %w", doc.ID().String(), err)
	}

	var memberID any
	if doc.MemberID() != nil {
		memberID = doc.MemberID().UUID()
	}
	return []any{
		doc.ID().UUID(),
		doc.CongregationID().UUID(),
		memberID,
		string(body),
		doc.CreatedAt(),
	}, nil
}

// helper functions

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
