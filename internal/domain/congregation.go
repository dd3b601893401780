package domain

import (
	"errors"
	"strings"
	"time"
)

// Congregation is the tenant under which members and reports are grouped.
type Congregation struct {
	id        CongregationID
	slug      Slug
	name      string
	address   string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

var (
	ErrCongregationNameEmpty   = errors.New("congregation name cannot be empty")
	ErrCongregationNameTooLong = errors.New("congregation name must be at most 255 characters")
	ErrCongregationNotFound    = errors.New("congregation not found")
)

// NewCongregation creates a new active Congregation.
func NewCongregation(slug Slug, name, address string) (*Congregation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCongregationNameEmpty
	}
	if len(name) > 255 {
		return nil, ErrCongregationNameTooLong
	}

	now := time.Now().UTC()
	return &Congregation{
		id:        NewCongregationID(),
		slug:      slug,
		name:      name,
		address:   strings.TrimSpace(address),
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructCongregation recreates a Congregation from stored data.
// use this when loading from database, not for creating new congregations.
func ReconstructCongregation(
	id CongregationID,
	slug Slug,
	name string,
	address string,
	isActive bool,
	createdAt time.Time,
	updatedAt time.Time,
) *Congregation {
	return &Congregation{
		id:        id,
		slug:      slug,
		name:      name,
		address:   address,
		isActive:  isActive,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the congregation's unique identifier.
func (c *Congregation) ID() CongregationID {
	return c.id
}

// Slug returns the congregation's public identifier.
func (c *Congregation) Slug() Slug {
	return c.slug
}

// Name returns the congregation's name.
func (c *Congregation) Name() string {
	return c.name
}

// Address returns the congregation's street address.
func (c *Congregation) Address() string {
	return c.address
}

// IsActive returns whether the congregation accepts reports.
func (c *Congregation) IsActive() bool {
	return c.isActive
}

// CreatedAt returns when the congregation was created.
func (c *Congregation) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns when the congregation was last updated.
func (c *Congregation) UpdatedAt() time.Time {
	return c.updatedAt
}

// Deactivate stops the congregation from accepting reports.
func (c *Congregation) Deactivate() {
	c.isActive = false
	c.updatedAt = time.Now().UTC()
}

// CongregationStats carries the admin overview counters.
type CongregationStats struct {
	Congregation *Congregation
	Reports      int
	Members      int
	LastReportAt *time.Time
}

// PanelCredentials is the shared pastoral panel password of a congregation.
// only the hash is ever held.
type PanelCredentials struct {
	CongregationID CongregationID
	PasswordHash   []byte
	UpdatedAt      time.Time
}
