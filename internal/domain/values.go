package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CongregationID represents a unique identifier for a congregation.
// wrapping uuid to enforce type safety and prevent mixing with other ids.
type CongregationID struct {
	value uuid.UUID
}

// NewCongregationID creates a new random CongregationID.
func NewCongregationID() CongregationID {
	return CongregationID{value: uuid.New()}
}

// ParseCongregationID parses a string into a CongregationID.
func ParseCongregationID(s string) (CongregationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CongregationID{}, fmt.Errorf("invalid congregation id: %w", err)
	}
	return CongregationID{value: id}, nil
}

// CongregationIDFromUUID creates a CongregationID from an existing uuid.
func CongregationIDFromUUID(id uuid.UUID) CongregationID {
	return CongregationID{value: id}
}

// String returns the string representation of the CongregationID.
func (id CongregationID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id CongregationID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the CongregationID is not set.
func (id CongregationID) IsZero() bool {
	return id.value == uuid.Nil
}

// ReportID identifies a stored report document.
type ReportID struct {
	value uuid.UUID
}

// NewReportID creates a new random ReportID.
func NewReportID() ReportID {
	return ReportID{value: uuid.New()}
}

// ParseReportID parses a string into a ReportID.
func ParseReportID(s string) (ReportID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ReportID{}, fmt.Errorf("invalid report id: %w", err)
	}
	return ReportID{value: id}, nil
}

// ReportIDFromUUID creates a ReportID from an existing uuid.
func ReportIDFromUUID(id uuid.UUID) ReportID {
	return ReportID{value: id}
}

func (id ReportID) String() string  { return id.value.String() }
func (id ReportID) UUID() uuid.UUID { return id.value }
func (id ReportID) IsZero() bool    { return id.value == uuid.Nil }

// MemberID identifies a member of a congregation.
type MemberID struct {
	value uuid.UUID
}

// NewMemberID creates a new random MemberID.
func NewMemberID() MemberID {
	return MemberID{value: uuid.New()}
}

// ParseMemberID parses a string into a MemberID.
func ParseMemberID(s string) (MemberID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MemberID{}, fmt.Errorf("invalid member id: %w", err)
	}
	return MemberID{value: id}, nil
}

// MemberIDFromUUID creates a MemberID from an existing uuid.
func MemberIDFromUUID(id uuid.UUID) MemberID {
	return MemberID{value: id}
}

func (id MemberID) String() string  { return id.value.String() }
func (id MemberID) UUID() uuid.UUID { return id.value }
func (id MemberID) IsZero() bool    { return id.value == uuid.Nil }

// NotificationID identifies a pastoral notification.
type NotificationID struct {
	value uuid.UUID
}

// NewNotificationID creates a new random NotificationID.
func NewNotificationID() NotificationID {
	return NotificationID{value: uuid.New()}
}

// ParseNotificationID parses a string into a NotificationID.
func ParseNotificationID(s string) (NotificationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification id: %w", err)
	}
	return NotificationID{value: id}, nil
}

// NotificationIDFromUUID creates a NotificationID from an existing uuid.
func NotificationIDFromUUID(id uuid.UUID) NotificationID {
	return NotificationID{value: id}
}

func (id NotificationID) String() string  { return id.value.String() }
func (id NotificationID) UUID() uuid.UUID { return id.value }
func (id NotificationID) IsZero() bool    { return id.value == uuid.Nil }

// Slug is the public, url-friendly identifier of a congregation.
// letters, digits, underscores and hyphens, at least 5 chars, at most 64.
type Slug struct {
	value string
}

var (
	ErrSlugEmpty    = errors.New("slug cannot be empty")
	ErrSlugTooShort = errors.New("slug must be at least 5 characters")
	ErrSlugTooLong  = errors.New("slug must be at most 64 characters")
	ErrSlugInvalid  = errors.New("slug must contain only letters, numbers, underscores, and hyphens")
)

// NewSlug creates a new Slug from a string, validating the format.
// slugs are case-insensitive, the stored form is lowercase.
func NewSlug(s string) (Slug, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Slug{}, ErrSlugEmpty
	}
	if len(s) < 5 {
		return Slug{}, ErrSlugTooShort
	}
	if len(s) > 64 {
		return Slug{}, ErrSlugTooLong
	}

	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_') {
			return Slug{}, ErrSlugInvalid
		}
	}

	return Slug{value: strings.ToLower(s)}, nil
}

// SlugFromTrusted creates a Slug without validation.
// only use this when loading from database where data is already validated.
func SlugFromTrusted(s string) Slug {
	return Slug{value: s}
}

// String returns the string representation of the Slug.
func (s Slug) String() string {
	return s.value
}
