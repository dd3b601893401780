package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// NoMinistry labels members without a ministry tag.
const NoMinistry = "Sin ministerio"

// Member is a person in a congregation's directory.
// the directory only enriches identity, the aggregation core never needs it.
type Member struct {
	id             MemberID
	congregationID CongregationID
	name           string
	ministry       string
	birthDate      CalendarDate // zero when unknown
	phone          string
	email          string
	createdAt      time.Time
}

var (
	ErrMemberNameEmpty   = errors.New("member name cannot be empty")
	ErrMemberNameTooLong = errors.New("member name must be at most 100 characters")
)

// NewMember creates a new Member with the required fields.
func NewMember(congregationID CongregationID, name, ministry string) (*Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMemberNameEmpty
	}
	if len([]rune(name)) > 100 {
		return nil, ErrMemberNameTooLong
	}

	return &Member{
		id:             NewMemberID(),
		congregationID: congregationID,
		name:           name,
		ministry:       strings.TrimSpace(ministry),
		createdAt:      time.Now().UTC(),
	}, nil
}

// ReconstructMember recreates a Member from stored data.
// use this when loading from database, not for creating new members.
func ReconstructMember(
	id MemberID,
	congregationID CongregationID,
	name string,
	ministry string,
	birthDate CalendarDate,
	phone string,
	email string,
	createdAt time.Time,
) *Member {
	return &Member{
		id:             id,
		congregationID: congregationID,
		name:           name,
		ministry:       ministry,
		birthDate:      birthDate,
		phone:          phone,
		email:          email,
		createdAt:      createdAt,
	}
}

func (m *Member) ID() MemberID                   { return m.id }
func (m *Member) CongregationID() CongregationID { return m.congregationID }
func (m *Member) Name() string                   { return m.name }
func (m *Member) Ministry() string               { return m.ministry }
func (m *Member) BirthDate() CalendarDate        { return m.birthDate }
func (m *Member) Phone() string                  { return m.phone }
func (m *Member) Email() string                  { return m.email }
func (m *Member) CreatedAt() time.Time           { return m.createdAt }

// UpdateContact sets the optional directory fields.
func (m *Member) UpdateContact(birthDate CalendarDate, phone, email string) {
	m.birthDate = birthDate
	m.phone = strings.TrimSpace(phone)
	m.email = strings.TrimSpace(email)
}

// MinistryGroup is one section of the directory grouped by ministry.
type MinistryGroup struct {
	Ministry string
	Members  []*Member
}

// GroupByMinistry groups members by ministry tag, sections sorted by name and
// members sorted by name within each section.
func GroupByMinistry(members []*Member) []MinistryGroup {
	byMinistry := make(map[string][]*Member)
	for _, m := range members {
		key := m.ministry
		if key == "" {
			key = NoMinistry
		}
		byMinistry[key] = append(byMinistry[key], m)
	}

	groups := make([]MinistryGroup, 0, len(byMinistry))
	for ministry, ms := range byMinistry {
		sort.Slice(ms, func(i, j int) bool {
			return strings.ToLower(ms[i].name) < strings.ToLower(ms[j].name)
		})
		groups = append(groups, MinistryGroup{Ministry: ministry, Members: ms})
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Ministry) < strings.ToLower(groups[j].Ministry)
	})
	return groups
}

// BirthdayPeriod is how far ahead upcoming birthdays are listed.
type BirthdayPeriod string

const (
	BirthdayPeriodDay   BirthdayPeriod = "day"
	BirthdayPeriodWeek  BirthdayPeriod = "week"
	BirthdayPeriodMonth BirthdayPeriod = "month"
)

// ParseBirthdayPeriod accepts the english names and the spanish dia/semana/mes.
func ParseBirthdayPeriod(s string) (BirthdayPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "dia", "día":
		return BirthdayPeriodDay, nil
	case "", "week", "semana":
		return BirthdayPeriodWeek, nil
	case "month", "mes":
		return BirthdayPeriodMonth, nil
	default:
		return "", ErrInvalidInput
	}
}

// horizon returns the last day offset included by the period.
func (p BirthdayPeriod) horizon() int {
	switch p {
	case BirthdayPeriodDay:
		return 0
	case BirthdayPeriodMonth:
		return 30
	default:
		return 7
	}
}

// Birthday is an upcoming birthday of a member.
type Birthday struct {
	Member    *Member
	Date      CalendarDate
	DaysUntil int
	Age       int
}

// UpcomingBirthdays lists members whose next birthday falls within the period,
// soonest first. a feb 29 birthday is celebrated on mar 1 in common years.
func UpcomingBirthdays(members []*Member, today CalendarDate, period BirthdayPeriod) []Birthday {
	var out []Birthday
	for _, m := range members {
		if m.birthDate.IsZero() {
			continue
		}
		next := NewCalendarDate(today.Year(), m.birthDate.Month(), m.birthDate.Day())
		if next.Before(today) {
			next = NewCalendarDate(today.Year()+1, m.birthDate.Month(), m.birthDate.Day())
		}
		days := today.DaysUntil(next)
		if days > period.horizon() {
			continue
		}
		out = append(out, Birthday{
			Member:    m,
			Date:      next,
			DaysUntil: days,
			Age:       next.Year() - m.birthDate.Year(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntil < out[j].DaysUntil })
	return out
}
