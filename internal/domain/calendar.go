package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage form of a calendar date.
const DateLayout = "2006-01-02"

// CalendarDate is a naive local-calendar date with no time or zone component.
// the zero value means "no date" and is what soft failures produce.
type CalendarDate struct {
	t time.Time // always midnight UTC, used only as a day counter
}

// NewCalendarDate builds a date, normalizing overflow the way time.Date does.
func NewCalendarDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) CalendarDate {
	if t.IsZero() {
		return CalendarDate{}
	}
	return NewCalendarDate(t.Year(), t.Month(), t.Day())
}

// ParseCalendarDate parses a YYYY-MM-DD string.
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return CalendarDate{t: t}, nil
}

// NormalizeDate converts a date-like value into a CalendarDate.
// strings are truncated to their first 10 characters before parsing, which
// drops any time or zone suffix of an ISO-8601 timestamp. time values are read
// in their own location. nil and anything unparseable yield (zero, false).
func NormalizeDate(input any) (CalendarDate, bool) {
	switch v := input.(type) {
	case nil:
		return CalendarDate{}, false
	case CalendarDate:
		return v, !v.IsZero()
	case *CalendarDate:
		if v == nil {
			return CalendarDate{}, false
		}
		return *v, !v.IsZero()
	case time.Time:
		d := DateOf(v)
		return d, !d.IsZero()
	case *time.Time:
		if v == nil {
			return CalendarDate{}, false
		}
		d := DateOf(*v)
		return d, !d.IsZero()
	case string:
		s := strings.TrimSpace(v)
		if len(s) > len(DateLayout) {
			s = s[:len(DateLayout)]
		}
		d, err := ParseCalendarDate(s)
		if err != nil {
			return CalendarDate{}, false
		}
		return d, true
	default:
		return CalendarDate{}, false
	}
}

// SundayOfWeek returns the Sunday on or before d.
// a zero d falls back to the week containing now, so the result then depends
// on the caller's wall clock. pass a real date whenever one is available.
func SundayOfWeek(d CalendarDate, now time.Time) CalendarDate {
	if d.IsZero() {
		d = DateOf(now)
	}
	return d.WeekStart()
}

// WeekStart returns the Sunday on or before d, or zero for a zero date.
func (d CalendarDate) WeekStart() CalendarDate {
	if d.IsZero() {
		return d
	}
	return d.AddDays(-int(d.Weekday()))
}

// WeekEnd returns the Saturday closing the week that contains d.
func (d CalendarDate) WeekEnd() CalendarDate {
	if d.IsZero() {
		return d
	}
	return d.WeekStart().AddDays(6)
}

// MonthStart returns the first day of d's month.
func (d CalendarDate) MonthStart() CalendarDate {
	if d.IsZero() {
		return d
	}
	return NewCalendarDate(d.Year(), d.Month(), 1)
}

// MonthEnd returns the last day of d's month.
func (d CalendarDate) MonthEnd() CalendarDate {
	if d.IsZero() {
		return d
	}
	return NewCalendarDate(d.Year(), d.Month()+1, 0)
}

func (d CalendarDate) Year() int                  { return d.t.Year() }
func (d CalendarDate) Month() time.Month          { return d.t.Month() }
func (d CalendarDate) Day() int                   { return d.t.Day() }
func (d CalendarDate) Weekday() time.Weekday      { return d.t.Weekday() }
func (d CalendarDate) IsZero() bool               { return d.t.IsZero() }
func (d CalendarDate) Before(o CalendarDate) bool { return d.t.Before(o.t) }
func (d CalendarDate) After(o CalendarDate) bool  { return d.t.After(o.t) }
func (d CalendarDate) Equal(o CalendarDate) bool  { return d.t.Equal(o.t) }

// AddDays returns the date n days after d (n may be negative).
func (d CalendarDate) AddDays(n int) CalendarDate {
	return CalendarDate{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the whole number of days from d to o.
func (d CalendarDate) DaysUntil(o CalendarDate) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// YearMonth returns the calendar month containing d.
func (d CalendarDate) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// String formats d as YYYY-MM-DD, or "" for the zero date.
func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes the zero date as null.
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts null, "" or a YYYY-MM-DD string.
func (d *CalendarDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// YearMonth is a calendar month, used as a month-scoped window key.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// Start returns the first day of the month.
func (m YearMonth) Start() CalendarDate { return NewCalendarDate(m.Year, m.Month, 1) }

// End returns the last day of the month.
func (m YearMonth) End() CalendarDate { return NewCalendarDate(m.Year, m.Month+1, 0) }

// Contains reports whether d falls within the month. zero dates never do.
func (m YearMonth) Contains(d CalendarDate) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Month() == m.Month
}

// Previous returns the month before m.
func (m YearMonth) Previous() YearMonth {
	return m.Start().AddDays(-1).YearMonth()
}

// IsValid reports whether the month component is within January..December.
func (m YearMonth) IsValid() bool {
	return m.Month >= time.January && m.Month <= time.December
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
