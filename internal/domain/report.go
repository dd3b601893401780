package domain

import "strings"

// UnnamedMember is the placeholder identity for reports submitted without a name.
// such reports still count toward totals.
const UnnamedMember = "Sin nombre"

// Metrics holds the weekly counters a member reports.
// all counters are non-negative.
type Metrics struct {
	Chapters      int
	PrayerHours   int
	PrayerMinutes int // extra minutes on top of PrayerHours, may exceed 59 in raw data
	FastingDays   int
	SoulsReached  int
	FamilyAltar   bool
}

// TotalPrayerMinutes flattens hours and minutes into minutes.
func (m Metrics) TotalPrayerMinutes() int {
	return m.PrayerHours*60 + m.PrayerMinutes
}

func (m Metrics) clamped() Metrics {
	m.Chapters = max(m.Chapters, 0)
	m.PrayerHours = max(m.PrayerHours, 0)
	m.PrayerMinutes = max(m.PrayerMinutes, 0)
	m.FastingDays = max(m.FastingDays, 0)
	m.SoulsReached = max(m.SoulsReached, 0)
	return m
}

// Report is the canonical, immutable form of a submitted activity report.
// built by Normalize from raw store records, or by NewReport for fresh submissions.
type Report struct {
	id         string
	memberName string
	ministry   string
	date       CalendarDate
	// cachedWeek is the week key copied from the raw record.
	// it is only consulted when the record has no usable date.
	cachedWeek CalendarDate
	metrics    Metrics
}

// NewReport creates a canonical report.
// names are trimmed and fall back to UnnamedMember, negative counters clamp to zero.
func NewReport(memberName, ministry string, date CalendarDate, metrics Metrics) Report {
	name := strings.TrimSpace(memberName)
	if name == "" {
		name = UnnamedMember
	}
	return Report{
		memberName: name,
		ministry:   strings.TrimSpace(ministry),
		date:       date,
		metrics:    metrics.clamped(),
	}
}

// WithID returns a copy of r carrying the store's document id.
func (r Report) WithID(id string) Report {
	r.id = id
	return r
}

// ID returns the store document id, empty for unsaved reports.
func (r Report) ID() string {
	return r.id
}

// MemberName returns the reporting member's display name.
func (r Report) MemberName() string {
	return r.memberName
}

// Ministry returns the free-form ministry tag.
func (r Report) Ministry() string {
	return r.ministry
}

// Date returns the report's calendar date, zero when undated.
func (r Report) Date() CalendarDate {
	return r.date
}

// IsDated reports whether the report carries a usable date.
func (r Report) IsDated() bool {
	return !r.date.IsZero()
}

// Metrics returns the reported counters.
func (r Report) Metrics() Metrics {
	return r.metrics
}

// WeekStart returns the Sunday starting the report's week.
// it is recomputed from the date; a cached week key from the raw record is
// used only when the date is missing. undated reports without a cache return zero.
func (r Report) WeekStart() CalendarDate {
	if !r.date.IsZero() {
		return r.date.WeekStart()
	}
	return r.cachedWeek.WeekStart()
}

// Record renders the report back into a raw record using canonical field names.
// Normalize(r.Record()) yields r again.
func (r Report) Record() RawRecord {
	rec := RawRecord{
		FieldMemberName:    r.memberName,
		FieldMinistry:      r.ministry,
		FieldChapters:      r.metrics.Chapters,
		FieldPrayerHours:   r.metrics.PrayerHours,
		FieldPrayerMinutes: r.metrics.PrayerMinutes,
		FieldFastingDays:   r.metrics.FastingDays,
		FieldSoulsReached:  r.metrics.SoulsReached,
		FieldFamilyAltar:   r.metrics.FamilyAltar,
	}
	if r.id != "" {
		rec[FieldID] = r.id
	}
	if !r.date.IsZero() {
		rec[FieldDate] = r.date.String()
	}
	if week := r.WeekStart(); !week.IsZero() {
		rec[FieldWeekStart] = week.String()
	}
	return rec
}
