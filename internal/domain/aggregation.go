package domain

import (
	"fmt"
	"sort"
	"strings"
)

// AllMinistries is the ministry filter value that matches every report.
// "todos" and the empty string are accepted as synonyms.
const AllMinistries = "all"

// DefaultRankingLimit is the number of members a ranking shows unless told otherwise.
const DefaultRankingLimit = 3

// UndatedPolicy decides how reports without a usable date meet a time window.
type UndatedPolicy int

const (
	// UndatedExclude leaves undated reports out of week and month windows.
	UndatedExclude UndatedPolicy = iota
	// UndatedInclude counts undated reports into every window.
	UndatedInclude
)

// ParseUndatedPolicy maps "include"/"exclude" (and boolean-ish strings) to a policy.
func ParseUndatedPolicy(s string) (UndatedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclude", "false", "0", "no":
		return UndatedExclude, nil
	case "include", "true", "1", "yes":
		return UndatedInclude, nil
	default:
		return UndatedExclude, fmt.Errorf("%w: undated policy %q", ErrInvalidInput, s)
	}
}

func (p UndatedPolicy) String() string {
	if p == UndatedInclude {
		return "include"
	}
	return "exclude"
}

type windowKind int

const (
	windowAll windowKind = iota
	windowWeek
	windowMonth
)

// Window is the time scope of an aggregation: everything, one week or one month.
// the zero value is the unscoped window.
type Window struct {
	kind  windowKind
	week  CalendarDate
	month YearMonth
}

// AllTime returns the unscoped window.
func AllTime() Window {
	return Window{}
}

// WeekWindow returns the window of the week containing start.
func WeekWindow(start CalendarDate) Window {
	return Window{kind: windowWeek, week: start.WeekStart()}
}

// MonthWindow returns the window of one calendar month.
func MonthWindow(m YearMonth) Window {
	return Window{kind: windowMonth, month: m}
}

// IsWeek reports whether the window is week-scoped, returning its Sunday.
func (w Window) IsWeek() (CalendarDate, bool) {
	return w.week, w.kind == windowWeek
}

// IsMonth reports whether the window is month-scoped, returning the month.
func (w Window) IsMonth() (YearMonth, bool) {
	return w.month, w.kind == windowMonth
}

// IsScoped reports whether the window restricts by date at all.
func (w Window) IsScoped() bool {
	return w.kind != windowAll
}

func (w Window) String() string {
	switch w.kind {
	case windowWeek:
		return "week " + w.week.String()
	case windowMonth:
		return "month " + w.month.String()
	default:
		return "all"
	}
}

// contains applies the time scope only. undated reports defer to the policy.
func (w Window) contains(r Report, undated UndatedPolicy) bool {
	switch w.kind {
	case windowWeek:
		week := r.WeekStart()
		if week.IsZero() {
			return undated == UndatedInclude
		}
		return week.Equal(w.week)
	case windowMonth:
		if !r.IsDated() {
			return undated == UndatedInclude
		}
		return w.month.Contains(r.Date())
	default:
		return true
	}
}

// Selection is the complete query a caller makes against a report snapshot.
// it replaces any notion of "currently selected" week or filter.
type Selection struct {
	Window   Window
	Ministry string // AllMinistries, "todos" or "" match everything
	Text     string // case-insensitive substring of the member name
	Undated  UndatedPolicy
}

// Matches reports whether r falls inside the selection.
func (s Selection) Matches(r Report) bool {
	return s.Window.contains(r, s.Undated) && s.matchesMinistry(r) && s.matchesText(r)
}

// ministry matching is case-insensitive containment, so "dama" matches "Damas y Jóvenes".
func (s Selection) matchesMinistry(r Report) bool {
	filter := strings.ToLower(strings.TrimSpace(s.Ministry))
	if filter == "" || filter == AllMinistries || filter == "todos" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Ministry()), filter)
}

func (s Selection) matchesText(r Report) bool {
	text := strings.ToLower(strings.TrimSpace(s.Text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.MemberName()), text)
}

// Select returns the matching reports, newest first. undated reports go last.
// reports sharing a date keep their input order.
func Select(reports []Report, sel Selection) []Report {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if sel.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date(), out[j].Date()
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
	return out
}

// PrayerTime is a duration of prayer split for display.
type PrayerTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// String formats the time as H:MM.
func (p PrayerTime) String() string {
	return fmt.Sprintf("%d:%02d", p.Hours, p.Minutes)
}

// Totals is the fold of every matching report's counters.
type Totals struct {
	Reports       int
	Chapters      int
	PrayerHours   int // sum of reported hours
	PrayerMinutes int // sum of reported extra minutes, not yet carried into hours
	FastingDays   int
	SoulsReached  int
	FamilyAltars  int // reports with family altar practiced
}

// Prayer renormalizes the summed hours and extra minutes. minutes from
// different reports are summed before carrying, so 45+30 minutes become 1:15.
func (t Totals) Prayer() PrayerTime {
	return PrayerTime{
		Hours:   t.PrayerHours + t.PrayerMinutes/60,
		Minutes: t.PrayerMinutes % 60,
	}
}

// TotalPrayerMinutes returns the summed prayer time in minutes.
func (t Totals) TotalPrayerMinutes() int {
	return t.PrayerHours*60 + t.PrayerMinutes
}

// Value returns the total for one metric.
func (t Totals) Value(m Metric) int {
	switch m {
	case MetricChapters:
		return t.Chapters
	case MetricPrayerMinutes:
		return t.TotalPrayerMinutes()
	case MetricFastingDays:
		return t.FastingDays
	case MetricSoulsReached:
		return t.SoulsReached
	default:
		return 0
	}
}

func (t *Totals) add(m Metrics) {
	t.Reports++
	t.Chapters += m.Chapters
	t.PrayerHours += m.PrayerHours
	t.PrayerMinutes += m.PrayerMinutes
	t.FastingDays += m.FastingDays
	t.SoulsReached += m.SoulsReached
	if m.FamilyAltar {
		t.FamilyAltars++
	}
}

// Aggregate sums the counters of every report matching sel.
// this is a pure fold: the result does not depend on input order, and an
// empty input or an empty match yields zero totals.
func Aggregate(reports []Report, sel Selection) Totals {
	var t Totals
	for _, r := range reports {
		if sel.Matches(r) {
			t.add(r.Metrics())
		}
	}
	return t
}

// RankEntry is one member's position in a ranking.
type RankEntry struct {
	Position   int
	MemberName string
	Value      int
	Reports    int
}

// Rank groups matching reports by member name, sums metric per member and
// returns the top limit members (limit <= 0 means DefaultRankingLimit).
//
// ordering: higher value first; equal values are ordered by member name,
// case-insensitively and then bytewise, so the result never depends on the
// order reports were fetched in. members without matching reports are absent,
// members whose matching reports sum to zero are listed with value 0.
func Rank(reports []Report, metric Metric, sel Selection, limit int) []RankEntry {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	index := make(map[string]int)
	var entries []RankEntry
	for _, r := range reports {
		if !sel.Matches(r) {
			continue
		}
		i, ok := index[r.MemberName()]
		if !ok {
			i = len(entries)
			index[r.MemberName()] = i
			entries = append(entries, RankEntry{MemberName: r.MemberName()})
		}
		entries[i].Value += metric.Value(r.Metrics())
		entries[i].Reports++
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		la, lb := strings.ToLower(a.MemberName), strings.ToLower(b.MemberName)
		if la != lb {
			return la < lb
		}
		return a.MemberName < b.MemberName
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// Leaderboard ranks every metric over the same selection.
func Leaderboard(reports []Report, sel Selection, limit int) map[Metric][]RankEntry {
	board := make(map[Metric][]RankEntry, len(AllMetrics()))
	for _, m := range AllMetrics() {
		board[m] = Rank(reports, m, sel, limit)
	}
	return board
}

// WeekSummary aggregates one week that has at least one report.
type WeekSummary struct {
	Start  CalendarDate
	End    CalendarDate
	Totals Totals
}

// ReportedWeeks buckets matching dated reports by week, newest week first.
// the selection's window still applies, so a month window lists that month's weeks.
func ReportedWeeks(reports []Report, sel Selection) []WeekSummary {
	buckets := make(map[CalendarDate]*WeekSummary)
	for _, r := range reports {
		week := r.WeekStart()
		if week.IsZero() || !sel.Matches(r) {
			continue
		}
		b, ok := buckets[week]
		if !ok {
			b = &WeekSummary{Start: week, End: week.AddDays(6)}
			buckets[week] = b
		}
		b.Totals.add(r.Metrics())
	}

	out := make([]WeekSummary, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}
