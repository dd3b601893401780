package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawRecord is a report document as held by the store.
// field names and value types vary between client versions.
type RawRecord map[string]any

// canonical field names, written by Report.Record and by new submissions.
const (
	FieldID            = "id"
	FieldMemberName    = "memberName"
	FieldMinistry      = "ministry"
	FieldDate          = "date"
	FieldSubmittedAt   = "submittedAt"
	FieldWeekStart     = "weekStart"
	FieldChapters      = "chapters"
	FieldPrayerHours   = "prayerHours"
	FieldPrayerMinutes = "prayerMinutes"
	FieldFastingDays   = "fastingDays"
	FieldSoulsReached  = "soulsReached"
	FieldFamilyAltar   = "familyAltar"
	FieldMemberID      = "memberId"
)

// lookup order per field: canonical name first, then the legacy spanish name.
var (
	nameKeys          = []string{FieldMemberName, "nombre"}
	ministryKeys      = []string{FieldMinistry, "ministerio"}
	dateKeys          = []string{FieldDate, "fecha"}
	submittedKeys     = []string{FieldSubmittedAt, "enviadoEn"}
	weekStartKeys     = []string{FieldWeekStart, "semanaInicio"}
	chaptersKeys      = []string{FieldChapters, "capitulos"}
	prayerHoursKeys   = []string{FieldPrayerHours, "horas"}
	prayerMinutesKeys = []string{FieldPrayerMinutes, "minutos"}
	fastingKeys       = []string{FieldFastingDays, "ayunos"}
	soulsKeys         = []string{FieldSoulsReached, "almas"}
	altarKeys         = []string{FieldFamilyAltar, "altarFamiliar"}
)

// NormalizeNotes describes the repairs Normalize applied to a raw record.
// none of them is an error, they exist for informational logging.
type NormalizeNotes struct {
	MissingName         bool
	MissingDate         bool
	DateFromSubmittedAt bool
	CoercedFields       []string
}

// Clean reports whether the record needed no repair.
func (n NormalizeNotes) Clean() bool {
	return !n.MissingName && !n.MissingDate && !n.DateFromSubmittedAt && len(n.CoercedFields) == 0
}

// Normalize converts a raw record into a canonical Report.
// it is total: every input, including nil, yields a Report.
func Normalize(raw RawRecord) Report {
	r, _ := NormalizeWithNotes(raw)
	return r
}

// NormalizeWithNotes is Normalize plus a description of what was repaired.
//
// fallback rules:
//   - name: memberName, nombre; blank or absent becomes UnnamedMember
//   - ministry: ministry, ministerio; absent becomes ""
//   - date: date, fecha; then submittedAt, enviadoEn; otherwise undated
//   - week cache: weekStart, semanaInicio; consulted only for undated reports
//   - counters: parsed as integers, absent or unparseable becomes 0, negatives become 0
//   - family altar: booleans, non-zero numbers and yes-like strings are true
func NormalizeWithNotes(raw RawRecord) (Report, NormalizeNotes) {
	var notes NormalizeNotes

	name := strings.TrimSpace(lookupString(raw, nameKeys))
	if name == "" {
		notes.MissingName = true
	}

	date, ok := lookupDate(raw, dateKeys)
	if !ok {
		date, ok = lookupDate(raw, submittedKeys)
		if ok {
			notes.DateFromSubmittedAt = true
		} else {
			notes.MissingDate = true
		}
	}

	var metrics Metrics
	metrics.Chapters = coerceField(raw, chaptersKeys, &notes)
	metrics.PrayerHours = coerceField(raw, prayerHoursKeys, &notes)
	metrics.PrayerMinutes = coerceField(raw, prayerMinutesKeys, &notes)
	metrics.FastingDays = coerceField(raw, fastingKeys, &notes)
	metrics.SoulsReached = coerceField(raw, soulsKeys, &notes)
	if v, _, found := lookup(raw, altarKeys); found {
		metrics.FamilyAltar = coerceBool(v)
	}

	r := NewReport(name, lookupString(raw, ministryKeys), date, metrics)
	if !r.IsDated() {
		if cached, ok := lookupDate(raw, weekStartKeys); ok {
			r.cachedWeek = cached.WeekStart()
		}
	}
	if id, ok := raw[FieldID].(string); ok {
		r.id = id
	}
	return r, notes
}

// lookup returns the first non-nil value among keys.
func lookup(raw RawRecord, keys []string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, "", false
}

func lookupString(raw RawRecord, keys []string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// lookupDate returns the first key whose value normalizes to a date.
func lookupDate(raw RawRecord, keys []string) (CalendarDate, bool) {
	for _, k := range keys {
		if d, ok := NormalizeDate(raw[k]); ok {
			return d, true
		}
	}
	return CalendarDate{}, false
}

func coerceField(raw RawRecord, keys []string, notes *NormalizeNotes) int {
	v, key, found := lookup(raw, keys)
	if !found {
		return 0
	}
	n, ok := coerceInt(v)
	if !ok || n < 0 {
		notes.CoercedFields = append(notes.CoercedFields, key)
		return 0
	}
	return n
}

// coerceInt parses v as an integer. the bool is false when v was present but
// not numeric. strings are read like a lenient integer parse: leading digits
// count, so "3 capitulos" is 3.
func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
		return 0, false
	case string:
		return parseLeadingInt(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "si", "sí", "yes", "on":
			return true
		}
		return false
	default:
		n, ok := coerceInt(v)
		return ok && n != 0
	}
}
