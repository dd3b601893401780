package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlug_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"lowercase", "iglesia-central", "iglesia-central", nil},
		{"mixed case is folded", "Iglesia_Norte", "iglesia_norte", nil},
		{"digits", "sede2024", "sede2024", nil},
		{"trimmed", "  sede-sur ", "sede-sur", nil},
		{"empty", "", "", ErrSlugEmpty},
		{"too short", "abcd", "", ErrSlugTooShort},
		{"spaces inside", "sede sur", "", ErrSlugInvalid},
		{"accents", "sedeñorte", "", ErrSlugInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, err := NewSlug(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, slug.String())
		})
	}
}

func TestCongregationID_Parse(t *testing.T) {
	id := NewCongregationID()

	parsed, err := ParseCongregationID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.False(t, parsed.IsZero())

	_, err = ParseCongregationID("not-a-uuid")
	assert.Error(t, err)
	assert.True(t, CongregationID{}.IsZero())
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		input string
		want  Metric
		valid bool
	}{
		{"chapters", MetricChapters, true},
		{"capitulos", MetricChapters, true},
		{"prayerMinutes", MetricPrayerMinutes, true},
		{"oracion", MetricPrayerMinutes, true},
		{"AYUNOS", MetricFastingDays, true},
		{"soulsReached", MetricSoulsReached, true},
		{"altar", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := ParseMetric(tt.input)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidMetric)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
			assert.True(t, m.IsValid())
		})
	}
}

func TestNewReportDocument(t *testing.T) {
	congregation := NewCongregationID()
	member := NewMemberID()
	submitted := time.Date(2024, 3, 6, 18, 30, 0, 0, time.UTC)
	r := NewReport("Ana", "Damas", NewCalendarDate(2024, time.March, 6), Metrics{Chapters: 4})

	doc, err := NewReportDocument(congregation, &member, r, submitted)
	require.NoError(t, err)

	raw := doc.Raw()
	assert.Equal(t, doc.ID().String(), raw[FieldID])
	assert.Equal(t, "2024-03-06T18:30:00Z", raw[FieldSubmittedAt])
	assert.Equal(t, "2024-03-03", raw[FieldWeekStart])
	assert.Equal(t, member.String(), raw[FieldMemberID])

	back := Normalize(raw)
	assert.Equal(t, r.WithID(doc.ID().String()), back)

	_, err = NewReportDocument(CongregationID{}, nil, r, submitted)
	assert.ErrorIs(t, err, ErrReportCongregationEmpty)
}
