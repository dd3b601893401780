package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeksOfMonth_LeapFebruary(t *testing.T) {
	weeks := WeeksOfMonth(2024, time.February)

	require.Len(t, weeks, 5)

	first := weeks[0]
	assert.Equal(t, 1, first.WeekNumber)
	assert.Equal(t, "Semana 1 de febrero", first.Label)
	assert.Equal(t, "2024-01-28", first.Start.String())
	assert.Equal(t, "2024-02-03", first.End.String())
	assert.Equal(t, "28/01-03/02", first.DateRangeLabel)

	assert.Equal(t, "4/2-10/2", weeks[1].DateRangeLabel)

	last := weeks[4]
	assert.Equal(t, "Semana 5 de febrero", last.Label)
	assert.Equal(t, "2024-02-25", last.Start.String())
	assert.Equal(t, "2024-03-02", last.End.String())
	assert.Equal(t, time.March, last.End.Month())
	assert.Equal(t, "25/02-02/03", last.DateRangeLabel)

	for _, w := range weeks {
		assert.Equal(t, time.February, w.Month)
		assert.Equal(t, 2024, w.Year)
	}
}

func TestWeeksOfMonth_Counts(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		want  int
	}{
		{name: "february starting on sunday", year: 2015, month: time.February, want: 4},
		{name: "31 days starting on saturday", year: 2025, month: time.March, want: 6},
		{name: "december starting on sunday", year: 2024, month: time.December, want: 5},
		{name: "january crossing the year", year: 2025, month: time.January, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, WeeksOfMonth(tt.year, tt.month), tt.want)
		})
	}
}

func TestWeeksOfMonth_CrossYearLabels(t *testing.T) {
	dec := WeeksOfMonth(2024, time.December)
	jan := WeeksOfMonth(2025, time.January)

	assert.Equal(t, "29/12/2024-04/01/2025", dec[len(dec)-1].DateRangeLabel)
	assert.Equal(t, "29/12/2024-04/01/2025", jan[0].DateRangeLabel)
	assert.Equal(t, "Semana 1 de enero", jan[0].Label)
}

// every month of two centuries: sundays in order, full coverage, and the
// six-week bound is never what ends the enumeration.
func TestWeeksOfMonth_Invariants(t *testing.T) {
	for year := 1950; year <= 2150; year++ {
		for month := time.January; month <= time.December; month++ {
			weeks := WeeksOfMonth(year, month)
			ym := YearMonth{Year: year, Month: month}

			require.GreaterOrEqual(t, len(weeks), 1)
			require.LessOrEqual(t, len(weeks), maxWeeksPerMonth)

			for i, w := range weeks {
				require.Equal(t, i+1, w.WeekNumber)
				require.Equal(t, time.Sunday, w.Start.Weekday())
				require.Equal(t, 6, w.Start.DaysUntil(w.End))
				if i > 0 {
					require.Equal(t, 7, weeks[i-1].Start.DaysUntil(w.Start))
				}
			}

			require.False(t, weeks[0].Start.After(ym.Start()), "%s first week", ym)
			last := weeks[len(weeks)-1]
			require.False(t, last.End.Before(ym.End()), "%s is not fully covered", ym)
			require.True(t, last.Start.AddDays(7).After(ym.End()), "%s would need a week beyond the bound", ym)
		}
	}
}

func TestWeeksOfMonth_InvalidMonth(t *testing.T) {
	assert.Nil(t, WeeksOfMonth(2024, 0))
	assert.Nil(t, WeeksOfMonth(2024, 13))
}

func TestValidateWeek(t *testing.T) {
	w, err := ValidateWeek(date(t, "2024-03-03"))
	require.NoError(t, err)
	assert.Equal(t, "Semana 1 de marzo", w.Label)

	w, err = ValidateWeek(date(t, "2024-02-25"))
	require.NoError(t, err)
	assert.Equal(t, "Semana 5 de febrero", w.Label)

	_, err = ValidateWeek(date(t, "2024-03-06"))
	assert.ErrorIs(t, err, ErrInvalidWeek)

	_, err = ValidateWeek(CalendarDate{})
	assert.ErrorIs(t, err, ErrInvalidWeek)
}

func TestCurrentWeek(t *testing.T) {
	w := CurrentWeek(date(t, "2024-03-01"))

	assert.Equal(t, 1, w.WeekNumber)
	assert.Equal(t, "2024-02-25", w.Start.String())
	assert.True(t, w.Contains(date(t, "2024-03-01")))
	assert.False(t, w.Contains(date(t, "2024-03-03")))
}
