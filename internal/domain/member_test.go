package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(name, ministry, birth string) *Member {
	var b CalendarDate
	if birth != "" {
		b, _ = ParseCalendarDate(birth)
	}
	return ReconstructMember(NewMemberID(), CongregationID{}, name, ministry, b, "", "", time.Time{})
}

func TestUpcomingBirthdays(t *testing.T) {
	members := []*Member{
		member("Ana", "Damas", "1990-03-06"),
		member("Beto", "Caballeros", "1985-03-10"),
		member("Carla", "Jovenes", "2005-04-02"),
		member("Dani", "Jovenes", "2000-04-06"),
		member("Eva", "", "1970-01-15"),
		member("Fede", "", ""),
	}
	today := NewCalendarDate(2024, time.March, 6)

	t.Run("day", func(t *testing.T) {
		got := UpcomingBirthdays(members, today, BirthdayPeriodDay)
		require.Len(t, got, 1)
		assert.Equal(t, "Ana", got[0].Member.Name())
		assert.Equal(t, 0, got[0].DaysUntil)
		assert.Equal(t, 34, got[0].Age)
	})

	t.Run("week", func(t *testing.T) {
		got := UpcomingBirthdays(members, today, BirthdayPeriodWeek)
		require.Len(t, got, 2)
		assert.Equal(t, "Beto", got[1].Member.Name())
		assert.Equal(t, 4, got[1].DaysUntil)
	})

	t.Run("month", func(t *testing.T) {
		got := UpcomingBirthdays(members, today, BirthdayPeriodMonth)
		require.Len(t, got, 3)
		assert.Equal(t, "Carla", got[2].Member.Name())
		assert.Equal(t, 27, got[2].DaysUntil)
	})
}

func TestUpcomingBirthdays_WrapsIntoNextYear(t *testing.T) {
	members := []*Member{member("Eva", "", "1970-01-02")}

	got := UpcomingBirthdays(members, NewCalendarDate(2024, time.December, 28), BirthdayPeriodWeek)

	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-02", got[0].Date.String())
	assert.Equal(t, 5, got[0].DaysUntil)
	assert.Equal(t, 55, got[0].Age)
}

func TestGroupByMinistry(t *testing.T) {
	groups := GroupByMinistry([]*Member{
		member("Zoe", "Jovenes", ""),
		member("ana", "Jovenes", ""),
		member("Beto", "", ""),
		member("Carla", "Damas", ""),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "Damas", groups[0].Ministry)
	assert.Equal(t, "Jovenes", groups[1].Ministry)
	assert.Equal(t, "ana", groups[1].Members[0].Name())
	assert.Equal(t, NoMinistry, groups[2].Ministry)
}

func TestParseBirthdayPeriod(t *testing.T) {
	p, err := ParseBirthdayPeriod("mes")
	require.NoError(t, err)
	assert.Equal(t, BirthdayPeriodMonth, p)

	p, err = ParseBirthdayPeriod("")
	require.NoError(t, err)
	assert.Equal(t, BirthdayPeriodWeek, p)

	_, err = ParseBirthdayPeriod("year")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNotification_Targeting(t *testing.T) {
	congregation := NewCongregationID()

	everyone, err := NewNotification(congregation, "Ayuno", "Ayuno congregacional el sábado", TargetEveryone, "ignored")
	require.NoError(t, err)
	assert.Empty(t, everyone.TargetValue())
	assert.True(t, everyone.VisibleTo("Ana", ""))

	ministry, err := NewNotification(congregation, "Reunión", "Reunión de damas", TargetMinistry, "damas")
	require.NoError(t, err)
	assert.True(t, ministry.VisibleTo("Ana", "Damas y Jóvenes"))
	assert.False(t, ministry.VisibleTo("Beto", "Caballeros"))

	direct, err := NewNotification(congregation, "Hola", "Mensaje", TargetMember, "Ana Pérez")
	require.NoError(t, err)
	assert.True(t, direct.VisibleTo(" ana pérez ", ""))
	assert.False(t, direct.VisibleTo("Ana", ""))

	_, err = NewNotification(congregation, "", "x", TargetEveryone, "")
	assert.ErrorIs(t, err, ErrNotificationTitleEmpty)
	_, err = NewNotification(congregation, "t", "x", TargetMinistry, "")
	assert.ErrorIs(t, err, ErrNotificationTarget)
}
