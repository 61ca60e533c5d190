package availability

import (
	"testing"
	"time"

	"byronhub/internal/model"
	"byronhub/internal/timegrid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHolidays(t *testing.T) {
	h, err := ParseHolidays([]string{"2025-05-01", "2025-12-25T00:00:00.000Z", "not a date"})
	assert.Error(t, err)
	assert.True(t, h.Contains(timegrid.NewDate(2025, time.May, 1)))
	assert.True(t, h.Contains(timegrid.NewDate(2025, time.December, 25)))
	assert.Len(t, h, 2)

	h, err = ParseHolidays(nil)
	assert.NoError(t, err)
	assert.Empty(t, h)
}

func TestBuildGrid(t *testing.T) {
	week := timegrid.WeekDaysFrom(timegrid.NewDate(2025, time.April, 30), 5) // Apr 28 - May 2
	m := NewResolver(nil).Resolve([]model.Reservation{reservation(1, "2025-04-29T09:00:00Z", 60)})
	holidays := Holidays{timegrid.NewDate(2025, time.May, 1): {}}

	tests := []struct {
		name    string
		manager bool
	}{
		{"member", false},
		{"manager", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := BuildGrid(week, m, holidays, tt.manager)
			require.Len(t, days, 5)

			tuesday := days[1]
			assert.False(t, tuesday.Holiday)
			require.Len(t, tuesday.Cells, 25)
			assert.Equal(t, StatusBooked, tuesday.Cells[2].Status) // 09:00
			assert.Equal(t, tt.manager, tuesday.Cells[2].Selectable)
			assert.Equal(t, StatusFree, tuesday.Cells[0].Status)
			assert.True(t, tuesday.Cells[0].Selectable)

			thursday := days[3]
			assert.True(t, thursday.Holiday)
			for _, c := range thursday.Cells {
				assert.Equal(t, StatusHoliday, c.Status)
				assert.False(t, c.Selectable)
			}
		})
	}
}

func TestDay_Pick(t *testing.T) {
	week := timegrid.WeekDaysFrom(timegrid.NewDate(2025, time.April, 29), 5)
	m := NewResolver(nil).Resolve([]model.Reservation{reservation(1, "2025-04-29T09:00:00Z", 30)})

	member := BuildGrid(week, m, nil, false)[1]
	pick, err := member.Pick("08:30")
	require.NoError(t, err)
	assert.Equal(t, Pick{Date: "2025-04-29", Time: "08:30"}, pick)

	_, err = member.Pick("09:00")
	assert.ErrorIs(t, err, ErrNotSelectable)
	_, err = member.Pick("07:00")
	assert.ErrorIs(t, err, ErrNotSelectable)

	manager := BuildGrid(week, m, nil, true)[1]
	pick, err = manager.Pick("09:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", pick.Time)
}

func TestDay_DurationOptions(t *testing.T) {
	week := []timegrid.Date{timegrid.NewDate(2025, time.April, 29)}
	m := NewResolver(nil).Resolve([]model.Reservation{reservation(1, "2025-04-29T10:00:00Z", 30)})
	day := BuildGrid(week, m, nil, false)[0]

	assert.Equal(t, []int{30, 60, 90, 120}, day.DurationOptions("08:00"))
	assert.Equal(t, []int{30}, day.DurationOptions("09:30"))
	assert.Nil(t, day.DurationOptions("10:00"))
	assert.Equal(t, []int{30}, day.DurationOptions("20:00"))

	assert.Len(t, day.Free(), 24)
}
