package timegrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDaySlots(t *testing.T) {
	slots := GenerateDaySlots()
	require.Len(t, slots, 25)
	assert.Equal(t, Slot("08:00"), slots[0])
	assert.Equal(t, Slot("08:30"), slots[1])
	assert.Equal(t, Slot("20:00"), slots[len(slots)-1])

	for i := 1; i < len(slots); i++ {
		assert.Len(t, string(slots[i]), 5)
		assert.Equal(t, slots[i-1].Minutes()+SlotMinutes, slots[i].Minutes(), "slot %d", i)
	}
}

func TestWeekDaysFrom(t *testing.T) {
	tests := []struct {
		name   string
		ref    Date
		length int
		monday Date
	}{
		{"wednesday", NewDate(2025, time.May, 7), 5, NewDate(2025, time.May, 5)},
		{"monday itself", NewDate(2025, time.May, 5), 5, NewDate(2025, time.May, 5)},
		{"sunday goes back six days", NewDate(2025, time.May, 11), 5, NewDate(2025, time.May, 5)},
		{"saturday", NewDate(2025, time.May, 10), 7, NewDate(2025, time.May, 5)},
		{"across month boundary", NewDate(2025, time.June, 1), 5, NewDate(2025, time.May, 26)},
		{"across year boundary", NewDate(2026, time.January, 1), 7, NewDate(2025, time.December, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := WeekDaysFrom(tt.ref, tt.length)
			require.Len(t, days, tt.length)
			assert.Equal(t, tt.monday, days[0])
			assert.Equal(t, time.Monday, days[0].Weekday())
			for i := 1; i < len(days); i++ {
				assert.Equal(t, days[i-1].AddDays(1), days[i])
			}
			assert.False(t, tt.ref.Before(days[0]))
			assert.False(t, days[0].AddDays(6).Before(tt.ref))
		})
	}
}

func TestWeekDaysFromUnknownLength(t *testing.T) {
	assert.Len(t, WeekDaysFrom(NewDate(2025, time.May, 7), 3), 5)
}

func TestWeekDaysFromEveryWeekday(t *testing.T) {
	start := NewDate(2024, time.February, 20)
	for i := 0; i < 21; i++ {
		ref := start.AddDays(i)
		days := WeekDaysFrom(ref, 5)
		assert.Equal(t, time.Monday, days[0].Weekday(), ref.ISO())
		assert.False(t, ref.Before(days[0]), ref.ISO())
		assert.False(t, days[0].AddDays(6).Before(ref), ref.ISO())
	}
}

func TestDateFormats(t *testing.T) {
	d := NewDate(2025, time.May, 1)
	assert.Equal(t, "1/5/2025", d.Key())
	assert.Equal(t, "2025-05-01", d.ISO())
	assert.Equal(t, "01/05/2025", d.Canonical())

	parsed, err := ParseKey("1/5/2025")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	parsed, err = ParseKey("01/05/2025")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	parsed, err = ParseISO("2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseISO("01-05-2025")
	assert.Error(t, err)
}

func TestDateOfUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	late := time.Date(2025, time.May, 2, 1, 0, 0, 0, loc) // 23:00 UTC on May 1
	assert.Equal(t, NewDate(2025, time.May, 1), DateOf(late))
}

func TestWeekNavigation(t *testing.T) {
	d := NewDate(2025, time.May, 7)
	assert.Equal(t, NewDate(2025, time.May, 14), NextWeek(d))
	assert.Equal(t, NewDate(2025, time.April, 30), PrevWeek(d))
}

func TestSlotHelpers(t *testing.T) {
	assert.Equal(t, Slot("09:30"), SlotAt(time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, 570, Slot("09:30").Minutes())

	_, err := ParseSlot("9:30")
	assert.Error(t, err)
	s, err := ParseSlot("09:30")
	require.NoError(t, err)
	assert.Equal(t, Slot("09:30"), s)

	d := NewDate(2025, time.May, 1)
	assert.Equal(t, time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC), d.At("09:30"))
}

func TestLocalLabel(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	d := NewDate(2025, time.May, 1)
	assert.Equal(t, "11:00", LocalLabel(d, "09:00", loc))
	assert.Equal(t, "09:00", LocalLabel(d, "09:00", time.UTC))
}
