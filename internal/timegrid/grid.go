// Package timegrid provides the half-hour slot vocabulary and week boundaries
// used by the availability calendar.
//
// All dates are civil dates computed in UTC. Slots are UTC labels; converting
// to local wall clock happens only through LocalLabel, which returns a plain
// string so it can never be mixed into an availability map.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DayStartHour is the first hour rendered in the grid.
	DayStartHour = 8
	// DayEndHour is the last hour rendered in the grid (its :00 slot only).
	DayEndHour = 20
	// SlotMinutes is the grid step.
	SlotMinutes = 30
)

// Slot is a half-hour label "HH:MM" in UTC.
type Slot string

// SlotAt returns the UTC slot label of t.
func SlotAt(t time.Time) Slot {
	return Slot(t.UTC().Format("15:04"))
}

// ParseSlot checks that s is a zero-padded "HH:MM" label.
func ParseSlot(s string) (Slot, error) {
	if _, err := time.Parse("15:04", s); err != nil || len(s) != 5 {
		return "", fmt.Errorf("invalid slot %q", s)
	}
	return Slot(s), nil
}

// Minutes returns minutes since midnight.
func (s Slot) Minutes() int {
	parts := strings.SplitN(string(s), ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}

func (s Slot) String() string { return string(s) }

// GenerateDaySlots returns 08:00, 08:30, ... 20:00 (25 labels).
func GenerateDaySlots() []Slot {
	slots := make([]Slot, 0, (DayEndHour-DayStartHour)*2+1)
	for h := DayStartHour; h <= DayEndHour; h++ {
		slots = append(slots, Slot(fmt.Sprintf("%02d:00", h)))
		if h < DayEndHour {
			slots = append(slots, Slot(fmt.Sprintf("%02d:30", h)))
		}
	}
	return slots
}

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes overflowing values (e.g. day 32) the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// Today returns the current UTC date.
func Today() Date {
	return DateOf(time.Now())
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At returns the UTC instant of slot s on d.
func (d Date) At(s Slot) time.Time {
	return d.Time().Add(time.Duration(s.Minutes()) * time.Minute)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of week (Sunday = 0).
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Equal reports whether both dates are the same day.
func (d Date) Equal(o Date) bool { return d == o }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

// Key is the availability map key, "D/M/YYYY" without padding.
func (d Date) Key() string {
	return fmt.Sprintf("%d/%d/%d", d.Day, int(d.Month), d.Year)
}

// ISO is "YYYY-MM-DD", the form used by HTML date inputs.
func (d Date) ISO() string {
	return d.Time().Format("2006-01-02")
}

// Canonical is "DD/MM/YYYY".
func (d Date) Canonical() string {
	return d.Time().Format("02/01/2006")
}

func (d Date) String() string { return d.ISO() }

// ParseISO parses "YYYY-MM-DD".
func ParseISO(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// ParseKey parses "D/M/YYYY" with or without zero padding.
func ParseKey(s string) (Date, error) {
	t, err := time.Parse("2/1/2006", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date key %q: %w", s, err)
	}
	return DateOf(t), nil
}

// WeekDaysFrom returns length consecutive dates starting on the Monday on or
// before ref. Only 5 and 7 are meaningful; anything else yields a 5-day week.
func WeekDaysFrom(ref Date, length int) []Date {
	if length != 7 {
		length = 5
	}
	start := MondayOf(ref)
	days := make([]Date, length)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}

// MondayOf returns the Monday on or before d.
func MondayOf(d Date) Date {
	back := int(d.Weekday()) - 1
	if d.Weekday() == time.Sunday {
		back = 6
	}
	return d.AddDays(-back)
}

// NextWeek returns ref shifted forward by seven days.
func NextWeek(ref Date) Date { return ref.AddDays(7) }

// PrevWeek returns ref shifted back by seven days.
func PrevWeek(ref Date) Date { return ref.AddDays(-7) }

// LocalLabel renders s on d as wall clock time in loc.
func LocalLabel(d Date, s Slot, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return d.At(s).In(loc).Format("15:04")
}
