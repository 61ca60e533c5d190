package availability

import (
	"errors"

	"byronhub/internal/timegrid"
)

// ErrNotSelectable is returned when picking a cell the viewer may not book.
var ErrNotSelectable = errors.New("slot is not selectable")

// Status of a grid cell.
type Status string

const (
	StatusFree    Status = "free"
	StatusBooked  Status = "booked"
	StatusHoliday Status = "holiday"
)

// Cell is one slot of one day as rendered in the calendar.
type Cell struct {
	Slot   timegrid.Slot
	Status Status
	// Selectable is true for free cells, and for booked cells when the
	// viewer is a manager (who opens the booking to manage it).
	Selectable bool
}

// Day is one calendar column.
type Day struct {
	Date    timegrid.Date
	Holiday bool
	Cells   []Cell
}

// Pick is the date and time a calendar click pre-fills into the booking form.
type Pick struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
}

// BuildGrid lays out week against occupied slots and holidays.
func BuildGrid(week []timegrid.Date, m Map, holidays Holidays, manager bool) []Day {
	slots := timegrid.GenerateDaySlots()
	days := make([]Day, 0, len(week))
	for _, d := range week {
		day := Day{Date: d, Holiday: holidays.Contains(d), Cells: make([]Cell, 0, len(slots))}
		for _, s := range slots {
			c := Cell{Slot: s}
			switch {
			case day.Holiday:
				c.Status = StatusHoliday
			case m.IsBooked(d, s):
				c.Status = StatusBooked
				c.Selectable = manager
			default:
				c.Status = StatusFree
				c.Selectable = true
			}
			day.Cells = append(day.Cells, c)
		}
		days = append(days, day)
	}
	return days
}

// Pick returns the form pre-fill for slot s of the day.
func (d Day) Pick(s timegrid.Slot) (Pick, error) {
	for _, c := range d.Cells {
		if c.Slot != s {
			continue
		}
		if !c.Selectable {
			return Pick{}, ErrNotSelectable
		}
		return Pick{Date: d.Date.ISO(), Time: string(s)}, nil
	}
	return Pick{}, ErrNotSelectable
}

// Free returns the selectable free slots of the day.
func (d Day) Free() []timegrid.Slot {
	var out []timegrid.Slot
	for _, c := range d.Cells {
		if c.Status == StatusFree {
			out = append(out, c.Slot)
		}
	}
	return out
}

// DurationOptions returns the durations in minutes that fit in consecutive
// free cells starting at s. A booked or missing start yields nil.
func (d Day) DurationOptions(s timegrid.Slot) []int {
	start := -1
	for i, c := range d.Cells {
		if c.Slot == s && c.Status == StatusFree {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var options []int
	for i := start; i < len(d.Cells); i++ {
		if d.Cells[i].Status != StatusFree {
			break
		}
		options = append(options, (i-start+1)*timegrid.SlotMinutes)
	}
	return options
}
