package cart

import (
	"byronhub/internal/model"
)

// Entry is a pending booking intent for one room. Values are kept as the
// user entered them; normalization happens when the booking is validated.
type Entry struct {
	RoomID   model.ID `json:"id"`
	RoomName string   `json:"name"`
	Category string   `json:"category,omitempty"`
	// Capacity is nil when the room has no known limit.
	Capacity *int     `json:"capacity,omitempty"`
	Floor    string   `json:"floor,omitempty"`
	Usage    string   `json:"use"`
	People   string   `json:"people"`
	Date     string   `json:"date"` // D/M/YYYY or YYYY-MM-DD
	Start    string   `json:"start"`
	Duration string   `json:"duration"` // minutes
	Comments string   `json:"comments"`
}

// Equal reports whether every field of e and o matches.
func (e Entry) Equal(o Entry) bool {
	if (e.Capacity == nil) != (o.Capacity == nil) {
		return false
	}
	if e.Capacity != nil && *e.Capacity != *o.Capacity {
		return false
	}
	return e.RoomID == o.RoomID &&
		e.RoomName == o.RoomName &&
		e.Category == o.Category &&
		e.Floor == o.Floor &&
		e.Usage == o.Usage &&
		e.People == o.People &&
		e.Date == o.Date &&
		e.Start == o.Start &&
		e.Duration == o.Duration &&
		e.Comments == o.Comments
}

// InitialTime is the slot of the most recent calendar click.
type InitialTime struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Details are the room-detail form fields the user fills in after picking a slot.
type Details struct {
	Use      string
	People   string
	Duration string
	Comments string
	// Start overrides the picked time when the user edited it.
	Start string
}

// FromSlotPick builds the entry for space from the picked slot and form.
func FromSlotPick(space model.Space, at InitialTime, d Details) Entry {
	e := Entry{
		RoomID:   space.ID,
		RoomName: space.Name,
		Category: space.Category,
		Floor:    space.Floor,
		Usage:    d.Use,
		People:   d.People,
		Date:     at.Date,
		Start:    at.Time,
		Duration: d.Duration,
		Comments: d.Comments,
	}
	if space.Capacity > 0 {
		capacity := space.Capacity
		e.Capacity = &capacity
	}
	if e.RoomName == "" {
		e.RoomName = space.ID.String()
	}
	if d.Start != "" {
		e.Start = d.Start
	}
	return e
}
