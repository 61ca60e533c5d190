package model

import "time"

// Reservation states as reported by the backend.
const (
	StatePending   = "PENDING"
	StateAccepted  = "ACCEPTED"
	StateRejected  = "REJECTED"
	StateCancelled = "CANCELLED"
)

// Reservation is a booking record owned by the backend.
type Reservation struct {
	ID           int64     `json:"id"`
	SpaceID      ID        `json:"spaceId"`
	PersonID     ID        `json:"personId"`
	StartTime    time.Time `json:"startTime"`
	Duration     int       `json:"duration"` // minutes
	MaxAttendees int       `json:"maxAttendees"`
	Usage        string    `json:"usage"`
	Description  string    `json:"description"`
	State        string    `json:"state"`
}

// EndTime returns StartTime + Duration.
func (r *Reservation) EndTime() time.Time {
	return r.StartTime.Add(time.Duration(r.Duration) * time.Minute)
}

// OverlapsWith checks half-open interval overlap with another reservation.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return r.StartTime.Before(other.EndTime()) && other.StartTime.Before(r.EndTime())
}

// Space is a bookable room as used by the engine.
type Space struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Floor        string `json:"floor"`
	MaxOccupants int    `json:"maxOccupants"`
	MaxUsage     int    `json:"maxUsage"` // percent
	Capacity     int    `json:"capacity"`
	AssignedTo   string `json:"assignedTo,omitempty"`
}

// Person is a backend user record.
type Person struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// Notification is a message addressed to a person.
type Notification struct {
	ID      int64     `json:"id"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}
