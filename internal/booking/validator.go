// Package booking validates cart entries and submits them as reservations.
package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"byronhub/internal/cart"
)

// Validation error kinds. ValidationError unwraps to one of them.
var (
	ErrMissingField          = errors.New("missing field")
	ErrBadTimeFormat         = errors.New("bad time format")
	ErrBadDateFormat         = errors.New("bad date format")
	ErrNonPositiveAttendance = errors.New("attendance must be a positive integer")
	ErrBadDuration           = errors.New("duration must be a positive number of minutes")
	ErrCapacityExceeded      = errors.New("capacity exceeded")
)

var (
	timePattern    = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	canonicalDate  = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
)

// ValidationError describes the first rule a form broke.
type ValidationError struct {
	Kind  error
	Field string
	Value string
	// Limit is the room capacity for ErrCapacityExceeded.
	Limit int
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrMissingField):
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	case errors.Is(e.Kind, ErrCapacityExceeded):
		return fmt.Sprintf("%v: %s people for a room of %d", e.Kind, e.Value, e.Limit)
	default:
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Kind)
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Form holds the raw booking fields as typed by the user.
type Form struct {
	Use      string
	People   string
	Start    string
	Duration string
	Date     string
	Comments string
}

// FormOf extracts the form fields of a cart entry.
func FormOf(e cart.Entry) Form {
	return Form{
		Use:      e.Usage,
		People:   e.People,
		Start:    e.Start,
		Duration: e.Duration,
		Date:     e.Date,
		Comments: e.Comments,
	}
}

// Normalized is a validated form ready to be sent.
type Normalized struct {
	Date        string // DD/MM/YYYY
	StartTime   string // YYYY-MM-DDTHH:MM:00, local wall clock
	EndTime     string // HH:MM
	Duration    int
	People      int
	Usage       string
	Description string
	// DayOverflow is set when the booking ends on a later day than it starts.
	DayOverflow bool
}

// Validator checks booking forms.
type Validator struct {
	// ManagerCapacityOverride lets managers book past a room's capacity.
	ManagerCapacityOverride bool
}

// Validate checks f against capacity (nil means unlimited) for a regular user.
func Validate(f Form, capacity *int) (Normalized, error) {
	return Validator{}.Validate(f, capacity, false)
}

// Validate applies the rules in order and returns the first failure.
func (v Validator) Validate(f Form, capacity *int, manager bool) (Normalized, error) {
	required := []struct{ name, value string }{
		{"use", f.Use},
		{"people", f.People},
		{"start", f.Start},
		{"duration", f.Duration},
		{"date", f.Date},
		{"comments", strings.TrimSpace(f.Comments)},
	}
	for _, r := range required {
		if r.value == "" {
			return Normalized{}, &ValidationError{Kind: ErrMissingField, Field: r.name}
		}
	}

	date := NormalizeDate(f.Date)

	if !timePattern.MatchString(f.Start) {
		return Normalized{}, &ValidationError{Kind: ErrBadTimeFormat, Field: "start", Value: f.Start}
	}
	m := canonicalDate.FindStringSubmatch(date)
	if m == nil {
		return Normalized{}, &ValidationError{Kind: ErrBadDateFormat, Field: "date", Value: f.Date}
	}

	people, err := strconv.Atoi(f.People)
	if err != nil || people <= 0 {
		return Normalized{}, &ValidationError{Kind: ErrNonPositiveAttendance, Field: "people", Value: f.People}
	}
	duration, err := strconv.Atoi(f.Duration)
	if err != nil || duration <= 0 {
		return Normalized{}, &ValidationError{Kind: ErrBadDuration, Field: "duration", Value: f.Duration}
	}

	if capacity != nil && people > *capacity && !(manager && v.ManagerCapacityOverride) {
		return Normalized{}, &ValidationError{
			Kind:  ErrCapacityExceeded,
			Field: "people",
			Value: f.People,
			Limit: *capacity,
		}
	}

	start := f.Start
	if len(start) == 4 {
		start = "0" + start
	}
	end, overflow := EndTime(start, duration)

	return Normalized{
		Date:        date,
		StartTime:   fmt.Sprintf("%s-%s-%sT%s:00", m[3], m[2], m[1], start),
		EndTime:     end,
		Duration:    duration,
		People:      people,
		Usage:       f.Use,
		Description: f.Comments,
		DayOverflow: overflow,
	}, nil
}

// NormalizeDate turns YYYY-MM-DD into DD/MM/YYYY and zero-pads the day and
// month of a slash-delimited date. Anything else is returned unchanged.
func NormalizeDate(s string) string {
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return m[3] + "/" + m[2] + "/" + m[1]
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	for i := 0; i < 2; i++ {
		if len(parts[i]) == 1 {
			parts[i] = "0" + parts[i]
		}
	}
	return strings.Join(parts, "/")
}

// EndTime adds minutes to an HH:MM start. The hour wraps at 24; overflow
// reports that the end falls on a later day.
func EndTime(start string, minutes int) (string, bool) {
	h, _ := strconv.Atoi(start[:2])
	m, _ := strconv.Atoi(start[3:])
	total := h*60 + m + minutes
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60), total >= 24*60
}
