package availability

import (
	"errors"
	"fmt"
	"time"

	"byronhub/internal/timegrid"
)

// Holidays is the set of non-bookable dates. It is kept apart from Map: the
// grid blocks a holiday whatever the reservations say.
type Holidays map[timegrid.Date]struct{}

// ParseHolidays accepts "YYYY-MM-DD" or RFC 3339 timestamps (taken as their UTC
// date). Entries that cannot be parsed are reported and left out.
func ParseHolidays(raw []string) (Holidays, error) {
	h := make(Holidays, len(raw))
	var errs []error
	for _, s := range raw {
		if d, err := timegrid.ParseISO(s); err == nil {
			h[d] = struct{}{}
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("holiday %q: unrecognized date", s))
			continue
		}
		h[timegrid.DateOf(t)] = struct{}{}
	}
	return h, errors.Join(errs...)
}

// Contains reports whether d is a holiday.
func (h Holidays) Contains(d timegrid.Date) bool {
	_, ok := h[d]
	return ok
}
