// Package availability turns reservation records into per-day sets of
// occupied half-hour slots.
//
// Every date key and slot label is computed in UTC, matching timegrid.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"byronhub/internal/metrics"
	"byronhub/internal/model"
	"byronhub/internal/timegrid"

	"github.com/rs/zerolog"
)

const step = timegrid.SlotMinutes * time.Minute

// ErrInvalidDuration marks a record whose duration is zero or negative.
var ErrInvalidDuration = errors.New("invalid duration")

// SlotSet is a set of occupied slots for one day.
type SlotSet map[timegrid.Slot]struct{}

// Has reports whether s is occupied.
func (ss SlotSet) Has(s timegrid.Slot) bool {
	_, ok := ss[s]
	return ok
}

// Sorted returns the slots in ascending order.
func (ss SlotSet) Sorted() []timegrid.Slot {
	out := make([]timegrid.Slot, 0, len(ss))
	for s := range ss {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Map holds occupied slots keyed by timegrid.Date.Key ("D/M/YYYY").
type Map map[string]SlotSet

func (m Map) add(d timegrid.Date, s timegrid.Slot) {
	key := d.Key()
	set, ok := m[key]
	if !ok {
		set = make(SlotSet)
		m[key] = set
	}
	set[s] = struct{}{}
}

// IsBooked reports whether slot s on d is occupied.
func (m Map) IsBooked(d timegrid.Date, s timegrid.Slot) bool {
	return m[d.Key()].Has(s)
}

// Day returns the occupied slots of d in ascending order.
func (m Map) Day(d timegrid.Date) []timegrid.Slot {
	return m[d.Key()].Sorted()
}

// Merge adds every slot of other into m.
func (m Map) Merge(other Map) {
	for key, set := range other {
		dst, ok := m[key]
		if !ok {
			dst = make(SlotSet, len(set))
			m[key] = dst
		}
		for s := range set {
			dst[s] = struct{}{}
		}
	}
}

// Occupied is one half-hour taken by a reservation.
type Occupied struct {
	Date timegrid.Date
	Slot timegrid.Slot
}

// SlotsFor walks [start, start+duration) in half-hour steps. A start that is
// not on a half-hour boundary occupies the slot it falls in. Steps past
// midnight are attributed to the following date.
func SlotsFor(r model.Reservation) ([]Occupied, error) {
	if r.Duration <= 0 {
		return nil, fmt.Errorf("reservation %d: %w: %d minutes", r.ID, ErrInvalidDuration, r.Duration)
	}

	start := r.StartTime.UTC()
	end := start.Add(time.Duration(r.Duration) * time.Minute)

	var out []Occupied
	for t := start.Truncate(step); t.Before(end); t = t.Add(step) {
		out = append(out, Occupied{Date: timegrid.DateOf(t), Slot: timegrid.SlotAt(t)})
	}
	return out, nil
}

// Resolver builds availability maps and reports malformed records.
type Resolver struct {
	logger *zerolog.Logger
}

// NewResolver creates a resolver logging skipped records to logger.
func NewResolver(logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{logger: logger}
}

// Resolve returns the occupied slots of all records. Malformed records are
// logged and skipped.
func (r *Resolver) Resolve(records []model.Reservation) Map {
	m := make(Map)
	for i := range records {
		occupied, err := SlotsFor(records[i])
		if err != nil {
			metrics.IncResolverSkipped()
			r.logger.Warn().Err(err).
				Int64("reservation_id", records[i].ID).
				Str("space_id", records[i].SpaceID.String()).
				Msg("skipping reservation")
			continue
		}
		for _, o := range occupied {
			m.add(o.Date, o.Slot)
		}
	}
	return m
}
