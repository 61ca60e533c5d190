package availability

import (
	"bytes"
	"testing"
	"time"

	"byronhub/internal/model"
	"byronhub/internal/timegrid"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservation(id int64, start string, duration int) model.Reservation {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return model.Reservation{ID: id, SpaceID: "A0.5", StartTime: t, Duration: duration}
}

func TestResolve_SingleReservation(t *testing.T) {
	r := NewResolver(nil)
	m := r.Resolve([]model.Reservation{reservation(1, "2025-05-01T09:00:00Z", 90)})

	require.Len(t, m, 1)
	require.Contains(t, m, "1/5/2025")
	assert.Equal(t, []timegrid.Slot{"09:00", "09:30", "10:00"}, m["1/5/2025"].Sorted())
}

func TestResolve_Empty(t *testing.T) {
	r := NewResolver(nil)
	assert.Empty(t, r.Resolve(nil))
	assert.Empty(t, r.Resolve([]model.Reservation{}))
}

func TestResolve_DifferentDates(t *testing.T) {
	r := NewResolver(nil)
	m := r.Resolve([]model.Reservation{
		reservation(1, "2025-05-01T09:00:00Z", 60),
		reservation(2, "2025-05-02T14:00:00Z", 30),
	})

	require.Len(t, m, 2)
	assert.Equal(t, []timegrid.Slot{"09:00", "09:30"}, m["1/5/2025"].Sorted())
	assert.Equal(t, []timegrid.Slot{"14:00"}, m["2/5/2025"].Sorted())
	for s := range m["1/5/2025"] {
		assert.False(t, m["2/5/2025"].Has(s))
	}
}

func TestResolve_OverlappingIsIdempotent(t *testing.T) {
	r := NewResolver(nil)
	m := r.Resolve([]model.Reservation{
		reservation(1, "2025-05-01T09:00:00Z", 60),
		reservation(2, "2025-05-01T09:30:00Z", 60),
	})
	assert.Equal(t, []timegrid.Slot{"09:00", "09:30", "10:00"}, m["1/5/2025"].Sorted())
}

func TestResolve_UsesUTC(t *testing.T) {
	r := NewResolver(nil)
	// 01:00 at UTC+2 on May 2 is 23:00 UTC on May 1.
	m := r.Resolve([]model.Reservation{reservation(1, "2025-05-02T01:00:00+02:00", 30)})
	require.Contains(t, m, "1/5/2025")
	assert.True(t, m.IsBooked(timegrid.NewDate(2025, time.May, 1), "23:00"))
}

func TestResolve_CrossesMidnight(t *testing.T) {
	r := NewResolver(nil)
	m := r.Resolve([]model.Reservation{reservation(1, "2025-05-01T23:30:00Z", 60)})
	assert.Equal(t, []timegrid.Slot{"23:30"}, m["1/5/2025"].Sorted())
	assert.Equal(t, []timegrid.Slot{"00:00"}, m["2/5/2025"].Sorted())
}

func TestResolve_MisalignedStart(t *testing.T) {
	r := NewResolver(nil)
	m := r.Resolve([]model.Reservation{reservation(1, "2025-05-01T09:15:00Z", 30)})
	assert.Equal(t, []timegrid.Slot{"09:00", "09:30"}, m["1/5/2025"].Sorted())
}

func TestResolve_SkipsInvalidDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := NewResolver(&logger)

	m := r.Resolve([]model.Reservation{
		reservation(1, "2025-05-01T09:00:00Z", 0),
		reservation(2, "2025-05-01T10:00:00Z", -30),
		reservation(3, "2025-05-01T11:00:00Z", 30),
	})

	assert.Equal(t, []timegrid.Slot{"11:00"}, m["1/5/2025"].Sorted())
	assert.Contains(t, buf.String(), "skipping reservation")
	assert.Contains(t, buf.String(), `"reservation_id":1`)
	assert.Contains(t, buf.String(), `"reservation_id":2`)
}

func TestSlotsFor_InvalidDuration(t *testing.T) {
	_, err := SlotsFor(reservation(9, "2025-05-01T09:00:00Z", 0))
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestMap_Merge(t *testing.T) {
	r := NewResolver(nil)
	a := r.Resolve([]model.Reservation{reservation(1, "2025-05-01T09:00:00Z", 30)})
	b := r.Resolve([]model.Reservation{
		reservation(2, "2025-05-01T10:00:00Z", 30),
		reservation(3, "2025-05-03T10:00:00Z", 30),
	})

	a.Merge(b)
	assert.Equal(t, []timegrid.Slot{"09:00", "10:00"}, a.Day(timegrid.NewDate(2025, time.May, 1)))
	assert.Equal(t, []timegrid.Slot{"10:00"}, a.Day(timegrid.NewDate(2025, time.May, 3)))
	assert.Len(t, b, 2)
}
