package report

import (
	"bytes"
	"testing"
	"time"

	"byronhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportReservations(t *testing.T) {
	reservations := []model.Reservation{
		{
			ID: 2, SpaceID: "A1.2", StartTime: time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC),
			Duration: 60, MaxAttendees: 8, Usage: "Class", State: model.StateAccepted,
		},
		{
			ID: 1, SpaceID: "A0.5", StartTime: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
			Duration: 90, MaxAttendees: 4, Usage: "Meeting", Description: "sync", State: model.StatePending,
		},
	}
	madrid := time.FixedZone("CEST", 2*60*60)

	var buf bytes.Buffer
	require.NoError(t, ExportReservations(&buf, reservations, madrid))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Reservations"}, f.GetSheetList())
	rows, err := f.GetRows("Reservations")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, reservationColumns, rows[0])
	assert.Equal(t, []string{"1", "A0.5", "01/05/2025", "11:00", "12:30", "4", "Meeting", "sync", "PENDING"}, rows[1])
	assert.Equal(t, []string{"2", "A1.2", "02/05/2025", "16:00", "17:00", "8", "Class", "", "ACCEPTED"}, rows[2])
}

func TestExportReservations_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportReservations(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Reservations")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSheetWriter(t *testing.T) {
	w := NewSheetWriter()
	defer w.Close()

	assert.ErrorIs(t, w.WriteRow([]any{"x"}), ErrNoSheet)
	require.NoError(t, w.AddSheet("First"))
	require.NoError(t, w.WriteRow([]any{"a", 1}))
	require.NoError(t, w.AddSheet("a sheet name that is longer than excel allows"))

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"First", "a sheet name that is longer tha"}, f.GetSheetList())
}
