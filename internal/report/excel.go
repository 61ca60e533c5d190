// Package report exports reservations as spreadsheets.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"byronhub/internal/model"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned when writing before AddSheet.
var ErrNoSheet = errors.New("no active sheet")

// SheetWriter fills an xlsx workbook row by row.
type SheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewSheetWriter() *SheetWriter {
	return &SheetWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet. The first call renames the default sheet.
func (w *SheetWriter) AddSheet(name string) error {
	// Excel limits sheet names to 31 characters.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes a bold header row.
func (w *SheetWriter) WriteHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.WriteRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
	end, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
	return w.file.SetCellStyle(w.currentSheet, start, end, style)
}

// WriteRow writes values into the next row.
func (w *SheetWriter) WriteRow(values []any) error {
	if w.currentSheet == "" {
		return ErrNoSheet
	}
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &values); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *SheetWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *SheetWriter) Close() error {
	return w.file.Close()
}

var reservationColumns = []string{"ID", "Space", "Date", "Start", "End", "Attendees", "Use", "Description", "State"}

// ExportReservations writes one sheet listing reservations by start time.
// Dates and times are rendered in loc.
func ExportReservations(wr io.Writer, reservations []model.Reservation, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	sorted := make([]model.Reservation, len(reservations))
	copy(sorted, reservations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	w := NewSheetWriter()
	defer w.Close()

	if err := w.AddSheet("Reservations"); err != nil {
		return err
	}
	if err := w.WriteHeader(reservationColumns); err != nil {
		return err
	}
	for i := range sorted {
		r := &sorted[i]
		start := r.StartTime.In(loc)
		if err := w.WriteRow([]any{
			r.ID,
			r.SpaceID.String(),
			start.Format("02/01/2006"),
			start.Format("15:04"),
			r.EndTime().In(loc).Format("15:04"),
			r.MaxAttendees,
			r.Usage,
			r.Description,
			r.State,
		}); err != nil {
			return fmt.Errorf("write reservation %d: %w", r.ID, err)
		}
	}
	return w.Save(wr)
}
