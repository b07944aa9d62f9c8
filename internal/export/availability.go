// Package export renders availability grids as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"vitrina/internal/models"
	"vitrina/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Доступность"
	headerRow   = 2
	firstDayRow = 3
	// колонки A и B заняты датой и днём недели
	firstHourCol = 3
)

type styles struct {
	title, header, dayHeader, booked, free int
}

// AvailabilityWorkbook builds a grid with one row per day and one column per hour.
// Booked cells carry the booking number.
func AvailabilityWorkbook(performer *models.Performer, days []models.DayAvailability) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	title := performer.Name
	if len(days) > 0 {
		title = fmt.Sprintf("%s: %s - %s", performer.Name,
			days[0].Date.Format("02.01.2006"), days[len(days)-1].Date.Format("02.01.2006"))
	}
	_ = f.SetCellValue(SheetName, "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(firstHourCol + models.HoursPerDay - 1)
	_ = f.MergeCell(SheetName, "A1", lastCol+"1")
	_ = f.SetCellStyle(SheetName, "A1", "A1", st.title)

	writeHeaders(f, st)
	for i, day := range days {
		writeDay(f, st, firstDayRow+i, day)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 12)
	_ = f.SetColWidth(SheetName, "B", "B", 12)
	firstCol, _ := excelize.ColumnNumberToName(firstHourCol)
	_ = f.SetColWidth(SheetName, firstCol, lastCol, 16)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// WriteAvailability streams the workbook to w.
func WriteAvailability(w io.Writer, performer *models.Performer, days []models.DayAvailability) error {
	f, err := AvailabilityWorkbook(performer, days)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// HourCell returns the cell address of an hour on the given day row index.
func HourCell(dayIndex, hour int) string {
	cell, _ := excelize.CoordinatesToCellName(firstHourCol+hour, firstDayRow+dayIndex)
	return cell
}

func writeHeaders(f *excelize.File, st styles) {
	_ = f.SetCellValue(SheetName, "A2", "Дата")
	_ = f.SetCellValue(SheetName, "B2", "День")
	for h := 0; h < models.HoursPerDay; h++ {
		cell, _ := excelize.CoordinatesToCellName(firstHourCol+h, headerRow)
		_ = f.SetCellValue(SheetName, cell, fmt.Sprintf("%02d:00", h))
	}
	lastCell, _ := excelize.CoordinatesToCellName(firstHourCol+models.HoursPerDay-1, headerRow)
	_ = f.SetCellStyle(SheetName, "A2", lastCell, st.header)
}

func writeDay(f *excelize.File, st styles, row int, day models.DayAvailability) {
	dateCell, _ := excelize.CoordinatesToCellName(1, row)
	nameCell, _ := excelize.CoordinatesToCellName(2, row)
	_ = f.SetCellValue(SheetName, dateCell, timeutil.DateKey(day.Date))
	_ = f.SetCellValue(SheetName, nameCell, day.DayName)
	_ = f.SetCellStyle(SheetName, dateCell, nameCell, st.dayHeader)

	for _, slot := range day.Hourly {
		cell, _ := excelize.CoordinatesToCellName(firstHourCol+slot.Hour, row)
		if !slot.IsBooked {
			_ = f.SetCellStyle(SheetName, cell, cell, st.free)
			continue
		}
		value := "Занято"
		if slot.BookingRef != nil {
			value = slot.BookingRef.BookingNumber
		}
		_ = f.SetCellValue(SheetName, cell, value)
		_ = f.SetCellStyle(SheetName, cell, cell, st.booked)
	}
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	cellAlign := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, fmt.Errorf("error creating style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, fmt.Errorf("error creating style: %w", err)
	}
	if st.dayHeader, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return st, fmt.Errorf("error creating style: %w", err)
	}
	if st.booked, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
		Alignment: cellAlign,
	}); err != nil {
		return st, fmt.Errorf("error creating style: %w", err)
	}
	if st.free, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		Alignment: cellAlign,
	}); err != nil {
		return st, fmt.Errorf("error creating style: %w", err)
	}
	return st, nil
}
