// Package export writes the week plan and pantry as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/savr-devTeam/savr.ai/internal/pantry"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

// Sheet names.
const (
	WeekSheet   = "Week"
	PantrySheet = "Pantry"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteWorkbook writes an xlsx with a Week sheet (one row per slot, one column
// per day, plus a calorie total row) and a Pantry sheet.
func WriteWorkbook(w io.Writer, g week.Grid, items []pantry.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", WeekSheet); err != nil {
		return fmt.Errorf("failed to name week sheet: %w", err)
	}
	if err := writeWeek(f, g); err != nil {
		return fmt.Errorf("failed to write week sheet: %w", err)
	}

	if _, err := f.NewSheet(PantrySheet); err != nil {
		return fmt.Errorf("failed to create pantry sheet: %w", err)
	}
	if err := writePantry(f, items); err != nil {
		return fmt.Errorf("failed to write pantry sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeWeek(f *excelize.File, g week.Grid) error {
	sw, err := f.NewStreamWriter(WeekSheet)
	if err != nil {
		return err
	}

	header := []interface{}{""}
	for _, d := range week.DayLabels {
		header = append(header, d)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, slot := range week.Slots {
		row := []interface{}{string(slot)}
		for _, day := range g {
			title := ""
			if c := day.Get(slot); c != nil {
				title = c.Title
			}
			row = append(row, title)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	totals := []interface{}{"Calories"}
	for _, day := range g {
		var cals float64
		for _, slot := range week.Slots {
			if c := day.Get(slot); c != nil {
				cals += c.Calories
			}
		}
		totals = append(totals, cals)
	}
	cell, _ := excelize.CoordinatesToCellName(1, len(week.Slots)+2)
	if err := sw.SetRow(cell, totals); err != nil {
		return err
	}
	return sw.Flush()
}

func writePantry(f *excelize.File, items []pantry.Item) error {
	sw, err := f.NewStreamWriter(PantrySheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", []interface{}{"Item", "Checked", "Source"}); err != nil {
		return err
	}
	for i, it := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{it.Text, it.Checked, string(it.Source)}); err != nil {
			return err
		}
	}
	return sw.Flush()
}
