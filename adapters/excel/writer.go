package excel

import (
	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/logging"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used when writing tables.
const DefaultSheet = "Sheet1"

// WriteTable writes a survey table to a new workbook, header first.
// Numbers are stored as numbers, missing cells are left empty.
func WriteTable(path, sheet string, table *survey.Table) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return errors.IOError("name sheet", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.IOError("open stream writer", err)
	}

	columns := table.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.IOError("write header", err)
	}

	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v.Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.InternalError(err.Error())
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return errors.IOError("write row", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.IOError("flush rows", err)
	}
	if err := f.SaveAs(path); err != nil {
		return errors.IOError("save workbook", err)
	}

	logging.Component("excel").Info().
		Str("path", path).
		Int("rows", table.Len()).
		Int("columns", len(columns)).
		Msg("Table written")
	return nil
}
