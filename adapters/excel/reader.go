package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"surveydeck/adapters/coercer"
	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
	"surveydeck/internal/logging"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   Config
}

// NewDataReader creates a reader that handles both Excel and CSV files.
func NewDataReader(filePath string, config Config) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, config: config}
}

// ReadTable reads the configured sheet into a typed survey table.
func (r *DataReader) ReadTable() (*survey.Table, error) {
	raw, err := r.ReadRaw()
	if err != nil {
		return nil, err
	}

	c := coercer.New(r.config.Coercion)
	table := survey.NewTable(raw.Headers...)
	for i, row := range raw.Rows {
		if len(row) > len(raw.Headers) {
			row = row[:len(raw.Headers)]
		}
		if err := table.AppendRow(c.CoerceRow(row)...); err != nil {
			return nil, errors.Wrapf(err, "row %d", i+2)
		}
	}
	return table, nil
}

// ReadRaw reads headers and string rows without coercion.
func (r *DataReader) ReadRaw() (*RawData, error) {
	logger := logging.Component("excel")
	logger.Debug().Str("type", r.fileType).Str("path", r.filePath).Msg("Reading data file")

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.IOError(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath), err)
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows(r.config.Sheet)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug().Dur("elapsed", time.Since(start)).Int("rows", len(rows)).Msg("File read")

	if len(rows) < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s has no header row", r.filePath))
	}
	data := processRows(rows)
	logger.Info().
		Str("path", r.filePath).
		Int("columns", len(data.Headers)).
		Int("rows", len(data.Rows)).
		Msg("Data file processed")
	return data, nil
}

// ReadMapping reads a two-column lookup from a sheet, keyed by keyHeader.
// Rows with a blank key or value are skipped; later rows win on duplicates.
func (r *DataReader) ReadMapping(sheet, keyHeader, valueHeader string) (map[string]string, error) {
	rows, err := r.readExcelRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("sheet %q has no header row", sheet))
	}
	data := processRows(rows)

	keyIdx, valueIdx := -1, -1
	for i, h := range data.Headers {
		switch h {
		case keyHeader:
			keyIdx = i
		case valueHeader:
			valueIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, errors.MissingColumn(keyHeader)
	}
	if valueIdx < 0 {
		return nil, errors.MissingColumn(valueHeader)
	}

	out := make(map[string]string, len(data.Rows))
	for _, row := range data.Rows {
		if keyIdx >= len(row) || valueIdx >= len(row) {
			continue
		}
		k, v := row[keyIdx], row[valueIdx]
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	logging.Component("excel").Debug().Str("sheet", sheet).Int("entries", len(out)).Msg("Mapping loaded")
	return out, nil
}

// QuestionMap reads the original → short column name mapping.
func (r *DataReader) QuestionMap() (map[string]string, error) {
	return r.ReadMapping(QuestionMapSheet, OriginalHeader, ShortHeader)
}

// RegionMap reads the target name → region mapping.
func (r *DataReader) RegionMap() (map[string]string, error) {
	return r.ReadMapping(RegionSheet, TargetHeader, RegionHeader)
}

func (r *DataReader) readExcelRows(sheet string) ([][]string, error) {
	if r.fileType != "xlsx" {
		return nil, errors.InvalidInput(fmt.Sprintf("%s is not a workbook", r.filePath))
	}
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.IOError("open workbook", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.IOError(fmt.Sprintf("read sheet %q", sheet), err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IOError("open CSV file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IOError("read CSV file", err)
	}
	return rows, nil
}

// processRows trims headers and cells. Blank headers get a positional name
// and repeated headers a numeric suffix so that every column is addressable.
func processRows(rows [][]string) *RawData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	seen := make(map[string]int, len(headerRow))
	for i, header := range headerRow {
		h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		headers[i] = h
	}

	data := &RawData{Headers: headers}
	for _, row := range rows[1:] {
		cells := make([]string, len(row))
		blank := true
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
			if cells[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		data.Rows = append(data.Rows, cells)
	}
	return data
}
