// Package transfer converts tables to and from tab-delimited text and xlsx
// workbooks.
package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetsync/api/internal/grid"
)

const (
	// SheetName is the single sheet written on export.
	SheetName = "Data"
	// ExportFilename is the download name for an exported workbook.
	ExportFilename = "table-data.xlsx"
	// WorkbookMimeType is the content type of an exported workbook.
	WorkbookMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrImport is the one error every import failure is reported as.
var ErrImport = errors.New("could not import file")

// AcceptedExtensions lists the extensions offered to the user.
var AcceptedExtensions = []string{".xlsx", ".xls", ".txt"}

// ImportError keeps the underlying cause for logs while matching ErrImport.
type ImportError struct {
	Filename string
	Err      error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrImport, e.Filename, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

func (e *ImportError) Is(target error) bool { return target == ErrImport }

// IsText reports whether a file name is read as tab-delimited text.
func IsText(filename string) bool {
	return strings.HasSuffix(filename, ".txt")
}

// Import reads a file into a table. Columns are always regenerated from the
// header row; any prior widths, visibility or order are discarded.
func Import(filename string, r io.Reader) (grid.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return grid.Table{}, &ImportError{Filename: filename, Err: err}
	}
	var data grid.Grid
	if IsText(filename) {
		data = ParseText(string(raw))
	} else {
		data, err = ReadWorkbook(raw)
		if err != nil {
			return grid.Table{}, &ImportError{Filename: filename, Err: err}
		}
	}
	table := grid.Table{Data: data, Columns: grid.HeaderColumns(data)}
	return table.Normalize(), nil
}

// ParseText splits on line breaks, then tabs. Trailing blank lines are dropped.
func ParseText(text string) grid.Grid {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = strings.Split(line, "\t")
	}
	return grid.FromStrings(rows)
}

// ReadWorkbook reads the first sheet of an xlsx workbook. Numeric cells come
// back as numbers, everything else as text.
func ReadWorkbook(data []byte) (grid.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	height, width := len(rows), 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	// GetRows trims trailing blank rows and cells; the stored dimension
	// keeps the extent of a grid that ends in empty rows or columns.
	if dimRows, dimCols, ok := sheetExtent(f, sheet); ok {
		height, width = max(height, dimRows), max(width, dimCols)
	}

	out := make(grid.Grid, height)
	for r := range out {
		out[r] = make([]grid.Cell, width)
		for c := range out[r] {
			out[r][c] = grid.Text("")
		}
		if r >= len(rows) {
			continue
		}
		for c, value := range rows[r] {
			out[r][c] = workbookCell(f, sheet, r, c, value)
		}
	}
	return out, nil
}

// maxExtentCells bounds how far a declared sheet dimension may pad the grid.
const maxExtentCells = 1 << 20

// sheetExtent returns the row and column count of the sheet's declared
// dimension. A single-cell reference says nothing about extent.
func sheetExtent(f *excelize.File, sheet string) (rows, cols int, ok bool) {
	ref, err := f.GetSheetDimension(sheet)
	if err != nil {
		return 0, 0, false
	}
	_, last, found := strings.Cut(ref, ":")
	if !found {
		return 0, 0, false
	}
	cols, rows, err = excelize.CellNameToCoordinates(last)
	if err != nil || rows*cols > maxExtentCells {
		return 0, 0, false
	}
	return rows, cols, true
}

func workbookCell(f *excelize.File, sheet string, row, col int, value string) grid.Cell {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil || value == "" {
		return grid.Text(value)
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return grid.Text(value)
	}
	if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return grid.Number(n)
		}
	}
	return grid.Text(value)
}

// WriteWorkbook writes the full grid, header row included, to one sheet.
func WriteWorkbook(w io.Writer, data grid.Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	width := 0
	for _, row := range data {
		width = max(width, len(row))
	}
	if len(data) > 0 && width > 0 {
		lastCell, err := excelize.CoordinatesToCellName(width, len(data))
		if err != nil {
			return fmt.Errorf("invalid sheet extent: %w", err)
		}
		if err := f.SetSheetDimension(SheetName, "A1:"+lastCell); err != nil {
			return fmt.Errorf("set sheet dimension: %w", err)
		}
	}

	for rowIdx, row := range data {
		for colIdx, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates: %w", err)
			}
			var value any = cell.String()
			if n, ok := cell.Float(); ok {
				value = n
			}
			if err := f.SetCellValue(SheetName, cellName, value); err != nil {
				return fmt.Errorf("set cell %s: %w", cellName, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportBytes renders the workbook into memory.
func ExportBytes(data grid.Grid) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HasAcceptedExtension reports whether the file picker would offer this file.
func HasAcceptedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return true
		}
	}
	return false
}
