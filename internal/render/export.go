package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Table is a uniformly shaped record set. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]any
}

type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

const utf8BOM = "\ufeff"

// CSV returns nil without error for an empty table. Output carries a UTF-8
// BOM so spreadsheet apps detect the encoding.
func (Exporter) CSV(t Table) ([]byte, error) {
	if len(t.Rows) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	rec := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = cellString(row[i])
			}
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Excel returns nil without error for an empty table. Column widths follow
// the longest cell, capped at 50.
func (Exporter) Excel(t Table, sheet string) ([]byte, error) {
	if len(t.Rows) == 0 {
		return nil, nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	widths := make([]int, len(t.Header))
	put := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return err
		}
		if n := len([]rune(cellString(v))); n > widths[col] {
			widths[col] = n
		}
		return f.SetCellValue(sheet, cell, v)
	}

	for i, h := range t.Header {
		if err := put(i, 0, h); err != nil {
			return nil, err
		}
	}
	for r, row := range t.Rows {
		for c := 0; c < len(t.Header) && c < len(row); c++ {
			if err := put(c, r+1, row[c]); err != nil {
				return nil, err
			}
		}
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, name, name, float64(min(w+2, 50))); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(v)
	}
}
