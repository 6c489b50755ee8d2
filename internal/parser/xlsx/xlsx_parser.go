// Package xlsx decodes worksheets of an Excel workbook into records.Table
// using excelize. The first row of a sheet is its header.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"bomcost/pkg/records"
)

// ErrNoSheet is returned when the requested worksheet does not exist.
var ErrNoSheet = errors.New("xlsx: sheet not found")

// Options configures the xlsx parser.
type Options struct {
	// Sheet selects the worksheet by name. Empty means the first sheet.
	Sheet string

	// TrimSpace trims leading/trailing spaces from each cell.
	TrimSpace bool
}

// Parser reads one worksheet per Parse call.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse opens the workbook in r and decodes the configured sheet. Cells are
// read as their raw stored values, so numbers carry no display format and
// dates arrive as serial numbers. skipped is always zero; xlsx rows
// cannot be malformed the way CSV rows can.
func (p *Parser) Parse(r io.Reader) (records.Table, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return records.Table{}, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := p.opt.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return records.Table{}, 0, ErrNoSheet
		}
		sheet = list[0]
	}
	t, err := readSheet(f, sheet, p.opt.TrimSpace)
	return t, 0, err
}

// ParseSheets decodes every named sheet from the workbook in r in one pass.
func ParseSheets(r io.Reader, sheets []string, trim bool) (map[string]records.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	out := make(map[string]records.Table, len(sheets))
	for _, s := range sheets {
		t, err := readSheet(f, s, trim)
		if err != nil {
			return nil, err
		}
		out[s] = t
	}
	return out, nil
}

func readSheet(f *excelize.File, sheet string, trim bool) (records.Table, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return records.Table{}, fmt.Errorf("%w: %q", ErrNoSheet, sheet)
	}
	// Raw values keep number formats such as "#,##0.00" out of the cells.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return records.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return records.Table{Name: sheet}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	headers = records.UniqueColumns(headers)

	body := make([]records.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(records.Record, len(headers))
		for i, key := range headers {
			if _, dup := rec[key]; dup {
				continue
			}
			var v string
			if i < len(row) {
				v = row[i]
			}
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				rec[key] = nil
			} else {
				rec[key] = v
			}
		}
		body = append(body, rec)
	}
	return records.Table{Name: sheet, Columns: headers, Rows: body}, nil
}
