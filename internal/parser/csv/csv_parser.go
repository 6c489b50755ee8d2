// Package csv decodes CSV sheet exports into records.Table. Header cells are
// kept verbatim apart from surrounding whitespace and a leading UTF-8 BOM,
// because material slot pairing depends on the exact column names and order.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"bomcost/pkg/records"
)

// Options tunes the decoder. The zero value reads comma-separated input
// leniently.
type Options struct {
	// Comma is the field delimiter; 0 means ','.
	Comma rune

	// TrimSpace strips surrounding whitespace from body cells.
	TrimSpace bool

	// Strict skips rows whose width differs from the header. When false,
	// short rows are padded with nil and extra cells are dropped, which is
	// what spreadsheet exports with trailing blanks need.
	Strict bool

	// HeaderMap renames trimmed header cells, e.g. "Desc" -> "Description".
	HeaderMap map[string]string

	// Logger receives skipped-row notices at debug level.
	Logger *zap.Logger
}

// Parser decodes CSV sheets. A Parser holds no per-input state.
type Parser struct{ opt Options }

// NewParser returns a Parser for opt.
func NewParser(opt Options) *Parser {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Parser{opt: opt}
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// skipLogLimit caps per-row skip logging for badly broken inputs.
const skipLogLimit = 400

// Parse reads the header row and every body row of r. It returns the number
// of rows that were skipped due to parse errors or, in Strict mode, width
// mismatches. An input with no header row is an error.
func (p *Parser) Parse(r io.Reader) (records.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = !p.opt.Strict

	h, err := cr.Read()
	if err != nil {
		return records.Table{}, 0, fmt.Errorf("read csv header: %w", err)
	}
	headers := normalizeHeaders(h, p.opt)

	var (
		out     []records.Record
		skipped int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.skip(&skipped, line, err.Error())
			continue
		}
		if p.opt.Strict && len(row) != len(headers) {
			p.skip(&skipped, line, fmt.Sprintf("incorrect number of fields (expected %d, got %d)", len(headers), len(row)))
			continue
		}

		out = append(out, p.record(headers, row))
	}

	return records.Table{Columns: headers, Rows: out}, skipped, nil
}

// record keys row by headers. Missing trailing cells are nil. Blank
// headers are the only ones that can repeat; the first cell wins.
func (p *Parser) record(headers, row []string) records.Record {
	rec := make(records.Record, len(headers))
	for i, key := range headers {
		if _, dup := rec[key]; dup {
			continue
		}
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		if p.opt.TrimSpace {
			cell = strings.TrimSpace(cell)
		}
		rec[key] = emptyToNil(cell)
	}
	return rec
}

func (p *Parser) skip(n *int, line int, reason string) {
	if *n < skipLogLimit {
		p.opt.Logger.Debug("skipping csv row", zap.Int("line", line), zap.String("reason", reason))
	}
	*n++
}

// emptyToNil maps "" to nil.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders trims each header cell, strips a BOM from the first one,
// applies HeaderMap and then suffixes repeated names (see
// records.UniqueColumns). Blank headers are kept as "" so that Table.Clean
// can drop them.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		if m, ok := opt.HeaderMap[c]; ok {
			c = m
		}
		res[i] = c
	}
	return records.UniqueColumns(res)
}
