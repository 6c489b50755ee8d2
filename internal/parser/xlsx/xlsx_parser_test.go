package xlsx_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"bomcost/internal/parser/xlsx"
)

// workbook builds an in-memory workbook with the given sheets. The first
// sheet replaces the default "Sheet1".
func workbook(t *testing.T, sheets map[string][][]any, order ...string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParse_FirstSheet(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"PRICE LIST": {
			{"Description", "Unit Price"},
			{"PLYWOOD", 5},
			{"OAK"},
		},
	}, "PRICE LIST")

	tbl, _, err := xlsx.NewParser(xlsx.Options{}).Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Name != "PRICE LIST" || tbl.Len() != 2 {
		t.Fatalf("name=%q rows=%d", tbl.Name, tbl.Len())
	}
	if tbl.Rows[0]["Unit Price"] != "5" {
		t.Fatalf("price=%#v want \"5\"", tbl.Rows[0]["Unit Price"])
	}
	if v, ok := tbl.Rows[1]["Unit Price"]; !ok || v != nil {
		t.Fatalf("short row not padded: %v", tbl.Rows[1])
	}
}

func TestParseSheets_Missing(t *testing.T) {
	buf := workbook(t, map[string][][]any{"BOM": {{"CONFIRM MODEL NAME"}}}, "BOM")

	_, err := xlsx.ParseSheets(buf, []string{"BOM", "NOPE"}, true)
	if !errors.Is(err, xlsx.ErrNoSheet) {
		t.Fatalf("err=%v want ErrNoSheet", err)
	}
}

func TestParseSheets(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"BOM":    {{"CONFIRM MODEL NAME", "MATERIAL WOOD 1", "WOOD 1"}, {"Sofa", "Plywood", 2}},
		"ORDERS": {{"PI NUMBER", "MODEL"}, {"PI-1", "Sofa"}},
	}, "BOM", "ORDERS")

	got, err := xlsx.ParseSheets(buf, []string{"BOM", "ORDERS"}, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["ORDERS"].Rows[0]["MODEL"] != "Sofa" {
		t.Fatalf("orders=%v", got["ORDERS"].Rows)
	}
	if got["BOM"].Columns[2] != "WOOD 1" {
		t.Fatalf("bom columns=%v", got["BOM"].Columns)
	}
}

func TestParse_StyledNumbersReadRaw(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Description", "Unit Price"}); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"PLYWOOD", 1234.5}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	// Built-in format 4 is "#,##0.00", which displays as "1,234.50".
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		t.Fatalf("new style: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "B2", "B2", style); err != nil {
		t.Fatalf("set style: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	tbl, _, err := xlsx.NewParser(xlsx.Options{}).Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tbl.Rows[0]["Unit Price"]; got != "1234.5" {
		t.Fatalf("price=%#v want \"1234.5\"", got)
	}
}

func TestParse_RepeatedHeadersKeepEveryColumn(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"ORDER BY WOOD": {
			{"PI NUMBER", "QTY", "MATERIAL WOOD", "WOOD", "MATERIAL WOOD", "WOOD"},
			{"PI-1", 1, "PLYWOOD", 2, "OAK", 5},
		},
	}, "ORDER BY WOOD")

	tbl, _, err := xlsx.NewParser(xlsx.Options{TrimSpace: true}).Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"PI NUMBER", "QTY", "MATERIAL WOOD", "WOOD", "MATERIAL WOOD.1", "WOOD.1"}
	for i, c := range want {
		if tbl.Columns[i] != c {
			t.Fatalf("columns=%q want %q", tbl.Columns, want)
		}
	}
	if tbl.Rows[0]["MATERIAL WOOD.1"] != "OAK" || tbl.Rows[0]["WOOD.1"] != "5" {
		t.Fatalf("second slot=%v", tbl.Rows[0])
	}
}
