package csv_test

import (
	"strings"
	"testing"

	pcsv "bomcost/internal/parser/csv"
)

func TestParse_KeepsHeadersVerbatim(t *testing.T) {
	in := "\uFEFFPI NUMBER, MATERIAL WOOD 1 ,WOOD 1,Unnamed: 3\nPI-1,Plywood,3,\nPI-2,Oak,,\n"

	p := pcsv.NewParser(pcsv.Options{TrimSpace: true})
	tbl, skipped, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped=%d want 0", skipped)
	}
	want := []string{"PI NUMBER", "MATERIAL WOOD 1", "WOOD 1", "Unnamed: 3"}
	if strings.Join(tbl.Columns, "|") != strings.Join(want, "|") {
		t.Fatalf("columns=%q want %q", tbl.Columns, want)
	}
	if got := tbl.Rows[0]["MATERIAL WOOD 1"]; got != "Plywood" {
		t.Fatalf("material=%v want Plywood", got)
	}
	if got := tbl.Rows[1]["WOOD 1"]; got != nil {
		t.Fatalf("blank cell=%#v want nil", got)
	}
}

func TestParse_LenientPadsShortRows(t *testing.T) {
	in := "A,B,C\n1,2\n4,5,6,7\n"

	tbl, skipped, err := pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 0 || tbl.Len() != 2 {
		t.Fatalf("rows=%d skipped=%d want 2/0", tbl.Len(), skipped)
	}
	if v, ok := tbl.Rows[0]["C"]; !ok || v != nil {
		t.Fatalf("padded cell=%#v present=%v", v, ok)
	}
	if len(tbl.Rows[1]) != 3 {
		t.Fatalf("extra cell kept: %v", tbl.Rows[1])
	}
}

func TestParse_StrictSkipsRaggedRows(t *testing.T) {
	in := "A,B\n1,2\n3\n5,6\n"

	tbl, skipped, err := pcsv.NewParser(pcsv.Options{Strict: true}).Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 1 || tbl.Len() != 2 {
		t.Fatalf("rows=%d skipped=%d want 2/1", tbl.Len(), skipped)
	}
}

func TestParse_HeaderMap(t *testing.T) {
	in := "Deskripsi,Harga\nPLYWOOD,5\n"
	p := pcsv.NewParser(pcsv.Options{HeaderMap: map[string]string{"Deskripsi": "Description", "Harga": "Unit Price"}})
	tbl, _, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Rows[0]["Unit Price"] != "5" {
		t.Fatalf("row=%v", tbl.Rows[0])
	}
}

func TestParse_EmptyInput(t *testing.T) {
	if _, _, err := pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for missing header")
	}
}

func TestParse_RepeatedHeadersAreSuffixed(t *testing.T) {
	in := "PI NUMBER,QTY,MATERIAL WOOD,WOOD,MATERIAL WOOD,WOOD\nPI-1,1,PLYWOOD,2,OAK,5\n"

	tbl, _, err := pcsv.NewParser(pcsv.Options{TrimSpace: true}).Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"PI NUMBER", "QTY", "MATERIAL WOOD", "WOOD", "MATERIAL WOOD.1", "WOOD.1"}
	if strings.Join(tbl.Columns, "|") != strings.Join(want, "|") {
		t.Fatalf("columns=%q want %q", tbl.Columns, want)
	}
	row := tbl.Rows[0]
	if row["MATERIAL WOOD"] != "PLYWOOD" || row["WOOD"] != "2" {
		t.Fatalf("first slot=%v", row)
	}
	if row["MATERIAL WOOD.1"] != "OAK" || row["WOOD.1"] != "5" {
		t.Fatalf("second slot=%v", row)
	}
}
