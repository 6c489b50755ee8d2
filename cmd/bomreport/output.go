package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"bomcost/internal/report"
)

func writeFamilies(w io.Writer, format string, reps []*report.FamilyReport) error {
	switch format {
	case "json":
		return writeJSON(w, reps)
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"family", "material", "total_usage", "unit_price", "total_price"})
		for _, rep := range reps {
			for _, c := range rep.Costed {
				_ = cw.Write([]string{rep.Family, c.Material, num(&c.TotalUsage), num(c.UnitPrice), num(c.TotalPrice)})
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for i, rep := range reps {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			s := rep.Summary
			fmt.Fprintf(tw, "%s\tPI: %d\tquantity: %s\tmaterials: %d\tsnapshot: %s\t\n",
				rep.Family, s.TotalPI, num(&s.TotalQuantity), s.TotalMaterials, rep.Snapshot)
			fmt.Fprintf(tw, "MATERIAL\tTOTAL USAGE\tUNIT PRICE\tTOTAL PRICE (%s)\t\n", s.Currency)
			for _, c := range rep.Costed {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", c.Material, num(&c.TotalUsage), num(c.UnitPrice), num(c.TotalPrice))
			}
			fmt.Fprintf(tw, "TOTAL\t\t\t%.2f\t\n", s.TotalPrice)
			if len(rep.Unpriced) > 0 {
				fmt.Fprintf(tw, "unpriced: %s\t\t\t\t\n", strings.Join(rep.Unpriced, ", "))
			}
		}
		return tw.Flush()
	}
}

func writeLines(w io.Writer, format string, rep *report.LinesReport) error {
	switch format {
	case "json":
		return writeJSON(w, rep)
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"pi_number", "model", "family", "material", "usage", "quantity", "unit_price", "total_price"})
		for _, l := range rep.Lines {
			_ = cw.Write([]string{l.PINumber, l.Model, l.Family, l.Material, num(l.Usage), num(l.Quantity), num(l.UnitPrice), num(l.TotalPrice)})
		}
		cw.Flush()
		return cw.Error()
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "PI\tMODEL\tFAMILY\tMATERIAL\tUSAGE\tQTY\tUNIT PRICE\tTOTAL (%s)\n", rep.Summary.Currency)
		for _, l := range rep.Lines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				l.PINumber, l.Model, l.Family, l.Material, num(l.Usage), num(l.Quantity), num(l.UnitPrice), num(l.TotalPrice))
		}
		fmt.Fprintf(tw, "TOTAL\t\t\t\t\t\t\t%.2f\n", rep.Summary.TotalPrice)
		if len(rep.UnmatchedModels) > 0 {
			fmt.Fprintf(tw, "models without BOM: %s\n", strings.Join(rep.UnmatchedModels, ", "))
		}
		return tw.Flush()
	}
}

func writeChecks(w io.Writer, format string, checks []report.DatasetCheck) error {
	switch format {
	case "json":
		return writeJSON(w, checks)
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"dataset", "family", "columns", "rows", "slots", "missing", "error"})
		for _, c := range checks {
			_ = cw.Write([]string{c.Dataset, c.Family, strconv.Itoa(c.Columns), strconv.Itoa(c.Rows),
				strconv.Itoa(slotCount(c)), strings.Join(c.Missing, ";"), c.Error})
		}
		cw.Flush()
		return cw.Error()
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATASET\tFAMILY\tCOLUMNS\tROWS\tSLOTS\tSTATUS")
		for _, c := range checks {
			status := "ok"
			switch {
			case c.Error != "":
				status = c.Error
			case len(c.Missing) > 0:
				status = "missing " + strings.Join(c.Missing, ", ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", c.Dataset, c.Family, c.Columns, c.Rows, slotCount(c), status)
		}
		return tw.Flush()
	}
}

func slotCount(c report.DatasetCheck) int {
	n := 0
	for _, fs := range c.Schemas {
		n += len(fs.Slots)
	}
	return n
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// num renders an optional number; nil prints as "-".
func num(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
