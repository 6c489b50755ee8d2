package orders

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Sheet exports use US month-first dates;
// ISO forms come from workbooks and hand-edited CSVs.
var dateLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// excelEpoch is day zero of the 1900 date system as used by spreadsheets
// (the 1900 leap-year bug is absorbed by starting on Dec 30).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ToNumeric converts a cell to a float. It reports false for nil, empty,
// non-numeric text (e.g. "N/A"), NaN and infinities. Callers treat a false
// result as "contributes nothing" rather than as an error.
func ToNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, finite(t)
	case float32:
		f := float64(t)
		return f, finite(f)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// ParseTime converts a cell to a timestamp, returning nil when the value
// cannot be parsed. Numeric cells are read as spreadsheet serial dates.
func ParseTime(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case float64:
		if !finite(t) || t <= 0 {
			return nil
		}
		ts := excelEpoch.Add(time.Duration(t * float64(24*time.Hour))).Round(time.Second)
		return &ts
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return &ts
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ParseTime(f)
		}
		return nil
	default:
		return nil
	}
}

// ParseDate is ParseTime truncated to the calendar day.
func ParseDate(v any) *time.Time {
	ts := ParseTime(v)
	if ts == nil {
		return nil
	}
	d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// Text returns the trimmed string form of a cell, or "" for nil.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
