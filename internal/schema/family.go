// Package schema describes the wide column layout of order sheets: each
// material family (WOOD, SPONGE, FABRIC, O.M) owns an ordered list of slot
// pairs, a material-name column and the usage column it is aligned with.
//
// Pairing is positional. It is resolved once when a table is loaded and then
// validated, so a sheet whose name and usage columns drift apart fails loudly
// instead of attributing usage to the wrong material.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSlotMismatch is returned when a family has a different number of
	// name columns and usage columns.
	ErrSlotMismatch = errors.New("schema: name and usage column counts differ")

	// ErrNoSlots is returned when no slot pair for a family exists in a header.
	ErrNoSlots = errors.New("schema: no slot columns found")

	// ErrDuplicateColumn is returned when a slot column name occurs more than
	// once in a header. Rows keyed by name cannot hold both cells.
	ErrDuplicateColumn = errors.New("schema: duplicate slot column in header")
)

// MismatchError carries the columns that could not be paired.
type MismatchError struct {
	Prefix       string
	NameColumns  []string
	UsageColumns []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("schema: family %s has %d name columns %v but %d usage columns %v",
		e.Prefix, len(e.NameColumns), e.NameColumns, len(e.UsageColumns), e.UsageColumns)
}

// Unwrap lets errors.Is match ErrSlotMismatch.
func (e *MismatchError) Unwrap() error { return ErrSlotMismatch }

// DuplicateError names the slot columns that repeat in a header. It matches
// both ErrDuplicateColumn and ErrSlotMismatch.
type DuplicateError struct {
	Prefix  string
	Columns []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("schema: family %s: columns repeated in header: %s", e.Prefix, strings.Join(e.Columns, ", "))
}

func (e *DuplicateError) Unwrap() []error { return []error{ErrDuplicateColumn, ErrSlotMismatch} }

// repeated returns the names in cols that appear more than once, in first
// occurrence order, restricted to those keep accepts.
func repeated(cols []string, keep func(string) bool) []string {
	n := make(map[string]int, len(cols))
	var out []string
	for _, c := range cols {
		if !keep(c) {
			continue
		}
		n[c]++
		if n[c] == 2 {
			out = append(out, c)
		}
	}
	return out
}

// Slot is one positionally aligned (name column, usage column) pair.
type Slot struct {
	NameColumn  string `json:"name_column"`
	UsageColumn string `json:"usage_column"`
}

// FamilySchema is the typed slot layout for one material family.
type FamilySchema struct {
	Prefix string `json:"prefix"`
	Slots  []Slot `json:"slots"`
}

// New builds a FamilySchema from explicitly declared slots.
func New(prefix string, slots []Slot) (FamilySchema, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return FamilySchema{}, fmt.Errorf("schema: family prefix must not be empty")
	}
	if len(slots) == 0 {
		return FamilySchema{}, fmt.Errorf("%w for family %s", ErrNoSlots, prefix)
	}
	seen := make(map[string]struct{}, 2*len(slots))
	for i, s := range slots {
		if strings.TrimSpace(s.NameColumn) == "" || strings.TrimSpace(s.UsageColumn) == "" {
			return FamilySchema{}, fmt.Errorf("schema: family %s slot %d: name and usage columns are required", prefix, i+1)
		}
		for _, c := range []string{s.NameColumn, s.UsageColumn} {
			if _, dup := seen[c]; dup {
				return FamilySchema{}, fmt.Errorf("schema: family %s slot %d: column %q used twice", prefix, i+1, c)
			}
			seen[c] = struct{}{}
		}
	}
	return FamilySchema{Prefix: prefix, Slots: append([]Slot(nil), slots...)}, nil
}

// Infer resolves the slot layout for prefix from a table header.
//
// Name columns are those containing "MATERIAL <PREFIX>"; usage columns are
// those starting with "<PREFIX>" that are not name columns. Both lists keep
// header order and are paired by position. Matching is case-insensitive on
// the header text. A matching column that repeats is a *DuplicateError.
func Infer(prefix string, columns []string) (FamilySchema, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return FamilySchema{}, fmt.Errorf("schema: family prefix must not be empty")
	}
	up := strings.ToUpper(prefix)
	marker := "MATERIAL " + up

	var names, usage []string
	for _, c := range columns {
		h := strings.ToUpper(strings.TrimSpace(c))
		switch {
		case strings.Contains(h, marker):
			names = append(names, c)
		case strings.HasPrefix(h, up):
			usage = append(usage, c)
		}
	}

	if len(names) == 0 && len(usage) == 0 {
		return FamilySchema{}, fmt.Errorf("%w for family %s", ErrNoSlots, prefix)
	}
	all := append(append([]string(nil), names...), usage...)
	if dup := repeated(all, func(string) bool { return true }); len(dup) > 0 {
		return FamilySchema{}, &DuplicateError{Prefix: prefix, Columns: dup}
	}
	if len(names) != len(usage) {
		return FamilySchema{}, &MismatchError{Prefix: prefix, NameColumns: names, UsageColumns: usage}
	}

	slots := make([]Slot, len(names))
	for i := range names {
		slots[i] = Slot{NameColumn: names[i], UsageColumn: usage[i]}
	}
	return FamilySchema{Prefix: prefix, Slots: slots}, nil
}

// Validate checks that every slot column is present in columns exactly once.
func (f FamilySchema) Validate(columns []string) error {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	slot := make(map[string]struct{}, 2*len(f.Slots))
	for _, s := range f.Slots {
		slot[s.NameColumn] = struct{}{}
		slot[s.UsageColumn] = struct{}{}
	}
	isSlot := func(c string) bool {
		_, ok := slot[c]
		return ok
	}
	if dup := repeated(columns, isSlot); len(dup) > 0 {
		return &DuplicateError{Prefix: f.Prefix, Columns: dup}
	}
	var missing []string
	for _, s := range f.Slots {
		for _, c := range []string{s.NameColumn, s.UsageColumn} {
			if _, ok := have[c]; !ok {
				missing = append(missing, c)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema: family %s: columns missing from header: %s", f.Prefix, strings.Join(missing, ", "))
	}
	return nil
}

// Resolve returns f if it declares slots, otherwise infers the layout for
// f.Prefix from columns. The result is validated against columns.
func Resolve(f FamilySchema, columns []string) (FamilySchema, error) {
	if len(f.Slots) == 0 {
		return Infer(f.Prefix, columns)
	}
	fs, err := New(f.Prefix, f.Slots)
	if err != nil {
		return FamilySchema{}, err
	}
	if err := fs.Validate(columns); err != nil {
		return FamilySchema{}, err
	}
	return fs, nil
}
