// Package models defines data structures for report extraction.
package models

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
)

// ValueKind tags the variant held by a RawValue.
type ValueKind uint8

const (
	// KindEmpty is a cell with no usable literal (e.g. a dangling shared-string index).
	KindEmpty ValueKind = iota
	// KindNumber is a numeric literal.
	KindNumber
	// KindText is a string literal.
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// RawValue is the literal content of one cell. Only the field matching Kind is meaningful.
type RawValue struct {
	Kind   ValueKind
	Number float64
	Text   string
}

// Number returns a numeric RawValue.
func Number(v float64) RawValue {
	return RawValue{Kind: KindNumber, Number: v}
}

// Text returns a string RawValue.
func Text(s string) RawValue {
	return RawValue{Kind: KindText, Text: s}
}

// Empty returns the empty RawValue.
func Empty() RawValue {
	return RawValue{Kind: KindEmpty}
}

// String renders the literal unformatted.
func (v RawValue) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindEmpty:
		return ""
	}
	return ""
}

// CellStore is a read-only snapshot of one worksheet: literal values and
// formula texts keyed by cell reference.
type CellStore struct {
	values   map[cellref.Ref]RawValue
	formulas map[cellref.Ref]string
	bounds   cellref.Range
	hasCells bool

	// refs holds every populated reference in row-major order.
	refs []cellref.Ref
}

// NewCellStore takes ownership of both maps; callers must not modify them afterwards.
// Nil maps are treated as empty.
func NewCellStore(values map[cellref.Ref]RawValue, formulas map[cellref.Ref]string) *CellStore {
	s := &CellStore{values: values, formulas: formulas}
	if s.values == nil {
		s.values = make(map[cellref.Ref]RawValue)
	}
	if s.formulas == nil {
		s.formulas = make(map[cellref.Ref]string)
	}
	s.refs = make([]cellref.Ref, 0, len(s.values)+len(s.formulas))
	for ref := range s.values {
		s.extend(ref)
		s.refs = append(s.refs, ref)
	}
	for ref := range s.formulas {
		if _, ok := s.values[ref]; ok {
			continue
		}
		s.extend(ref)
		s.refs = append(s.refs, ref)
	}
	slices.SortFunc(s.refs, compareRowMajor)
	return s
}

func compareRowMajor(a, b cellref.Ref) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

func (s *CellStore) extend(ref cellref.Ref) {
	if !s.hasCells {
		s.bounds = cellref.NewRange(ref, ref)
		s.hasCells = true
		return
	}
	s.bounds = cellref.NewRange(
		cellref.Ref{Col: min(s.bounds.Start.Col, ref.Col), Row: min(s.bounds.Start.Row, ref.Row)},
		cellref.Ref{Col: max(s.bounds.End.Col, ref.Col), Row: max(s.bounds.End.Row, ref.Row)},
	)
}

// Value returns the literal stored at ref.
func (s *CellStore) Value(ref cellref.Ref) (RawValue, bool) {
	v, ok := s.values[ref]
	return v, ok
}

// Formula returns the formula text stored at ref, without a leading "=".
func (s *CellStore) Formula(ref cellref.Ref) (string, bool) {
	f, ok := s.formulas[ref]
	return f, ok
}

// Bounds returns the smallest rectangle holding every populated cell.
// ok is false for an empty store.
func (s *CellStore) Bounds() (cellref.Range, bool) {
	return s.bounds, s.hasCells
}

// Len is the number of distinct populated cells.
func (s *CellStore) Len() int {
	return len(s.refs)
}

// RefsIn lists the populated references inside rg in row-major order, the
// same order rg.Cells uses.
func (s *CellStore) RefsIn(rg cellref.Range) []cellref.Ref {
	start, _ := slices.BinarySearchFunc(s.refs, rg.Start, compareRowMajor)
	var out []cellref.Ref
	for _, ref := range s.refs[start:] {
		if ref.Row > rg.End.Row {
			break
		}
		if rg.Contains(ref) {
			out = append(out, ref)
		}
	}
	return out
}

// FormulaCount is the number of cells carrying a formula.
func (s *CellStore) FormulaCount() int {
	return len(s.formulas)
}
