// Package cellref converts between column letters, 1-based column indices and
// A1-style cell references.
package cellref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidReference indicates text that is not a column label or A1 reference.
var ErrInvalidReference = errors.New("invalid cell reference")

// maxIndex bounds column and row indices so base-26 and decimal decoding cannot overflow.
const maxIndex = 1<<31 - 1

// Ref is a cell address. Col and Row are 1-based.
type Ref struct {
	Col int
	Row int
}

// ColToNum decodes a column label: "A" is 1, "Z" is 26, "AA" is 27.
func ColToNum(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column label", ErrInvalidReference)
	}
	n := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: column label %q", ErrInvalidReference, letters)
		}
		n = n*26 + int(c-'A') + 1
		if n > maxIndex {
			return 0, fmt.Errorf("%w: column label %q out of range", ErrInvalidReference, letters)
		}
	}
	return n, nil
}

// NumToCol is the inverse of ColToNum.
func NumToCol(index int) (string, error) {
	if index < 1 || index > maxIndex {
		return "", fmt.Errorf("%w: column index %d", ErrInvalidReference, index)
	}
	// maxIndex needs seven letters.
	var buf [8]byte
	i := len(buf)
	for index > 0 {
		index--
		i--
		buf[i] = byte('A' + index%26)
		index /= 26
	}
	return string(buf[i:]), nil
}

// Parse reads an A1-style reference: one or more uppercase letters followed
// by one or more digits. The row must be at least 1.
func Parse(text string) (Ref, error) {
	split := 0
	for split < len(text) && text[split] >= 'A' && text[split] <= 'Z' {
		split++
	}
	if split == 0 || split == len(text) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidReference, text)
	}
	digits := text[split:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidReference, text)
		}
	}

	col, err := ColToNum(text[:split])
	if err != nil {
		return Ref{}, err
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 || row > maxIndex {
		return Ref{}, fmt.Errorf("%w: row in %q", ErrInvalidReference, text)
	}
	return Ref{Col: col, Row: row}, nil
}

// MustParse is like Parse but panics on error. It is meant for constant layouts.
func MustParse(text string) Ref {
	r, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the canonical form, e.g. "AA12".
func (r Ref) String() string {
	col, err := NumToCol(r.Col)
	if err != nil {
		return fmt.Sprintf("?%d", r.Row)
	}
	return col + strconv.Itoa(r.Row)
}

// Valid reports whether both indices are at least 1.
func (r Ref) Valid() bool {
	return r.Col >= 1 && r.Row >= 1
}

// Offset returns the reference displaced by the given number of rows.
func (r Ref) Offset(rows int) Ref {
	return Ref{Col: r.Col, Row: r.Row + rows}
}

// Range is a rectangle of cells. Start is always the top-left corner and End
// the bottom-right one.
type Range struct {
	Start Ref
	End   Ref
}

// NewRange builds the rectangle spanned by two corners given in any order.
func NewRange(a, b Ref) Range {
	return Range{
		Start: Ref{Col: min(a.Col, b.Col), Row: min(a.Row, b.Row)},
		End:   Ref{Col: max(a.Col, b.Col), Row: max(a.Row, b.Row)},
	}
}

// ParseRange reads "A1:C3" (corners in any order) or a single reference "B2",
// which yields a one-cell range.
func ParseRange(text string) (Range, error) {
	first, second, found := strings.Cut(text, ":")
	a, err := Parse(first)
	if err != nil {
		return Range{}, err
	}
	if !found {
		return NewRange(a, a), nil
	}
	b, err := Parse(second)
	if err != nil {
		return Range{}, err
	}
	return NewRange(a, b), nil
}

// Cells lists every reference in the rectangle in row-major order.
func (rg Range) Cells() []Ref {
	cells := make([]Ref, 0, rg.Len())
	for row := rg.Start.Row; row <= rg.End.Row; row++ {
		for col := rg.Start.Col; col <= rg.End.Col; col++ {
			cells = append(cells, Ref{Col: col, Row: row})
		}
	}
	return cells
}

// Len is the number of cells in the rectangle.
func (rg Range) Len() int {
	return (rg.End.Row - rg.Start.Row + 1) * (rg.End.Col - rg.Start.Col + 1)
}

// Intersect returns the overlap of two rectangles and whether they overlap at all.
func (rg Range) Intersect(other Range) (Range, bool) {
	out := Range{
		Start: Ref{Col: max(rg.Start.Col, other.Start.Col), Row: max(rg.Start.Row, other.Start.Row)},
		End:   Ref{Col: min(rg.End.Col, other.End.Col), Row: min(rg.End.Row, other.End.Row)},
	}
	if out.Start.Col > out.End.Col || out.Start.Row > out.End.Row {
		return Range{}, false
	}
	return out, true
}

// Contains reports whether ref lies inside the rectangle.
func (rg Range) Contains(ref Ref) bool {
	return ref.Col >= rg.Start.Col && ref.Col <= rg.End.Col &&
		ref.Row >= rg.Start.Row && ref.Row <= rg.End.Row
}

func (rg Range) String() string {
	if rg.Start == rg.End {
		return rg.Start.String()
	}
	return rg.Start.String() + ":" + rg.End.String()
}
