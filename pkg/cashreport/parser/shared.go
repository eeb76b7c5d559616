package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
)

// a1Pattern matches an A1 reference with optional absolute markers.
var a1Pattern = regexp.MustCompile(`\$?[A-Z]{1,3}\$?[0-9]+`)

// shiftFormula rewrites the relative references of a shared formula's anchor
// text for a cell displaced by (dRow, dCol). Absolute parts ($) stay fixed;
// quoted strings and function names are left untouched.
func shiftFormula(text string, dRow, dCol int) string {
	if dRow == 0 && dCol == 0 {
		return text
	}

	var out strings.Builder
	inString := false
	segStart := 0
	flush := func(end int) {
		seg := text[segStart:end]
		if inString {
			out.WriteString(seg)
			return
		}
		out.WriteString(shiftSegment(seg, dRow, dCol))
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '"' {
			flush(i)
			out.WriteByte('"')
			inString = !inString
			segStart = i + 1
		}
	}
	flush(len(text))
	return out.String()
}

func shiftSegment(seg string, dRow, dCol int) string {
	matches := a1Pattern.FindAllStringIndex(seg, -1)
	if matches == nil {
		return seg
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !isReferenceBoundary(seg, start, end) {
			continue
		}
		out.WriteString(seg[last:start])
		out.WriteString(shiftReference(seg[start:end], dRow, dCol))
		last = end
	}
	out.WriteString(seg[last:])
	return out.String()
}

// isReferenceBoundary rejects matches embedded in identifiers (LOG10, Sheet1)
// and function names followed by "(".
func isReferenceBoundary(s string, start, end int) bool {
	if start > 0 {
		c := s[start-1]
		if isIdentByte(c) || c == '!' {
			return false
		}
	}
	if end < len(s) {
		c := s[end]
		if isIdentByte(c) || c == '(' {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func shiftReference(ref string, dRow, dCol int) string {
	absCol := strings.HasPrefix(ref, "$")
	body := strings.TrimPrefix(ref, "$")
	split := 0
	for split < len(body) && body[split] >= 'A' && body[split] <= 'Z' {
		split++
	}
	letters := body[:split]
	rest := body[split:]
	absRow := strings.HasPrefix(rest, "$")
	digits := strings.TrimPrefix(rest, "$")

	col, err := cellref.ColToNum(letters)
	if err != nil {
		return ref
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return ref
	}
	if !absCol {
		col += dCol
	}
	if !absRow {
		row += dRow
	}
	colName, err := cellref.NumToCol(col)
	if err != nil || row < 1 {
		return ref
	}

	var b strings.Builder
	if absCol {
		b.WriteByte('$')
	}
	b.WriteString(colName)
	if absRow {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(row))
	return b.String()
}
