package parser

import (
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
)

// xmlCell is one <c> element of a worksheet's sheetData.
type xmlCell struct {
	R  string       `xml:"r,attr"`
	T  string       `xml:"t,attr"`
	F  *xmlFormula  `xml:"f"`
	V  *string      `xml:"v"`
	IS *xmlRichText `xml:"is"`
}

type xmlFormula struct {
	Text string `xml:",chardata"`
	T    string `xml:"t,attr"`
	SI   string `xml:"si,attr"`
}

// sheetBuilder accumulates cells while the worksheet part is walked.
type sheetBuilder struct {
	pool     []string
	values   map[cellref.Ref]models.RawValue
	formulas map[cellref.Ref]string
	// shared maps a shared-formula group index to its anchor cell and text.
	shared map[string]sharedFormula

	row     int
	nextCol int
}

type sharedFormula struct {
	anchor cellref.Ref
	text   string
}

// readWorksheet walks sheetData and builds the cell store.
func readWorksheet(r io.Reader, pool []string) (*models.CellStore, error) {
	b := &sheetBuilder{
		pool:     pool,
		values:   make(map[cellref.Ref]models.RawValue),
		formulas: make(map[cellref.Ref]string),
		shared:   make(map[string]sharedFormula),
	}

	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "row":
			if n := attrInt(se, "r"); n > 0 {
				b.row = n
			} else {
				b.row++
			}
			b.nextCol = 1
		case "c":
			var c xmlCell
			if err := decoder.DecodeElement(&c, &se); err != nil {
				return nil, err
			}
			b.addCell(c)
		}
	}

	return models.NewCellStore(b.values, b.formulas), nil
}

// locate resolves the cell address, falling back to the position after the
// previous cell when the r attribute is absent or malformed.
func (b *sheetBuilder) locate(c xmlCell) (cellref.Ref, bool) {
	if c.R != "" {
		if ref, err := cellref.Parse(c.R); err == nil {
			return ref, true
		}
	}
	if b.row < 1 {
		return cellref.Ref{}, false
	}
	return cellref.Ref{Col: max(b.nextCol, 1), Row: b.row}, true
}

func (b *sheetBuilder) addCell(c xmlCell) {
	ref, ok := b.locate(c)
	if !ok {
		return
	}
	b.nextCol = ref.Col + 1

	if c.F != nil {
		if text, ok := b.formulaText(ref, c.F); ok {
			b.formulas[ref] = text
		}
	}

	if v, ok := b.literal(c); ok {
		b.values[ref] = v
	}
}

func (b *sheetBuilder) formulaText(ref cellref.Ref, f *xmlFormula) (string, bool) {
	text := strings.TrimPrefix(strings.TrimSpace(f.Text), "=")
	if f.T != "shared" || f.SI == "" {
		return text, text != ""
	}
	if text != "" {
		b.shared[f.SI] = sharedFormula{anchor: ref, text: text}
		return text, true
	}
	anchor, ok := b.shared[f.SI]
	if !ok {
		return "", false
	}
	return shiftFormula(anchor.text, ref.Row-anchor.anchor.Row, ref.Col-anchor.anchor.Col), true
}

// literal converts the cell's stored value. ok is false when the cell holds none.
func (b *sheetBuilder) literal(c xmlCell) (models.RawValue, bool) {
	if c.IS != nil {
		return models.Text(c.IS.text()), true
	}
	if c.V == nil {
		return models.RawValue{}, false
	}
	raw := *c.V

	if c.T == "s" {
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(b.pool) {
			return models.Empty(), true
		}
		return models.Text(b.pool[idx]), true
	}

	if strings.TrimSpace(raw) == "" {
		return models.RawValue{}, false
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return models.Number(n), true
	}
	return models.Text(normalizeText(raw)), true
}

func attrInt(se xml.StartElement, name string) int {
	for _, attr := range se.Attr {
		if attr.Name.Local == name {
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}
