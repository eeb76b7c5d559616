package parser

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// xmlRichText is the content model shared by <si> pool entries and <is>
// inline strings: either a plain <t> or a list of formatted <r> runs.
// Phonetic <rPh> runs are not mapped and therefore skipped.
type xmlRichText struct {
	T    *string  `xml:"t"`
	Runs []xmlRun `xml:"r"`
}

type xmlRun struct {
	T string `xml:"t"`
}

// text concatenates every run, dropping run-level formatting.
func (rt *xmlRichText) text() string {
	var b strings.Builder
	if rt.T != nil {
		b.WriteString(*rt.T)
	}
	for _, r := range rt.Runs {
		b.WriteString(r.T)
	}
	return normalizeText(b.String())
}

// normalizeText composes accents so the same label typed by different
// producers compares equal.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}

// readSharedStrings decodes the shared-string pool. A missing part is an empty pool.
func readSharedStrings(zr *zip.Reader) ([]string, error) {
	f := findZipFile(zr, sharedStringsPart)
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return decodeSharedStrings(rc)
}

func decodeSharedStrings(r io.Reader) ([]string, error) {
	var pool []string
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return pool, nil
		}
		if err != nil {
			return nil, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sst":
			if n := attrInt(se, "uniqueCount"); n > 0 && n < 1<<20 {
				pool = make([]string, 0, n)
			}
		case "si":
			var entry xmlRichText
			if err := decoder.DecodeElement(&entry, &se); err != nil {
				return nil, err
			}
			pool = append(pool, entry.text())
		}
	}
}
