// Package parser reads spreadsheet packages (zip containers of XML parts)
// into a models.CellStore by walking the OOXML parts directly.
package parser

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrNotAnArchive indicates the input is not a zip-packaged spreadsheet.
var ErrNotAnArchive = errors.New("not a spreadsheet archive")

// ErrMissingWorksheet indicates the package holds no first worksheet part.
var ErrMissingWorksheet = errors.New("worksheet part missing")

// Package part names.
const (
	workbookPart      = "xl/workbook.xml"
	workbookRelsPart  = "xl/_rels/workbook.xml.rels"
	sharedStringsPart = "xl/sharedStrings.xml"
	defaultSheetPart  = "xl/worksheets/sheet1.xml"
)

// Open reads the first worksheet of the package at path.
func Open(path string) (*models.CellStore, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return ReadFrom(f, info.Size())
}

// ReadFrom reads the first worksheet of a package held in ra.
func ReadFrom(ra io.ReaderAt, size int64) (*models.CellStore, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		// Legacy .xls files and password-protected packages are OLE compound files.
		if _, cfbErr := mscfb.New(ra); cfbErr == nil {
			return nil, fmt.Errorf("%w: compound file (legacy .xls or encrypted workbook)", ErrNotAnArchive)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}
	return Read(zr)
}

// Read decodes the shared-string pool and the first worksheet of an opened package.
func Read(zr *zip.Reader) (*models.CellStore, error) {
	sheetPart := firstWorksheetPart(zr)
	sheet := findZipFile(zr, sheetPart)
	if sheet == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingWorksheet, sheetPart)
	}

	pool, err := readSharedStrings(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAnArchive, sharedStringsPart, err)
	}

	rc, err := sheet.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAnArchive, sheetPart, err)
	}
	defer rc.Close()

	store, err := readWorksheet(rc, pool)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAnArchive, sheetPart, err)
	}
	return store, nil
}

// firstWorksheetPart follows workbook.xml and its relationships to the part
// backing the first sheet, falling back to the conventional sheet1 name.
func firstWorksheetPart(zr *zip.Reader) string {
	workbookXML, err := readZipFile(zr, workbookPart)
	if err != nil || workbookXML == nil {
		return defaultSheetPart
	}
	rID := firstSheetRelID(workbookXML)
	if rID == "" {
		return defaultSheetPart
	}

	relsXML, err := readZipFile(zr, workbookRelsPart)
	if err != nil || relsXML == nil {
		return defaultSheetPart
	}
	if target := relationshipTarget(relsXML, rID); target != "" {
		return resolveRelativePath(target, "xl")
	}
	return defaultSheetPart
}

func firstSheetRelID(data []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			return ""
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			for _, attr := range se.Attr {
				if attr.Name.Local == "id" {
					return attr.Value
				}
			}
			return ""
		}
	}
}

func relationshipTarget(data []byte, rID string) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err != nil {
			return ""
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, target string
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					id = attr.Value
				case "Target":
					target = attr.Value
				}
			}
			if id == rID {
				return target
			}
		}
	}
}

// Helper functions

func findZipFile(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// readZipFile returns nil, nil when the part does not exist.
func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	f := findZipFile(r, name)
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// resolveRelativePath maps a relationship target to a package part name.
func resolveRelativePath(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}
