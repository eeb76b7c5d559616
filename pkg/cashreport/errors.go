package cashreport

import (
	"fmt"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/formula"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/parser"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = parser.ErrFileNotFound

// ErrNotAnArchive indicates the input is not a zip package of XML parts.
var ErrNotAnArchive = parser.ErrNotAnArchive

// ErrMissingWorksheet indicates the package has no first worksheet part.
var ErrMissingWorksheet = parser.ErrMissingWorksheet

// ErrInvalidReference indicates malformed cell address text.
var ErrInvalidReference = cellref.ErrInvalidReference

// ErrUnsupportedFormula indicates a formula outside the SUM subset.
var ErrUnsupportedFormula = formula.ErrUnsupportedFormula

// ErrUnresolvableTopLevel indicates a requested cell with nothing usable in it.
var ErrUnresolvableTopLevel = formula.ErrUnresolvableTopLevel

// ErrInvalidLayout indicates a day-slot layout that cannot be addressed.
var ErrInvalidLayout = report.ErrInvalidLayout

// ExtractionError represents a document-level failure.
type ExtractionError struct {
	Document string
	Stage    string // "read", "extract"
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error in %q (%s): %v", e.Document, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(document, stage string, err error) *ExtractionError {
	return &ExtractionError{
		Document: document,
		Stage:    stage,
		Err:      err,
	}
}
