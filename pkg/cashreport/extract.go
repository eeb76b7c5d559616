package cashreport

import (
	"path/filepath"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/formula"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/parser"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
)

// Open reads the first worksheet of the document at path.
func Open(path string) (*models.CellStore, error) {
	store, err := parser.Open(path)
	if err != nil {
		return nil, NewExtractionError(filepath.Base(path), "read", err)
	}
	return store, nil
}

// Extract reads the document at path and returns its day-slot summaries.
// Either a complete report is returned or an error; totals that cannot be
// evaluated are reported as Issues rather than failing the document.
func Extract(path string, opts Options) (*models.Report, error) {
	store, err := Open(path)
	if err != nil {
		return nil, err
	}

	bookName := filepath.Base(path)
	summaries, issues, err := report.Extract(store, opts.EffectiveLayout(), opts.FormulaOptions())
	if err != nil {
		return nil, NewExtractionError(bookName, "extract", err)
	}

	return &models.Report{
		BookName:  bookName,
		Summaries: summaries,
		Issues:    issues,
	}, nil
}

// Resolve reads the document at path and resolves one cell.
func Resolve(path, cell string, opts Options) (float64, error) {
	store, err := Open(path)
	if err != nil {
		return 0, err
	}
	return formula.New(store, opts.FormulaOptions()).ResolveText(cell)
}
