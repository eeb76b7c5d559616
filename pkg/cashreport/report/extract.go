// Package report turns a cell store into day-slot summaries and renders them
// as message text.
package report

import (
	"errors"
	"strings"
	"time"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/formula"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
	"github.com/xuri/excelize/v2"
)

// DateLayout is the rendering and parsing form of date labels.
const DateLayout = "02/01/2006"

// Extract evaluates every slot of layout against store. Slots with an empty
// label and no non-zero total are omitted. A total that is missing from the
// sheet is unavailable; a total whose evaluation fails is unavailable and
// also listed in the returned issues.
func Extract(store *models.CellStore, layout Layout, opts formula.Options) ([]models.DaySummary, []models.Issue, error) {
	if err := layout.Validate(); err != nil {
		return nil, nil, err
	}

	eval := formula.New(store, opts)
	var (
		summaries []models.DaySummary
		issues    []models.Issue
	)
	for slot := 1; slot <= layout.Slots; slot++ {
		cells, err := layout.Cells(slot)
		if err != nil {
			return nil, nil, err
		}

		summary := models.DaySummary{Slot: slot}
		summary.Label, summary.Date = readLabel(store, cells)

		for _, f := range models.Fields {
			ref := cells.Totals[f]
			v, err := eval.Resolve(ref)
			switch {
			case err == nil:
				summary.SetTotal(f, &v)
			case errors.Is(err, formula.ErrUnresolvableTopLevel):
			default:
				issues = append(issues, models.Issue{
					Slot:    slot,
					Field:   f,
					Cell:    ref.String(),
					Message: err.Error(),
				})
			}
		}

		if summary.Label == "" && !hasNonZeroTotal(summary) {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, issues, nil
}

func hasNonZeroTotal(s models.DaySummary) bool {
	for _, f := range models.Fields {
		if v := s.Total(f); v != nil && *v != 0 {
			return true
		}
	}
	return false
}

// readLabel returns the label cell's literal. A number is read as a 1900-system
// serial date; text in dd/mm/yyyy form is parsed as a date as well.
func readLabel(store *models.CellStore, cells SlotCells) (string, *time.Time) {
	v, ok := store.Value(cells.Label)
	if !ok {
		return "", nil
	}

	switch v.Kind {
	case models.KindNumber:
		t, err := excelize.ExcelDateToTime(v.Number, false)
		if err != nil {
			return v.String(), nil
		}
		return t.Format(DateLayout), &t
	case models.KindText:
		label := strings.TrimSpace(v.Text)
		if t, err := time.Parse(DateLayout, label); err == nil {
			return label, &t
		}
		return label, nil
	}
	return "", nil
}
