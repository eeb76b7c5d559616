// Package cashreport extracts day-slot cash totals from xlsx report documents.
package cashreport

import (
	"github.com/ukaji3/cashreport-go/pkg/cashreport/formula"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
)

// Options configures extraction behavior.
type Options struct {
	// Layout locates the day-slots. If nil, report.DefaultLayout is used.
	Layout *report.Layout
	// PreferFormula evaluates formulas before cached values.
	// If nil, cached values win.
	PreferFormula *bool
}

// DefaultOptions returns default extraction options.
func DefaultOptions() Options {
	return Options{}
}

// EffectiveLayout returns the layout to extract with.
func (o Options) EffectiveLayout() report.Layout {
	if o.Layout != nil {
		return *o.Layout
	}
	return report.DefaultLayout()
}

// FormulaOptions returns the evaluator options.
func (o Options) FormulaOptions() formula.Options {
	var fo formula.Options
	if o.PreferFormula != nil {
		fo.PreferFormula = *o.PreferFormula
	}
	return fo
}
