// Package formula resolves worksheet cells to numbers, expanding the SUM
// subset of the formula language against a models.CellStore.
package formula

import (
	"errors"
	"fmt"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/numtext"
)

// ErrUnsupportedFormula indicates formula text other than SUM(ref, ref:ref, ...).
var ErrUnsupportedFormula = errors.New("unsupported formula")

// ErrUnresolvableTopLevel indicates that the requested cell holds no number,
// no coercible text and no formula.
var ErrUnresolvableTopLevel = errors.New("no usable value")

// EvalError names the requested cell a resolution failure belongs to.
type EvalError struct {
	Ref cellref.Ref
	Err error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Ref, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Options configures resolution order.
type Options struct {
	// PreferFormula evaluates a cell's formula before its cached literal.
	// By default a cached number or coercible text wins.
	PreferFormula bool
}

// Evaluator resolves cells of one store. It holds no mutable state and is
// safe for concurrent use.
type Evaluator struct {
	store *models.CellStore
	opts  Options
}

// New returns an evaluator over store.
func New(store *models.CellStore, opts Options) *Evaluator {
	return &Evaluator{store: store, opts: opts}
}

// evalContext is the visited set of one top-level Resolve call. A cell is
// never expanded twice within the same call.
type evalContext struct {
	visited map[cellref.Ref]struct{}
}

func newEvalContext() *evalContext {
	return &evalContext{visited: make(map[cellref.Ref]struct{})}
}

// Resolve returns the number at ref. Members of a SUM that fail, are absent
// or close a cycle contribute 0. Errors are reported for ref itself only:
// ErrUnsupportedFormula when its own formula is outside the SUM subset and
// ErrUnresolvableTopLevel when it holds nothing usable. A cell whose SUM
// refers back to itself resolves to the sum of its other members.
func (e *Evaluator) Resolve(ref cellref.Ref) (float64, error) {
	if !ref.Valid() {
		return 0, &EvalError{Ref: ref, Err: cellref.ErrInvalidReference}
	}
	v, err := e.resolve(newEvalContext(), ref, true)
	if err != nil {
		return 0, &EvalError{Ref: ref, Err: err}
	}
	return v, nil
}

// ResolveText parses an A1 reference and resolves it.
func (e *Evaluator) ResolveText(text string) (float64, error) {
	ref, err := cellref.Parse(text)
	if err != nil {
		return 0, err
	}
	return e.Resolve(ref)
}

func (e *Evaluator) resolve(ctx *evalContext, ref cellref.Ref, top bool) (float64, error) {
	if _, seen := ctx.visited[ref]; seen {
		return 0, nil
	}
	ctx.visited[ref] = struct{}{}

	if e.opts.PreferFormula {
		if text, ok := e.store.Formula(ref); ok {
			return e.evalSum(ctx, text)
		}
	}

	if v, ok := e.store.Value(ref); ok {
		switch v.Kind {
		case models.KindNumber:
			return v.Number, nil
		case models.KindText:
			if n, ok := numtext.Parse(v.Text); ok {
				return n, nil
			}
		case models.KindEmpty:
		}
	}

	if !e.opts.PreferFormula {
		if text, ok := e.store.Formula(ref); ok {
			return e.evalSum(ctx, text)
		}
	}

	if top {
		return 0, ErrUnresolvableTopLevel
	}
	return 0, nil
}

// members lists the cells of rg to visit. A sparse rectangle is walked
// through the store's populated references instead of cell by cell.
func (e *Evaluator) members(rg cellref.Range) []cellref.Ref {
	if rg.Len() > e.store.Len() {
		return e.store.RefsIn(rg)
	}
	return rg.Cells()
}

func (e *Evaluator) evalSum(ctx *evalContext, text string) (float64, error) {
	args, err := parseSum(text)
	if err != nil {
		return 0, err
	}

	bounds, populated := e.store.Bounds()
	var total float64
	for _, arg := range args {
		rg, err := parseArgument(arg)
		if err != nil {
			continue
		}
		// Cells outside the populated area are absent and contribute 0.
		if !populated {
			continue
		}
		rg, ok := rg.Intersect(bounds)
		if !ok {
			continue
		}
		for _, member := range e.members(rg) {
			v, err := e.resolve(ctx, member, false)
			if err != nil {
				continue
			}
			total += v
		}
	}
	return total, nil
}
