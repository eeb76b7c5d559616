package formula

import (
	"fmt"
	"strings"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/cellref"
	"github.com/xuri/efp"
)

// parseSum splits a SUM(...) formula into its raw arguments. Anything other
// than a single top-level SUM call whose arguments are plain operands is
// rejected with ErrUnsupportedFormula.
func parseSum(text string) ([]string, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "=")
	if text == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrUnsupportedFormula)
	}

	ps := efp.ExcelParser()
	var tokens []efp.Token
	for _, tok := range ps.Parse(text) {
		if tok.TType == efp.TokenTypeWhitespace || tok.TType == efp.TokenTypeNoop {
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) < 2 ||
		tokens[0].TType != efp.TokenTypeFunction || tokens[0].TSubType != efp.TokenSubTypeStart ||
		!strings.EqualFold(tokens[0].TValue, "SUM") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormula, text)
	}
	last := tokens[len(tokens)-1]
	if last.TType != efp.TokenTypeFunction || last.TSubType != efp.TokenSubTypeStop {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormula, text)
	}

	var args []string
	expectOperand := true
	for _, tok := range tokens[1 : len(tokens)-1] {
		switch {
		case tok.TType == efp.TokenTypeOperand && expectOperand:
			args = append(args, tok.TValue)
			expectOperand = false
		case tok.TType == efp.TokenTypeArgument:
			expectOperand = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormula, text)
		}
	}
	return args, nil
}

// parseArgument reads one SUM argument as a rectangle. Absolute markers are
// ignored; anything that is not a reference or ref:ref range is an
// ErrInvalidReference.
func parseArgument(arg string) (cellref.Range, error) {
	return cellref.ParseRange(strings.ReplaceAll(arg, "$", ""))
}
