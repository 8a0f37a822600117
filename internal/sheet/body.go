package sheet

import (
	"strconv"
	"strings"

	"github.com/akira-the-rime/go-spreadsheet/internal/formula"
	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
)

// escapeSign, when leading a Text body, marks the rest of the text as a
// literal value even though it would otherwise look like spreadsheet
// syntax (e.g. "'123" displays as the string "123", not the number 123).
const escapeSign = '\''

// bodyKind tags which of the three cell-body variants is active.
type bodyKind int

const (
	kindEmpty bodyKind = iota
	kindText
	kindFormula
)

// body is the value-bearing part of a Cell: a tagged union of Empty, Text
// and Formula, plus the Formula variant's lazily-populated evaluation cache.
type body struct {
	kind bodyKind

	// raw holds the literal text for kindEmpty ("", "'", or "=") and
	// kindText bodies; unused for kindFormula.
	raw string

	// formula holds the parsed AST for kindFormula bodies.
	formula *formula.Formula

	// cache memoizes the last evaluation of a kindFormula body.
	cacheSet bool
	cacheVal float64
	cacheErr *formulaerror.FormulaError
}

func emptyBody(raw string) body { return body{kind: kindEmpty, raw: raw} }
func textBody(raw string) body  { return body{kind: kindText, raw: raw} }
func formulaBody(f *formula.Formula) body {
	return body{kind: kindFormula, formula: f}
}

// referencedCells returns the positions this body's formula mentions, or
// nil for Empty/Text bodies which never reference other cells.
func (b body) referencedCells() []position.Position {
	if b.kind != kindFormula {
		return nil
	}
	return b.formula.ReferencedCells()
}

// text is the GetText() rendering: the raw input for Empty/Text, or
// "=" + canonical print for Formula (never the verbatim input text).
func (b body) text() string {
	if b.kind == kindFormula {
		return "=" + b.formula.Expression()
	}
	return b.raw
}

// value computes GetValue() for Empty and Text bodies directly; Formula
// bodies are handled by Cell.Value, which needs the cache and the owning
// sheet to recursively resolve references.
func (b body) value() Value {
	switch b.kind {
	case kindEmpty:
		if b.raw == "" {
			return Value{Kind: ValueNumber, Number: 0}
		}
		return Value{Kind: ValueText, Text: ""}
	case kindText:
		return Value{Kind: ValueText, Text: stripEscape(b.raw)}
	default:
		return Value{}
	}
}

func stripEscape(text string) string {
	if strings.HasPrefix(text, string(escapeSign)) {
		return text[1:]
	}
	return text
}

// numericText attempts to coerce a Text body's (escape-stripped) value to
// a float64, failing with a Value-category FormulaError if the text isn't
// entirely a valid numeric literal.
func numericText(text string) (float64, *formulaerror.FormulaError) {
	stripped := stripEscape(text)
	v, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, formulaerror.New(formulaerror.Value)
	}
	return v, nil
}
