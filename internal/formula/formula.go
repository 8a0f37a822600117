// Package formula implements the lexer, recursive-descent parser,
// evaluator and canonical printer for the small arithmetic expression
// language a formula cell's text compiles to.
package formula

import (
	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
)

// Formula is a parsed, immutable formula body. It holds no evaluation
// state of its own; a cache belongs to whatever owns the Formula.
type Formula struct {
	root Node
}

// Parse lexes and parses src (the formula source with the leading '='
// already stripped) into a Formula, or returns ErrSyntax.
func Parse(src string) (*Formula, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Formula{root: root}, nil
}

// Evaluate executes the formula against r, returning the first
// FormulaError encountered post-order, if any.
func (f *Formula) Evaluate(r CellResolver) (float64, *formulaerror.FormulaError) {
	return Execute(r, f.root)
}

// Expression renders the formula's canonical, minimal-parenthesis text
// (without the leading '=').
func (f *Formula) Expression() string {
	return PrintFormula(f.root)
}

// ReferencedCells lists the valid positions the formula mentions, in
// occurrence order with only adjacent duplicates collapsed (a position
// repeated non-adjacently appears more than once).
func (f *Formula) ReferencedCells() []position.Position {
	return GetReferencedCells(f.root)
}
