// Package spreadsheet is a reactive, in-memory spreadsheet engine: a grid of
// cells addressed by spreadsheet-style positions ("A1".."XFD16384"), each
// holding literal text, a literal string, or a formula over the small
// arithmetic language that ParseFormula accepts. Writing a formula cell wires it
// into a dependency graph; reading one evaluates lazily and caches until a
// transitive dependency changes.
package spreadsheet

import (
	"io"

	"github.com/akira-the-rime/go-spreadsheet/internal/formula"
	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
	"github.com/akira-the-rime/go-spreadsheet/internal/sheet"
)

// Sentinel errors returned by Sheet methods. Use errors.Is to test for them;
// ErrMalformedFormula wraps the underlying parse error.
var (
	ErrInvalidPosition    = sheet.ErrInvalidPosition
	ErrMalformedFormula   = sheet.ErrMalformedFormula
	ErrCircularDependency = sheet.ErrCircularDependency
)

// ErrorCategory distinguishes the three ways evaluating a formula can fail.
type ErrorCategory = formulaerror.Category

const (
	ErrRef        = formulaerror.Ref
	ErrValue      = formulaerror.Value
	ErrArithmetic = formulaerror.Arithmetic
)

// ValueKind tags the three shapes a cell's computed value can take.
type ValueKind = sheet.ValueKind

const (
	ValueNumber = sheet.ValueNumber
	ValueText   = sheet.ValueText
	ValueError  = sheet.ValueError
)

// Position addresses a single cell by zero-indexed (row, column). Use
// ParsePosition to build one from spreadsheet letter-digit notation.
type Position = position.Position

// InvalidPosition is the sentinel position no real cell ever occupies.
var InvalidPosition = position.Invalid

// ParsePosition decodes a spreadsheet-style address ("A1", "XFD16384", ...)
// into a Position. The second return is false if s is not a well-formed,
// in-range address.
func ParsePosition(s string) (Position, bool) {
	return position.Parse(s)
}

// Value is a cell's computed value: exactly one of a number, a text string
// or a FormulaError, selected by Kind.
type Value = sheet.Value

// Formula is a parsed, immutable formula body: the printable, evaluable form
// produced by ParseFormula or held inside a formula cell.
type Formula = formula.Formula

// ParseFormula parses src (without a leading '=') standalone, independent of
// any Sheet. It is mainly useful for inspecting canonical printing and
// referenced cells without installing the formula anywhere.
func ParseFormula(src string) (*Formula, error) {
	return formula.Parse(src)
}

// Cell is a single addressable spreadsheet cell, owned by exactly one Sheet.
type Cell = sheet.Cell

// Sheet is a grid of cells, keyed by Position, wired into a dependency graph
// by the formulas its cells hold.
type Sheet struct {
	s *sheet.Sheet
}

// NewSheet returns an empty Sheet.
func NewSheet() *Sheet {
	return &Sheet{s: sheet.New()}
}

// SetCell parses text and installs it at pos, creating the cell on first
// write:
//
//   - "" clears the cell to Empty.
//   - text beginning with "'" is taken verbatim as Text, sign stripped on
//     display.
//   - text beginning with "=" (more than just "=") is parsed as a Formula;
//     ErrMalformedFormula is returned (and pos left untouched) if it fails
//     to parse, and ErrCircularDependency is returned (pos again left
//     untouched) if installing it would create a reference cycle.
//   - anything else is taken verbatim as Text.
//
// ErrInvalidPosition is returned if pos is out of range.
func (s *Sheet) SetCell(pos Position, text string) error {
	return s.s.SetCell(pos, text)
}

// GetCell returns the cell at pos, or (nil, nil) if the sheet holds no cell
// there (a cell exists once written or referenced by a formula, until
// ClearCell drops it). ErrInvalidPosition is returned if pos is out of range.
func (s *Sheet) GetCell(pos Position) (*Cell, error) {
	return s.s.GetCell(pos)
}

// ClearCell resets the cell at pos to Empty, dropping it from the sheet
// entirely unless another cell's formula still references it.
// ErrInvalidPosition is returned if pos is out of range.
func (s *Sheet) ClearCell(pos Position) error {
	return s.s.ClearCell(pos)
}

// GetPrintableSize returns the smallest (rows, cols) bounding box covering
// every live cell, or (0, 0) for an empty sheet.
func (s *Sheet) GetPrintableSize() (rows, cols int) {
	return s.s.PrintableSize()
}

// PrintTexts writes the sheet's printable bounding box as tab-separated raw
// cell text, one newline-terminated row per line.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.s.PrintTexts(w)
}

// PrintValues writes the sheet's printable bounding box as tab-separated
// computed cell values.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.s.PrintValues(w)
}
