// Package sheet owns the mapping from Position to Cell and mediates every
// write's cycle check, adjacency rewire and cache invalidation. It is the
// entry point external callers use (through the root spreadsheet package).
package sheet

import (
	"bufio"
	"errors"
	"io"

	"golang.org/x/exp/maps"

	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
)

var (
	// ErrInvalidPosition is returned by any Sheet operation given an
	// out-of-range position.
	ErrInvalidPosition = errors.New("sheet: invalid position")
	// ErrMalformedFormula is returned by SetCell when text starting with
	// '=' fails to parse; the cell's prior state is left untouched.
	ErrMalformedFormula = errors.New("sheet: malformed formula")
	// ErrCircularDependency is returned by SetCell when the formula's
	// dependency closure would include the cell itself; the cell's prior
	// state is left untouched.
	ErrCircularDependency = errors.New("sheet: circular dependency")
)

// Sheet owns every Cell, keyed by Position. No two cells share a position.
type Sheet struct {
	cells map[position.Position]*Cell
}

// New returns an empty Sheet.
func New() *Sheet {
	return &Sheet{cells: make(map[position.Position]*Cell)}
}

// SetCell parses text and installs it at pos, creating the cell on first
// write. Malformed formulas and cycles are rejected without mutating the
// cell; any other Sheet error is ErrInvalidPosition.
func (s *Sheet) SetCell(pos position.Position, text string) error {
	if !pos.IsValid() {
		return ErrInvalidPosition
	}
	return s.ensure(pos).set(text)
}

// GetCell returns the cell at pos, or (nil, nil) if the sheet holds no cell
// there. A cell exists once it is written or referenced by a formula, and
// stops existing when ClearCell drops it.
func (s *Sheet) GetCell(pos position.Position) (*Cell, error) {
	if !pos.IsValid() {
		return nil, ErrInvalidPosition
	}
	return s.cells[pos], nil
}

// ClearCell resets the cell at pos to Empty. If nothing else references
// it, the node is dropped from the sheet entirely; otherwise it is kept
// (now Empty) to serve as a target for those references.
func (s *Sheet) ClearCell(pos position.Position) error {
	if !pos.IsValid() {
		return ErrInvalidPosition
	}
	c, ok := s.cells[pos]
	if !ok {
		return nil
	}
	c.clear()
	if !c.HasIncoming() {
		for p := range c.outgoing {
			if other, ok := s.cells[p]; ok {
				delete(other.incoming, pos)
			}
		}
		delete(s.cells, pos)
	}
	return nil
}

// PrintableSize returns the smallest (rows, cols) bounding box covering
// every live cell, or (0, 0) if the sheet is empty.
func (s *Sheet) PrintableSize() (rows, cols int) {
	for _, pos := range maps.Keys(s.cells) {
		if pos.Row+1 > rows {
			rows = pos.Row + 1
		}
		if pos.Col+1 > cols {
			cols = pos.Col + 1
		}
	}
	return rows, cols
}

// PrintTexts renders the sheet's printable bounding box as tab-separated
// raw cell text, one newline-terminated row per line, including the last.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.printGrid(w, func(c *Cell) string { return c.Text() })
}

// PrintValues renders the sheet's printable bounding box as tab-separated
// computed cell values: text verbatim, numbers in shortest round-trip
// decimal form, errors as their "#...!" token.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.printGrid(w, func(c *Cell) string { return c.Value().String() })
}

func (s *Sheet) printGrid(w io.Writer, render func(*Cell) string) error {
	rows, cols := s.PrintableSize()
	bw := bufio.NewWriter(w)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if cell, ok := s.cells[position.Position{Row: r, Col: c}]; ok {
				if _, err := bw.WriteString(render(cell)); err != nil {
					return err
				}
			}
			if c != cols-1 {
				if err := bw.WriteByte('\t'); err != nil {
					return err
				}
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ensure returns the cell at pos, creating an Empty one if absent. Used
// both for the write entry point and to auto-materialize a formula's
// referenced positions, matching the documented behavior that writing
// "=B2" causes B2 to exist.
func (s *Sheet) ensure(pos position.Position) *Cell {
	if c, ok := s.cells[pos]; ok {
		return c
	}
	c := newCell(pos, s)
	s.cells[pos] = c
	return c
}

// hasCycle reports whether installing a formula at targetPos referencing
// refs would create a cycle: a breadth-first walk of incoming edges
// starting at targetPos (itself included) that reaches any position in
// refs means that position already transitively depends on targetPos.
func (s *Sheet) hasCycle(targetPos position.Position, refs []position.Position) bool {
	refSet := make(map[position.Position]struct{}, len(refs))
	for _, p := range refs {
		refSet[p] = struct{}{}
	}

	visited := map[position.Position]struct{}{targetPos: {}}
	queue := []position.Position{targetPos}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, bad := refSet[cur]; bad {
			return true
		}
		c, ok := s.cells[cur]
		if !ok {
			continue
		}
		for p := range c.incoming {
			if _, seen := visited[p]; !seen {
				visited[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	return false
}

// NumericValue implements formula.CellResolver: the coercion a formula
// uses when it references pos. Absent and Empty cells contribute 0;
// Text cells parse their (escape-stripped) value as a number; Formula
// cells recursively evaluate (through their own cache), propagating
// whatever FormulaError category they produced.
func (s *Sheet) NumericValue(pos position.Position) (float64, *formulaerror.FormulaError) {
	c, ok := s.cells[pos]
	if !ok {
		return 0, nil
	}
	switch c.body.kind {
	case kindEmpty:
		return 0, nil
	case kindText:
		return numericText(c.body.raw)
	case kindFormula:
		return c.evaluate()
	default:
		return 0, nil
	}
}
