package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/akira-the-rime/go-spreadsheet/internal/formula"
	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
)

func formatValueNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ValueKind tags the three shapes a cell's computed value can take.
type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueText
	ValueError
)

// Value is a cell's computed value: a number, a text string, or a
// FormulaError, mutually exclusive per Kind.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
	Err    error
}

// String renders the value the way Sheet.PrintValues does: the text form
// for strings, shortest round-trip decimal for numbers, and the "#...!"
// token for errors.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return formatValueNumber(v.Number)
	case ValueText:
		return v.Text
	case ValueError:
		return v.Err.Error()
	default:
		return ""
	}
}

// Cell owns exactly one body (Empty, Text, or Formula) plus the two
// position sets that form its half of the sheet-wide dependency graph.
// Edges are stored as positions -- resolved back through the owning Sheet
// on every traversal -- rather than direct pointers, so the graph has no
// pointer cycles for the owning Sheet to reason about.
type Cell struct {
	pos   position.Position
	sheet *Sheet
	body  body

	// outgoing holds the positions this cell's formula references;
	// incoming holds the positions of cells that reference this one.
	outgoing map[position.Position]struct{}
	incoming map[position.Position]struct{}
}

func newCell(pos position.Position, sheet *Sheet) *Cell {
	return &Cell{
		pos:      pos,
		sheet:    sheet,
		body:     emptyBody(""),
		outgoing: make(map[position.Position]struct{}),
		incoming: make(map[position.Position]struct{}),
	}
}

// Position returns the coordinate this cell lives at.
func (c *Cell) Position() position.Position { return c.pos }

// Text returns the GetText() rendering of the cell's current body.
func (c *Cell) Text() string { return c.body.text() }

// Value returns the cell's current computed value, evaluating and caching
// a Formula body's result if needed.
func (c *Cell) Value() Value {
	if c.body.kind != kindFormula {
		return c.body.value()
	}
	num, ferr := c.evaluate()
	if ferr != nil {
		return Value{Kind: ValueError, Err: ferr}
	}
	return Value{Kind: ValueNumber, Number: num}
}

// ReferencedCells lists the positions a Formula body references; nil for
// Empty and Text bodies.
func (c *Cell) ReferencedCells() []position.Position {
	return c.body.referencedCells()
}

// HasIncoming reports whether any other cell currently references this
// one; Sheet.ClearCell uses this to decide whether the node can be
// dropped entirely or must be kept (as an Empty body) to serve as a
// target for those references.
func (c *Cell) HasIncoming() bool {
	return len(c.incoming) > 0
}

// evaluate returns the Formula body's cached result, computing and
// caching it on first access. Recursive references resolve through the
// owning Sheet, which itself calls back into evaluate for formula cells.
func (c *Cell) evaluate() (float64, *formulaerror.FormulaError) {
	if c.body.cacheSet {
		return c.body.cacheVal, c.body.cacheErr
	}
	num, ferr := c.body.formula.Evaluate(c.sheet)
	c.body.cacheSet = true
	c.body.cacheVal = num
	c.body.cacheErr = ferr
	return num, ferr
}

// invalidateCache drops a Formula body's cached result, if any.
func (c *Cell) invalidateCache() {
	c.body.cacheSet = false
	c.body.cacheVal = 0
	c.body.cacheErr = nil
}

// set installs a new body for text, following the same dispatch the
// original engine uses: "", "'" and "=" alone are Empty; any other text
// starting with '=' is a formula; everything else is Text.
func (c *Cell) set(text string) error {
	switch {
	case text == "" || text == "'" || text == "=":
		c.commit(emptyBody(text))
		return nil
	case strings.HasPrefix(text, "=") && len(text) > 1:
		return c.setFormula(text[1:])
	default:
		c.commit(textBody(text))
		return nil
	}
}

func (c *Cell) setFormula(src string) error {
	f, err := formula.Parse(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFormula, err)
	}

	// No-op short circuit: rewriting a formula cell with text that
	// canonicalizes to the same expression preserves the cache.
	if c.body.kind == kindFormula && c.body.formula.Expression() == f.Expression() {
		return nil
	}

	refs := f.ReferencedCells()
	if len(refs) > 0 {
		for _, p := range refs {
			c.sheet.ensure(p)
		}
		if c.sheet.hasCycle(c.pos, refs) {
			return ErrCircularDependency
		}
	}

	c.commit(formulaBody(f))
	return nil
}

// commit installs newBody, then rewires adjacency and invalidates
// dependent caches. Ordering matches the write contract: by the time this
// runs, any cycle check has already passed and nothing has mutated yet.
func (c *Cell) commit(newBody body) {
	for p := range c.outgoing {
		if other, ok := c.sheet.cells[p]; ok {
			delete(other.incoming, c.pos)
		}
	}
	maps.Clear(c.outgoing)

	c.body = newBody

	for _, p := range newBody.referencedCells() {
		target := c.sheet.ensure(p)
		c.outgoing[p] = struct{}{}
		target.incoming[c.pos] = struct{}{}
	}

	c.invalidateDependents()
}

// clear resets the body to Empty without touching adjacency: outgoing and
// incoming edge sets are left exactly as they were, matching the engine's
// lightweight Clear (Sheet decides whether to drop the node entirely).
// Dependent formula caches are still invalidated, since the cell's value
// may have changed and no dependent may observe a stale cached result.
func (c *Cell) clear() {
	c.body = emptyBody("")
	c.invalidateDependents()
}

// invalidateDependents walks incoming edges, dropping each dependent
// Formula cell's cache. A node whose cache is already empty is not
// descended into further: anything reachable only through it must
// already be clear, by the same invariant applied on a prior write.
func (c *Cell) invalidateDependents() {
	for p := range c.incoming {
		other, ok := c.sheet.cells[p]
		if !ok || other.body.kind != kindFormula {
			continue
		}
		if !other.body.cacheSet {
			continue
		}
		other.invalidateCache()
		other.invalidateDependents()
	}
}
