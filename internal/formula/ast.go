package formula

import (
	"math"
	"strconv"

	"github.com/akira-the-rime/go-spreadsheet/internal/formulaerror"
	"github.com/akira-the-rime/go-spreadsheet/internal/position"
)

// Node is a formula expression tree node. The concrete types below are the
// only implementations; the model mirrors Go's own ast package in spirit.
type Node interface {
	isNode()
}

// NumberNode is a non-negative numeric literal; a leading '-' in source
// always parses to a UnaryNode wrapping one of these, never a negative
// literal, so that canonical printing round-trips through the same shape.
type NumberNode struct {
	Value float64
}

// CellRefNode references another cell. Valid is false when the token has
// the lexical shape of a cell reference but does not denote an in-range
// Position (e.g. "XFE1"); Raw preserves the original text for printing.
type CellRefNode struct {
	Raw   string
	Pos   position.Position
	Valid bool
}

// UnaryNode is a prefix '+' or '-' applied to X.
type UnaryNode struct {
	Op byte
	X  Node
}

// BinaryNode is one of the four arithmetic operators applied to X and Y.
type BinaryNode struct {
	Op byte
	X  Node
	Y  Node
}

// ParenNode marks an explicit parenthesization from the source text. It is
// transparent to evaluation and reference-listing; canonical printing
// recomputes its own minimal parenthesization and ignores this marker.
type ParenNode struct {
	X Node
}

func (NumberNode) isNode()  {}
func (CellRefNode) isNode() {}
func (UnaryNode) isNode()   {}
func (BinaryNode) isNode()  {}
func (ParenNode) isNode()   {}

// CellResolver is the narrow view of a sheet a formula needs to evaluate a
// cell reference: the numeric coercion of whatever that cell currently
// holds (0 for absent/empty, the parsed number for text, the recursively
// evaluated-and-cached result for a nested formula).
type CellResolver interface {
	NumericValue(pos position.Position) (float64, *formulaerror.FormulaError)
}

// Execute evaluates n against r, post-order, stopping at the first
// FormulaError encountered.
func Execute(r CellResolver, n Node) (float64, *formulaerror.FormulaError) {
	switch v := n.(type) {
	case NumberNode:
		return v.Value, nil
	case UnaryNode:
		x, err := Execute(r, v.X)
		if err != nil {
			return 0, err
		}
		if v.Op == '-' {
			return -x, nil
		}
		return x, nil
	case BinaryNode:
		x, err := Execute(r, v.X)
		if err != nil {
			return 0, err
		}
		y, err := Execute(r, v.Y)
		if err != nil {
			return 0, err
		}
		result, err := applyBinary(v.Op, x, y)
		if err != nil {
			return 0, err
		}
		return result, nil
	case ParenNode:
		return Execute(r, v.X)
	case CellRefNode:
		if !v.Valid {
			return 0, formulaerror.New(formulaerror.Ref)
		}
		return r.NumericValue(v.Pos)
	default:
		return 0, nil
	}
}

func applyBinary(op byte, x, y float64) (float64, *formulaerror.FormulaError) {
	var result float64
	switch op {
	case '+':
		result = x + y
	case '-':
		result = x - y
	case '*':
		result = x * y
	case '/':
		result = x / y
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, formulaerror.New(formulaerror.Arithmetic)
	}
	return result, nil
}

// GetCells lists every cell-reference node's position in left-to-right
// occurrence order, including the Invalid sentinel for Ref-error nodes.
func GetCells(n Node) []position.Position {
	var out []position.Position
	collectCells(n, &out)
	return out
}

func collectCells(n Node, out *[]position.Position) {
	switch v := n.(type) {
	case UnaryNode:
		collectCells(v.X, out)
	case BinaryNode:
		collectCells(v.X, out)
		collectCells(v.Y, out)
	case ParenNode:
		collectCells(v.X, out)
	case CellRefNode:
		if v.Valid {
			*out = append(*out, v.Pos)
		} else {
			*out = append(*out, position.Invalid)
		}
	}
}

// GetReferencedCells filters GetCells down to valid positions, collapsing
// only adjacent duplicates -- callers depend on first-occurrence order and
// this exact deduplication behavior.
func GetReferencedCells(n Node) []position.Position {
	cells := GetCells(n)
	result := make([]position.Position, 0, len(cells))
	for _, p := range cells {
		if !p.IsValid() {
			continue
		}
		if len(result) > 0 && result[len(result)-1] == p {
			continue
		}
		result = append(result, p)
	}
	return result
}

// precedence returns the binding strength of a binary operator; unary
// prefixes, literals, cell refs and parens are all treated as atomic
// (maxPrecedence) since they never require parens around themselves.
const maxPrecedence = 3

func precedence(op byte) int {
	switch op {
	case '+', '-':
		return 1
	case '*', '/':
		return 2
	default:
		return maxPrecedence
	}
}

func nodePrecedence(n Node) int {
	if b, ok := n.(BinaryNode); ok {
		return precedence(b.Op)
	}
	return maxPrecedence
}

func unwrapParen(n Node) Node {
	for {
		p, ok := n.(ParenNode)
		if !ok {
			return n
		}
		n = p.X
	}
}

// PrintFormula renders n to the minimal-parenthesis form that re-parses to
// an equivalent AST: parens are added only where operator precedence or
// left-associativity would otherwise change the grouping.
func PrintFormula(n Node) string {
	switch v := n.(type) {
	case NumberNode:
		return formatNumber(v.Value)
	case CellRefNode:
		if v.Valid {
			return v.Pos.String()
		}
		return v.Raw
	case UnaryNode:
		return string(v.Op) + printChild(v.X, maxPrecedence, false)
	case BinaryNode:
		prec := precedence(v.Op)
		left := printChild(v.X, prec, false)
		right := printChild(v.Y, prec, true)
		return left + string(v.Op) + right
	case ParenNode:
		return PrintFormula(unwrapParen(v))
	default:
		return ""
	}
}

// printChild renders a child expression, parenthesizing it when its
// precedence is strictly lower than the parent's, or when it sits as the
// right operand of an operator at the same (left-associative) precedence.
func printChild(n Node, parentPrec int, isRight bool) string {
	n = unwrapParen(n)
	s := PrintFormula(n)
	childPrec := nodePrecedence(n)
	if childPrec < parentPrec || (isRight && childPrec == parentPrec) {
		return "(" + s + ")"
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
