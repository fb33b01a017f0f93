package formula

import (
	"github.com/kalexmills/cellgraph/formulaerr"
	"github.com/kalexmills/cellgraph/position"
)

// Lookup resolves a referenced Position to a number, applying whatever
// cell-content coercion rules the owning cell graph uses. It is supplied
// by the cell graph, never by formula itself.
type Lookup func(position.Position) (float64, *formulaerr.Error)

// Expr is a parsed formula expression, modelled loosely on the standard
// library's ast package: a small closed set of node types, each able to
// evaluate itself and render its own canonical text.
type Expr interface {
	// Evaluate computes the expression's value, resolving cell references
	// through lookup. It returns a FormulaError rather than a Go error:
	// formula evaluation failures are in-band values, not exceptions.
	Evaluate(lookup Lookup) (float64, *formulaerr.Error)
	// PrettyPrint renders the canonical textual form of the expression.
	PrettyPrint() string

	precedence() int
}

// NumberExpr is a literal numeric constant.
type NumberExpr struct {
	Value float64
}

// CellRefExpr is a reference to another cell's value.
type CellRefExpr struct {
	Ref position.Position
}

// UnaryExpr represents a unary operator applied to X. The only unary
// operator in the grammar is negation.
type UnaryExpr struct {
	X Expr
}

// BinaryExpr represents a binary expression: X Op Y.
type BinaryExpr struct {
	X  Expr
	Op byte // one of '+', '-', '*', '/'
	Y  Expr
}

func (NumberExpr) precedence() int  { return 4 }
func (CellRefExpr) precedence() int { return 4 }
func (UnaryExpr) precedence() int   { return 3 }
func (b BinaryExpr) precedence() int {
	if b.Op == '+' || b.Op == '-' {
		return 1
	}
	return 2
}

func (n NumberExpr) Evaluate(Lookup) (float64, *formulaerr.Error) {
	return n.Value, nil
}

func (c CellRefExpr) Evaluate(lookup Lookup) (float64, *formulaerr.Error) {
	if !c.Ref.IsValid() {
		return 0, formulaerr.New(formulaerr.Ref)
	}
	return lookup(c.Ref)
}

func (u UnaryExpr) Evaluate(lookup Lookup) (float64, *formulaerr.Error) {
	x, ferr := u.X.Evaluate(lookup)
	if ferr != nil {
		return 0, ferr
	}
	return -x, nil
}

func (b BinaryExpr) Evaluate(lookup Lookup) (float64, *formulaerr.Error) {
	x, ferr := b.X.Evaluate(lookup)
	if ferr != nil {
		return 0, ferr
	}
	y, ferr := b.Y.Evaluate(lookup)
	if ferr != nil {
		return 0, ferr
	}
	switch b.Op {
	case '+':
		return x + y, nil
	case '-':
		return x - y, nil
	case '*':
		return x * y, nil
	case '/':
		if y == 0 {
			return 0, formulaerr.New(formulaerr.Div0)
		}
		return x / y, nil
	}
	return 0, nil // unreachable: parse never produces any other Op
}

// ReferencedCells returns the deduplicated, source-order list of
// positions referenced anywhere in e.
func ReferencedCells(e Expr) []position.Position {
	var out []position.Position
	seen := make(map[position.Position]struct{})
	collectRefs(e, seen, &out)
	return out
}

func collectRefs(e Expr, seen map[position.Position]struct{}, out *[]position.Position) {
	switch e := e.(type) {
	case CellRefExpr:
		if _, ok := seen[e.Ref]; !ok {
			seen[e.Ref] = struct{}{}
			*out = append(*out, e.Ref)
		}
	case UnaryExpr:
		collectRefs(e.X, seen, out)
	case BinaryExpr:
		collectRefs(e.X, seen, out)
		collectRefs(e.Y, seen, out)
	}
}
