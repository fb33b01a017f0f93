package formula

import "strconv"

// PrettyPrint implementations render a canonical textual form: re-parsing
// the output must yield a tree with the same pretty-print. Parens are
// emitted around an operand that binds more loosely than its parent, and
// around a same-precedence right operand of '-' or '/'. A same-precedence
// right operand of '+' or '*' is printed bare, so "A1+(B1-C1)" prints as
// "A1 + B1 - C1" and re-parses left-associated.

func (n NumberExpr) PrettyPrint() string {
	return formatNumber(n.Value)
}

func (c CellRefExpr) PrettyPrint() string {
	return c.Ref.String()
}

func (u UnaryExpr) PrettyPrint() string {
	return "-" + renderChild(u.X, u.precedence(), false, false)
}

func (b BinaryExpr) PrettyPrint() string {
	nonAssoc := b.Op == '-' || b.Op == '/'
	left := renderChild(b.X, b.precedence(), false, false)
	right := renderChild(b.Y, b.precedence(), true, nonAssoc)
	return left + " " + string(b.Op) + " " + right
}

// renderChild renders e as the operand of a node with the given
// precedence, parenthesizing when required to preserve meaning.
func renderChild(e Expr, parentPrec int, isRight, nonAssocParent bool) string {
	childPrec := e.precedence()
	needParens := childPrec < parentPrec || (isRight && nonAssocParent && childPrec == parentPrec)
	s := e.PrettyPrint()
	if needParens {
		return "(" + s + ")"
	}
	return s
}

func formatNumber(v float64) string {
	// 'f' never emits exponent notation, which the lexer does not accept.
	return strconv.FormatFloat(v, 'f', -1, 64)
}
