package formula

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/kalexmills/cellgraph/position"
)

// Parse parses src — a formula's text with any leading '=' already
// stripped — into an Expr. It wraps ErrSyntax on failure. The pipeline is
// tokenize, then a recursive-descent parse by precedence (term, factor,
// unary, primary).
func Parse(src string) (Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	expr, rest, err := parseTerm(tokens)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, unexpectedToken(rest[0])
	}
	return expr, nil
}

// parseTerm parses addition and subtraction, the lowest-precedence level.
func parseTerm(tokens []token) (Expr, []token, error) {
	return parseBinary(tokens, map[tokenKind]bool{tokAdd: true, tokSub: true}, parseFactor)
}

// parseFactor parses multiplication and division.
func parseFactor(tokens []token) (Expr, []token, error) {
	return parseBinary(tokens, map[tokenKind]bool{tokMul: true, tokDiv: true}, parseUnary)
}

// parseBinary parses a left-associative chain of same-precedence binary
// operators, deferring each operand to next.
func parseBinary(tokens []token, ops map[tokenKind]bool, next func([]token) (Expr, []token, error)) (Expr, []token, error) {
	expr, rest, err := next(tokens)
	if err != nil {
		return nil, nil, err
	}
	for len(rest) > 0 && ops[rest[0].kind] {
		opTok := rest[0]
		y, r2, err := next(rest[1:])
		if err != nil {
			return nil, nil, err
		}
		expr = BinaryExpr{X: expr, Op: opSymbol(opTok.kind), Y: y}
		rest = r2
	}
	return expr, rest, nil
}

func opSymbol(k tokenKind) byte {
	switch k {
	case tokAdd:
		return '+'
	case tokSub:
		return '-'
	case tokMul:
		return '*'
	case tokDiv:
		return '/'
	}
	return 0
}

// parseUnary parses a (possibly repeated) leading unary minus.
func parseUnary(tokens []token) (Expr, []token, error) {
	if len(tokens) == 0 {
		return nil, nil, unexpectedEOF()
	}
	if tokens[0].kind == tokSub {
		x, rest, err := parseUnary(tokens[1:])
		if err != nil {
			return nil, nil, err
		}
		if n, ok := x.(NumberExpr); ok { // fold constant negation into a single literal
			return NumberExpr{Value: -n.Value}, rest, nil
		}
		return UnaryExpr{X: x}, rest, nil
	}
	return parsePrimary(tokens)
}

// parsePrimary parses numbers, cell references, and parenthesized
// sub-expressions.
func parsePrimary(tokens []token) (Expr, []token, error) {
	if len(tokens) == 0 {
		return nil, nil, unexpectedEOF()
	}
	t := tokens[0]
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrSyntax, "invalid numeric literal %q", t.lit)
		}
		return NumberExpr{Value: v}, tokens[1:], nil
	case tokCellRef:
		pos, ok := position.Parse(t.lit)
		if !ok {
			return nil, nil, errors.Wrapf(ErrSyntax, "invalid cell reference %q", t.lit)
		}
		return CellRefExpr{Ref: pos}, tokens[1:], nil
	case tokLPar:
		expr, rest, err := parseTerm(tokens[1:])
		if err != nil {
			return nil, nil, err
		}
		if len(rest) == 0 || rest[0].kind != tokRPar {
			return nil, nil, errors.Wrap(ErrSyntax, "expected ')'")
		}
		return expr, rest[1:], nil
	default:
		return nil, nil, unexpectedToken(t)
	}
}
