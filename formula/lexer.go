package formula

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSyntax is the sentinel all lexer/parser failures wrap, so callers
// can errors.Is against a single value regardless of the specific cause.
var ErrSyntax = errors.New("formula: syntax error")

// tokenize splits src (the formula text with any leading '=' already
// stripped) into a flat token stream: a single left-to-right scan with
// no backtracking.
func tokenize(src string) ([]token, error) {
	runes := []rune(src)
	var tokens []token
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' || r == '\t' {
			continue
		}
		switch {
		case between(r, '0', '9') || (r == '.' && i+1 < len(runes) && between(runes[i+1], '0', '9')):
			start := i
			seenDot := r == '.'
			i++
			for i < len(runes) && (between(runes[i], '0', '9') || (runes[i] == '.' && !seenDot)) {
				if runes[i] == '.' {
					seenDot = true
				}
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, lit: string(runes[start:i])})
			i--
		case between(r, 'A', 'Z'):
			start := i
			for i < len(runes) && (between(runes[i], '0', '9') || between(runes[i], 'A', 'Z')) {
				i++
			}
			tokens = append(tokens, token{kind: tokCellRef, lit: string(runes[start:i])})
			i--
		default:
			kind, ok := runeTokens[r]
			if !ok {
				return nil, errors.Wrapf(ErrSyntax, "unexpected character %q", r)
			}
			tokens = append(tokens, token{kind: kind})
		}
	}
	return tokens, nil
}

func between(r, lo, hi rune) bool {
	return lo <= r && r <= hi
}

func unexpectedEOF() error {
	return errors.Wrap(ErrSyntax, "unexpected end of formula")
}

func unexpectedToken(t token) error {
	return errors.Wrapf(ErrSyntax, "unexpected token %s", fmt.Sprint(describeToken(t)))
}

func describeToken(t token) string {
	if t.lit != "" {
		return t.lit
	}
	return t.kind.String()
}
