// Package cell implements Cell, a single spreadsheet slot: its content
// variant (empty, text, or formula), its parent/child edges in the
// dependency graph, and its value cache. Edges are tracked per cell
// (each Cell carries its own children/parents sets) rather than in a
// sheet-wide index, so a cell's graph neighborhood is always local to it.
package cell

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/kalexmills/cellgraph/formula"
	"github.com/kalexmills/cellgraph/formulaerr"
	"github.com/kalexmills/cellgraph/position"
)

// ErrCircularDependency is returned when a proposed formula would close
// a cycle in the reference graph. The cell is left unchanged.
var ErrCircularDependency = errors.New("cell: circular dependency")

// ErrFormulaSyntax is returned when the text following '=' cannot be
// parsed as a formula. The cell is left unchanged.
var ErrFormulaSyntax = errors.New("cell: formula syntax error")

// EscapeChar suppresses the leading character of a Text cell's value
// while leaving it present in the stored text.
const EscapeChar = '\''

// kind tags which of the three content variants a Cell currently holds.
type kind int

const (
	kindEmpty kind = iota
	kindText
	kindFormula
)

// Resolver is the narrow slice of Sheet that Cell needs in order to
// materialise referenced positions, run the cycle check, and evaluate
// formulas. Kept as an interface (rather than importing sheet directly)
// to avoid an import cycle between cell and sheet, and because Cell
// should depend only on the capability it actually uses.
type Resolver interface {
	// Materialize ensures a Cell exists at pos (creating an Empty one if
	// not), returning it. pos is assumed already validated by the caller.
	Materialize(pos position.Position) *Cell
	// Lookup resolves pos to a *Cell, or nil if unmaterialised.
	Lookup(pos position.Position) *Cell
}

// Cell is one grid slot.
type Cell struct {
	pos position.Position

	kind  kind
	text  string      // Text variant: the stored literal. Formula variant: unused (see expr).
	expr  formula.Expr // set iff kind == kindFormula
	cache *float64     // Formula cache: nil == unset.

	children map[position.Position]struct{} // cells this cell's formula references
	parents  map[position.Position]struct{} // cells that reference this one

	sheet Resolver
}

// New creates an Empty cell at pos, owned by sheet for edge maintenance.
func New(pos position.Position, sheet Resolver) *Cell {
	return &Cell{
		pos:      pos,
		kind:     kindEmpty,
		children: make(map[position.Position]struct{}),
		parents:  make(map[position.Position]struct{}),
		sheet:    sheet,
	}
}

// Position returns the cell's grid position.
func (c *Cell) Position() position.Position { return c.pos }

// Parents returns the set of positions that reference this cell,
// snapshotted as a slice (order unspecified; edges are set semantics).
func (c *Cell) Parents() []position.Position {
	return maps.Keys(c.parents)
}

// Children returns the set of positions this cell's formula references.
func (c *Cell) Children() []position.Position {
	return maps.Keys(c.children)
}

// IsReferenced reports whether any other cell references this one.
func (c *Cell) IsReferenced() bool {
	return len(c.parents) > 0
}

// IsEmpty reports whether the cell currently holds no content at all
// (used by Sheet to leave Empty cells out of the printable size).
func (c *Cell) IsEmpty() bool {
	return c.kind == kindEmpty
}

// GetReferencedCells returns the deduplicated, source-order list of
// positions referenced by a Formula cell; empty for Empty/Text cells.
func (c *Cell) GetReferencedCells() []position.Position {
	if c.kind != kindFormula {
		return nil
	}
	return formula.ReferencedCells(c.expr)
}

// GetText returns the cell's stored text: the empty string for Empty,
// the literal (escape retained) for Text, "=" + pretty-print for Formula.
func (c *Cell) GetText() string {
	switch c.kind {
	case kindEmpty:
		return ""
	case kindText:
		return c.text
	case kindFormula:
		return "=" + c.expr.PrettyPrint()
	}
	return ""
}

// Set classifies and commits new content for the cell: classify, parse
// (if Formula), materialise referenced positions, pre-commit cycle
// check, commit, rewire edges, invalidate. On any failure the cell is
// left completely unchanged.
func (c *Cell) Set(text string) error {
	if text == "" {
		c.setEmpty()
		return nil
	}
	if strings.HasPrefix(text, "=") && len(text) > 1 {
		return c.setFormula(text)
	}
	c.setText(text)
	return nil
}

func (c *Cell) setEmpty() {
	c.detachChildren()
	c.kind = kindEmpty
	c.text = ""
	c.expr = nil
	c.cache = nil
	invalidateParents(c)
}

func (c *Cell) setText(text string) {
	c.detachChildren()
	c.kind = kindText
	c.text = text
	c.expr = nil
	c.cache = nil
	invalidateParents(c)
}

func (c *Cell) setFormula(text string) error {
	expr, err := formula.Parse(text[1:])
	if err != nil {
		return errors.Wrapf(ErrFormulaSyntax, "cell %s: %v", c.pos, err)
	}

	refs := formula.ReferencedCells(expr)
	for _, pos := range refs {
		if pos.IsValid() {
			c.sheet.Materialize(pos)
		}
	}

	if err := c.checkCycle(refs); err != nil {
		return err
	}

	c.detachChildren()
	c.kind = kindFormula
	c.text = ""
	c.expr = expr
	c.cache = nil

	for _, pos := range refs {
		c.children[pos] = struct{}{}
		if child := c.sheet.Lookup(pos); child != nil {
			child.parents[c.pos] = struct{}{}
		}
	}

	invalidateParents(c)
	return nil
}

// checkCycle performs a depth-first traversal from each of refs,
// following the currently committed children edges, to see whether it
// ever reaches c. The traversal never follows c's own (not yet
// committed) outgoing edges — refs is exactly the candidate's would-be
// frontier, so this checks whether committing them would close a cycle
// before any edge is actually written.
func (c *Cell) checkCycle(refs []position.Position) error {
	visited := make(map[position.Position]struct{})
	var visit func(pos position.Position) error
	visit = func(pos position.Position) error {
		if pos == c.pos {
			return errors.Wrapf(ErrCircularDependency, "cell %s", c.pos)
		}
		if _, ok := visited[pos]; ok {
			return nil
		}
		visited[pos] = struct{}{}
		cell := c.sheet.Lookup(pos)
		if cell == nil {
			return nil
		}
		for child := range cell.children {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, pos := range refs {
		if err := visit(pos); err != nil {
			return err
		}
	}
	return nil
}

// detachChildren removes c from the parents set of every current child,
// then clears c's own children set. Called at the start of every
// content transition, before the new content (if any) is committed.
func (c *Cell) detachChildren() {
	for pos := range c.children {
		if child := c.sheet.Lookup(pos); child != nil {
			delete(child.parents, c.pos)
		}
	}
	maps.Clear(c.children)
}

// Clear transitions the cell to Empty. Edges to children are detached;
// edges from parents remain, since they still reference this position.
func (c *Cell) Clear() {
	c.setEmpty()
}

// Value is the result of GetValue: exactly one of Num, Str, or Err is
// meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Err  *formulaerr.Error
}

// ValueKind tags which field of Value holds the result.
type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueString
	ValueError
)

func numberValue(v float64) Value        { return Value{Kind: ValueNumber, Num: v} }
func stringValue(s string) Value         { return Value{Kind: ValueString, Str: s} }
func errorValue(e *formulaerr.Error) Value { return Value{Kind: ValueError, Err: e} }

// String renders the value as the printable engine would: numbers in Go's
// default format, strings as themselves, errors by their textual tag.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ValueString:
		return v.Str
	case ValueError:
		return v.Err.Error()
	}
	return ""
}

// GetValue dispatches on content variant: Empty is 0, Text strips one
// leading escape, Formula evaluates lazily and caches successful numeric
// results (never caches FormulaErrors, so a later call can retry once an
// upstream cell is fixed).
func (c *Cell) GetValue() Value {
	switch c.kind {
	case kindEmpty:
		return numberValue(0)
	case kindText:
		return stringValue(stripEscape(c.text))
	case kindFormula:
		if c.cache != nil {
			return numberValue(*c.cache)
		}
		v, ferr := c.expr.Evaluate(c.lookup)
		if ferr != nil {
			return errorValue(ferr)
		}
		c.cache = &v
		return numberValue(v)
	}
	return numberValue(0)
}

// lookup resolves a referenced position to a number according to what
// kind of cell (if any) currently sits there.
func (c *Cell) lookup(pos position.Position) (float64, *formulaerr.Error) {
	target := c.sheet.Lookup(pos)
	if target == nil {
		return 0, nil
	}
	switch target.kind {
	case kindEmpty:
		return 0, nil
	case kindText:
		s := stripEscape(target.text)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, formulaerr.New(formulaerr.Value)
		}
		return v, nil
	case kindFormula:
		v := target.GetValue()
		switch v.Kind {
		case ValueNumber:
			return v.Num, nil
		case ValueError:
			return 0, v.Err
		default:
			return 0, formulaerr.New(formulaerr.Value)
		}
	}
	return 0, nil
}

func stripEscape(s string) string {
	if len(s) > 0 && s[0] == EscapeChar {
		return s[1:]
	}
	return s
}

// invalidateCache resets c's own cache. A no-op for non-Formula cells.
func (c *Cell) invalidateCache() {
	c.cache = nil
}

// invalidateParents cascades cache invalidation to every transitive
// parent of c. The traversal keeps a visited set so that diamond-shaped
// graphs are walked once per invalidation: an already-unset parent is
// still walked (its own parents may still be set), but never twice in
// the same cascade.
func invalidateParents(c *Cell) {
	visited := make(map[position.Position]struct{})
	var walk func(cur *Cell)
	walk = func(cur *Cell) {
		for pos := range cur.parents {
			if _, ok := visited[pos]; ok {
				continue
			}
			visited[pos] = struct{}{}
			parent := cur.sheet.Lookup(pos)
			if parent == nil {
				continue
			}
			parent.invalidateCache()
			walk(parent)
		}
	}
	walk(c)
}
