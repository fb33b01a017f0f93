// Package sheet implements Sheet, the grid container that owns every
// Cell, resolves positions, brokers edits, and renders the printable
// grid. Cells are stored sparsely, keyed by position, and each carries
// its own parent/child edge sets (see cell.Cell) rather than the sheet
// indexing edges separately.
package sheet

import (
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kalexmills/cellgraph/cell"
	"github.com/kalexmills/cellgraph/position"
)

// ErrInvalidPosition is returned by any positional API when the
// position falls outside the grid bounds (position.MaxRows/MaxCols).
var ErrInvalidPosition = errors.New("sheet: invalid position")

// Sheet is the in-memory spreadsheet. The zero value is not usable;
// construct with New.
type Sheet struct {
	cells map[position.Position]*cell.Cell
	log   zerolog.Logger
}

// Option configures a Sheet at construction time.
type Option func(*Sheet)

// WithLogger attaches a zerolog.Logger the Sheet uses for debug-level
// tracing of rejected edits (cycles and parse errors) and clears. The
// default is zerolog.Nop(), so logging is opt-in and free when unused.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sheet) { s.log = l }
}

// New constructs an empty Sheet.
func New(opts ...Option) *Sheet {
	s := &Sheet{
		cells: make(map[position.Position]*cell.Cell),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Materialize implements cell.Resolver: it ensures a Cell exists at pos,
// creating an Empty one if needed. Callers must have already validated
// pos; Materialize does not check bounds.
func (s *Sheet) Materialize(pos position.Position) *cell.Cell {
	if c, ok := s.cells[pos]; ok {
		return c
	}
	c := cell.New(pos, s)
	s.cells[pos] = c
	return c
}

// Lookup implements cell.Resolver: it returns the Cell at pos, or nil if
// unmaterialised. Does not check bounds or create anything.
func (s *Sheet) Lookup(pos position.Position) *cell.Cell {
	return s.cells[pos]
}

// SetCell parses and commits new content for the cell at pos, creating
// the cell first if necessary. On failure (invalid position, parse
// error, circular dependency) no cell's content or edges change; Empty
// cells materialised for pos or for the formula's references during the
// attempt stay in the Sheet.
func (s *Sheet) SetCell(pos position.Position, text string) error {
	if !pos.IsValid() {
		return errors.Wrapf(ErrInvalidPosition, "%s", pos)
	}
	c := s.Materialize(pos)
	if err := c.Set(text); err != nil {
		s.log.Debug().Stringer("pos", pos).Err(err).Msg("rejected cell edit")
		return err
	}
	return nil
}

// GetCell returns the cell at pos, or ok=false if unmaterialised.
// GetCell never creates a cell.
func (s *Sheet) GetCell(pos position.Position) (c *cell.Cell, ok bool, err error) {
	if !pos.IsValid() {
		return nil, false, errors.Wrapf(ErrInvalidPosition, "%s", pos)
	}
	c, ok = s.cells[pos]
	return c, ok, nil
}

// ClearCell clears the content at pos. If the cell has parents (other
// cells still reference this position), the slot becomes an Empty cell
// rather than vanishing, so references to it keep resolving instead of
// dangling; if it had no parents, the slot is released entirely.
func (s *Sheet) ClearCell(pos position.Position) error {
	if !pos.IsValid() {
		return errors.Wrapf(ErrInvalidPosition, "%s", pos)
	}
	c, ok := s.cells[pos]
	if !ok {
		return nil
	}
	c.Clear()
	if !c.IsReferenced() {
		delete(s.cells, pos)
		s.log.Debug().Stringer("pos", pos).Msg("released cell: no remaining referrers")
	} else {
		s.log.Debug().Stringer("pos", pos).Msg("cleared cell: kept as empty, still referenced")
	}
	return nil
}

// CellCount returns the number of materialised cells.
func (s *Sheet) CellCount() int {
	return len(s.cells)
}

// GetPrintableSize returns the smallest (rows, cols) rectangle anchored
// at (0,0) containing every materialised, non-Empty cell.
func (s *Sheet) GetPrintableSize() (rows, cols int) {
	for pos, c := range s.cells {
		if c.IsEmpty() {
			continue
		}
		if pos.Row+1 > rows {
			rows = pos.Row + 1
		}
		if pos.Col+1 > cols {
			cols = pos.Col + 1
		}
	}
	return rows, cols
}

// PrintValues writes the printable rectangle's values: tab-separated
// fields per row, newline-terminated, no trailing tab, missing cells
// rendered as the empty field.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.print(w, func(c *cell.Cell) string {
		return c.GetValue().String()
	})
}

// PrintTexts writes the printable rectangle's stored texts, with the
// same field/row framing as PrintValues.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.print(w, func(c *cell.Cell) string {
		return c.GetText()
	})
}

func (s *Sheet) print(w io.Writer, render func(*cell.Cell) string) error {
	rows, cols := s.GetPrintableSize()
	var buf strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				buf.WriteByte('\t')
			}
			if cl, ok := s.cells[position.New(r, c)]; ok {
				buf.WriteString(render(cl))
			}
		}
		buf.WriteByte('\n')
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// String renders PrintValues to a string, for convenient use in logging
// and formatted output without a caller-supplied io.Writer.
func (s *Sheet) String() string {
	var b strings.Builder
	_ = s.PrintValues(&b)
	return b.String()
}

// Positions returns every materialised position, sorted row-major, then
// column. Intended for diagnostics and tests, not part of the hot path.
func (s *Sheet) Positions() []position.Position {
	out := make([]position.Position, 0, len(s.cells))
	for pos := range s.cells {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
