package cell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalexmills/cellgraph/cell"
	"github.com/kalexmills/cellgraph/position"
	"github.com/kalexmills/cellgraph/sheet"
)

func pos(str string) position.Position { return position.MustParse(str) }

func TestCell_EmptyByDefault(t *testing.T) {
	s := sheet.New()
	c := s.Materialize(pos("A1"))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, "", c.GetText())
	v := c.GetValue()
	require.Equal(t, cell.ValueNumber, v.Kind)
	assert.Equal(t, 0.0, v.Num)
	assert.False(t, c.IsReferenced())
}

func TestCell_TextEscape(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "'42"))
	c, _, _ := s.GetCell(pos("A1"))
	assert.Equal(t, "'42", c.GetText())
	v := c.GetValue()
	require.Equal(t, cell.ValueString, v.Kind)
	assert.Equal(t, "42", v.Str)
}

func TestCell_TextWithoutEscape(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "plain"))
	c, _, _ := s.GetCell(pos("A1"))
	v := c.GetValue()
	require.Equal(t, cell.ValueString, v.Kind)
	assert.Equal(t, "plain", v.Str)
}

func TestCell_IsReferenced(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "1"))
	require.NoError(t, s.SetCell(pos("B1"), "=A1"))

	a1, _, _ := s.GetCell(pos("A1"))
	assert.True(t, a1.IsReferenced())

	b1, _, _ := s.GetCell(pos("B1"))
	assert.False(t, b1.IsReferenced())
}

func TestCell_GetReferencedCells_dedupAndOrder(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("C1"), "=A1+B1*A1+C2"))
	c, _, _ := s.GetCell(pos("C1"))
	got := c.GetReferencedCells()
	assert.Equal(t, []position.Position{pos("A1"), pos("B1"), pos("C2")}, got)
}

func TestCell_DiamondReferenceIsNotACycle(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "1"))
	require.NoError(t, s.SetCell(pos("B1"), "=A1"))
	require.NoError(t, s.SetCell(pos("C1"), "=A1"))
	require.NoError(t, s.SetCell(pos("D1"), "=B1+C1"))

	d1, _, _ := s.GetCell(pos("D1"))
	v := d1.GetValue()
	require.Equal(t, cell.ValueNumber, v.Kind)
	assert.Equal(t, 2.0, v.Num)
}

func TestCell_ClearDetachesChildrenKeepsParents(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "1"))
	require.NoError(t, s.SetCell(pos("B1"), "=A1"))
	require.NoError(t, s.SetCell(pos("C1"), "=B1"))

	b1, _, _ := s.GetCell(pos("B1"))
	b1.Clear()

	assert.True(t, b1.IsEmpty())
	a1, _, _ := s.GetCell(pos("A1"))
	assert.False(t, a1.IsReferenced(), "B1 cleared: A1 should have no parents left")
	assert.True(t, b1.IsReferenced(), "B1 cleared: C1 still references it")
}

func TestCell_EdgeSymmetry(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "1"))
	require.NoError(t, s.SetCell(pos("B1"), "=A1"))

	a1, _, _ := s.GetCell(pos("A1"))
	b1, _, _ := s.GetCell(pos("B1"))

	assert.Contains(t, b1.Children(), pos("A1"))
	assert.Contains(t, a1.Parents(), pos("B1"))
}

func TestCell_ErrorsAreNotCached(t *testing.T) {
	s := sheet.New()
	require.NoError(t, s.SetCell(pos("A1"), "=B1"))
	require.NoError(t, s.SetCell(pos("B1"), "notanumber"))

	a1, _, _ := s.GetCell(pos("A1"))
	v1 := a1.GetValue()
	require.Equal(t, cell.ValueError, v1.Kind)

	require.NoError(t, s.SetCell(pos("B1"), "7"))
	v2 := a1.GetValue()
	require.Equal(t, cell.ValueNumber, v2.Kind)
	assert.Equal(t, 7.0, v2.Num)
}
