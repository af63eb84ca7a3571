package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrivio/entree/value"
)

func testTable() *Table {
	return &Table{
		ColNames: []string{"C0", "C1", "C2"},
		Cells: [][]string{
			{"1", "A", "0.5"},
			{"2", "B", "NA"},
			{"NA", "NA", "1.5"},
			{"3", "1.5", ""},
		},
		Quoted: [][]bool{
			{false, true, false},
			{false, true, false},
			{false, true, false},
			{false, false, false},
		},
	}
}

func TestInferTypes(t *testing.T) {
	types := InferTypes(testTable(), "NA")
	assert.Equal(t, []value.Type{value.Numeric, value.Categorical, value.Numeric}, types)
}

func TestInferTypesQuotedNAIsNotMissing(t *testing.T) {
	table := &Table{
		Cells:  [][]string{{"1"}, {"NA"}},
		Quoted: [][]bool{{false}, {true}},
	}
	assert.Equal(t, []value.Type{value.Categorical}, InferTypes(table, "NA"))

	table.Quoted[1][0] = false
	assert.Equal(t, []value.Type{value.Numeric}, InferTypes(table, "NA"))
}

func TestFromTable(t *testing.T) {
	table := testTable()
	types := InferTypes(table, "NA")
	ds, err := FromTable(table, types, "NA")
	require.NoError(t, err)

	assert.Equal(t, 4, ds.NumRows())
	assert.Equal(t, 3, ds.NumCols())

	assert.Equal(t, value.Number(1), ds.Columns[0][0])
	assert.Equal(t, value.NA(), ds.Columns[0][2])

	assert.Equal(t, []string{"A", "B", "NA", "1.5"}, ds.Categories[1].Names())
	assert.Equal(t, value.Level(0), ds.Columns[1][0])
	assert.Equal(t, value.Level(1), ds.Columns[1][1])
	assert.Equal(t, value.Level(2), ds.Columns[1][2], "quoted NA is a level")
	assert.Equal(t, value.Level(3), ds.Columns[1][3])

	assert.Equal(t, value.NA(), ds.Columns[2][1])
	assert.Equal(t, value.NA(), ds.Columns[2][3], "unquoted empty cell is NA")
}

func TestFromTableWithCategories(t *testing.T) {
	m := value.NewCategoryMap()
	m.FindOrInsert("A")
	table := &Table{
		Cells:  [][]string{{"A"}, {"B"}},
		Quoted: [][]bool{{true}, {true}},
	}
	ds, err := FromTableWithCategories(table, []value.Type{value.Categorical}, "NA", []*value.CategoryMap{m})
	require.NoError(t, err)
	assert.Equal(t, value.Level(0), ds.Columns[0][0])
	assert.Equal(t, value.NA(), ds.Columns[0][1], "unknown level reads as NA")
	assert.Equal(t, 1, m.CountNamed())
}

func TestFromTableShapeErrors(t *testing.T) {
	table := &Table{
		Cells:  [][]string{{"1", "2"}, {"3"}},
		Quoted: [][]bool{{false, false}, {false}},
	}
	_, err := FromTable(table, []value.Type{value.Numeric, value.Numeric}, "NA")
	assert.Error(t, err)

	table = &Table{
		Cells:  [][]string{{"1", "2"}},
		Quoted: [][]bool{{false, false}},
	}
	_, err = FromTable(table, []value.Type{value.Numeric}, "NA")
	assert.Error(t, err)
}

func TestToTableFormatsValues(t *testing.T) {
	table := testTable()
	types := InferTypes(table, "NA")
	ds, err := FromTable(table, types, "NA")
	require.NoError(t, err)

	out := ToTable(ds, "NA")
	assert.Equal(t, "1.00000000", out.Cells[0][0])
	assert.Equal(t, "0.50000000", out.Cells[0][2])
	assert.Equal(t, "A", out.Cells[0][1])
	assert.True(t, out.Quoted[0][1], "levels are written quoted")
	assert.Equal(t, "NA", out.Cells[2][0])
	assert.False(t, out.Quoted[2][0])
	assert.Equal(t, "NA", out.Cells[1][2])
}

func TestToTableRoundedFormat(t *testing.T) {
	ds := &Dataset{
		Names:      []string{"x"},
		Types:      []value.Type{value.Numeric},
		Columns:    [][]value.Value{{value.Number(3.14159265358979)}},
		Categories: []*value.CategoryMap{value.NewCategoryMap()},
	}
	out := ToTable(ds, "NA")
	assert.Equal(t, "3.14159265", out.Cells[0][0])
}

func TestSortColumnNAFirstStable(t *testing.T) {
	column := []value.Value{
		value.Number(2.5),
		value.NA(),
		value.Number(1.0),
		value.Number(2.5),
		value.NA(),
	}
	assert.Equal(t, []int{1, 4, 2, 0, 3}, SortColumn(column, value.Numeric))

	levels := []value.Value{
		value.Level(1),
		value.Level(0),
		value.NA(),
		value.Level(1),
	}
	assert.Equal(t, []int{2, 1, 0, 3}, SortColumn(levels, value.Categorical))
}
