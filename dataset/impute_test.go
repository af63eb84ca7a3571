package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadrivio/entree/value"
)

func imputeFixture() *Dataset {
	m := value.NewCategoryMap()
	a := m.FindOrInsert("A")
	b := m.FindOrInsert("B")
	return &Dataset{
		Names: []string{"num", "cat"},
		Types: []value.Type{value.Numeric, value.Categorical},
		Columns: [][]value.Value{
			{value.Number(1), value.NA(), value.Number(3), value.Number(4)},
			{value.Level(a), value.Level(b), value.NA(), value.Level(b)},
		},
		Categories: []*value.CategoryMap{value.NewCategoryMap(), m},
	}
}

func TestImputeToMeanAndMode(t *testing.T) {
	ds := imputeFixture()
	rows := NewSelection(ds.NumRows(), true)
	cols := NewSelection(ds.NumCols(), true)
	tables := SortedTables(ds, cols)

	imputed, err := Impute(ds, []ImputeOption{ImputeToMean, ImputeToMode}, rows, cols, tables)
	require.NoError(t, err)

	assert.Equal(t, value.Number(8.0/3.0), imputed[0])
	assert.Equal(t, value.Number(8.0/3.0), ds.Columns[0][1])
	assert.Equal(t, value.Level(1), imputed[1])
	assert.Equal(t, value.Level(1), ds.Columns[1][2])

	// The numeric table is rebuilt around the replacement value.
	assert.Equal(t, []int{0, 1, 2, 3}, tables[0])
}

func TestImputeToMedian(t *testing.T) {
	ds := imputeFixture()
	rows := NewSelection(ds.NumRows(), true)
	cols := NewSelection(ds.NumCols(), true)
	cols.Unselect(1)
	tables := SortedTables(ds, cols)

	imputed, err := Impute(ds, []ImputeOption{ImputeToMedian, ImputeNone}, rows, cols, tables)
	require.NoError(t, err)

	assert.Equal(t, value.Number(3), imputed[0])
	assert.Equal(t, value.Number(3), ds.Columns[0][1])
	assert.True(t, imputed[1].NA, "unselected columns stay untouched")
	assert.True(t, ds.Columns[1][2].NA)
}

func TestImputeToCategory(t *testing.T) {
	ds := imputeFixture()
	rows := NewSelection(ds.NumRows(), true)
	cols := NewSelection(ds.NumCols(), true)
	tables := SortedTables(ds, cols)

	imputed, err := Impute(ds, []ImputeOption{ImputeNone, ImputeToCategory}, rows, cols, tables)
	require.NoError(t, err)

	assert.True(t, ds.Categories[1].UseNACategory())
	assert.Equal(t, value.Level(value.NoIndex), imputed[1])
	assert.Equal(t, value.Level(value.NoIndex), ds.Columns[1][2])
	assert.False(t, ds.Columns[1][2].NA)
}

func TestImputeSkipsUnselectedRows(t *testing.T) {
	ds := imputeFixture()
	rows := NewSelection(ds.NumRows(), true)
	rows.Unselect(1)
	cols := NewSelection(ds.NumCols(), true)
	cols.Unselect(1)
	tables := SortedTables(ds, cols)

	imputed, err := Impute(ds, []ImputeOption{ImputeToMean, ImputeNone}, rows, cols, tables)
	require.NoError(t, err)

	assert.False(t, imputed[0].NA)
	assert.True(t, ds.Columns[0][1].NA, "NA in an unselected row survives")
}

func TestImputeErrors(t *testing.T) {
	ds := imputeFixture()
	rows := NewSelection(ds.NumRows(), true)
	cols := NewSelection(ds.NumCols(), true)
	tables := SortedTables(ds, cols)

	_, err := Impute(ds, []ImputeOption{ImputeDefault, ImputeNone}, rows, cols, tables)
	assert.Error(t, err, "defaults must be resolved by the caller")

	_, err = Impute(ds, []ImputeOption{ImputeToMode, ImputeNone}, rows, cols, tables)
	assert.Error(t, err, "mode is not defined for a numeric column")

	_, err = Impute(ds, []ImputeOption{ImputeNone, ImputeToMean}, rows, cols, tables)
	assert.Error(t, err, "mean is not defined for a categorical column")

	_, err = Impute(ds, []ImputeOption{ImputeNone}, rows, cols, tables)
	assert.Error(t, err)
}

func TestParseImputeOption(t *testing.T) {
	cases := []struct {
		in   string
		t    value.Type
		want ImputeOption
	}{
		{"none", value.Numeric, ImputeNone},
		{"no", value.Categorical, ImputeNone},
		{"default", value.Numeric, ImputeDefault},
		{"d", value.Categorical, ImputeDefault},
		{"category", value.Categorical, ImputeToCategory},
		{"mode", value.Categorical, ImputeToMode},
		{"mean", value.Numeric, ImputeToMean},
		{"median", value.Numeric, ImputeToMedian},
		{"MEDIAN", value.Numeric, ImputeToMedian},
	}
	for _, c := range cases {
		got, err := ParseImputeOption(c.in, c.t)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := ParseImputeOption("mean", value.Categorical)
	assert.Error(t, err)
	_, err = ParseImputeOption("mode", value.Numeric)
	assert.Error(t, err)
	_, err = ParseImputeOption("m", value.Numeric)
	assert.Error(t, err, "ambiguous prefix for a numeric column")
	_, err = ParseImputeOption("bogus", value.Categorical)
	assert.Error(t, err)
}

func TestDefaultImputeOption(t *testing.T) {
	assert.Equal(t, ImputeToMedian, DefaultImputeOption(value.Numeric))
	assert.Equal(t, ImputeToCategory, DefaultImputeOption(value.Categorical))
}
