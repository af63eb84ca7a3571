package dataset

import (
	"sort"

	"github.com/quadrivio/entree/value"
)

/*
SortColumn takes a column of values and its type and returns the row
indexes of the column sorted by ascending value. Missing values sort
before every present value, and rows with equal values keep their index
order, so the result is fully deterministic.
*/
func SortColumn(column []value.Value, t value.Type) []int {
	indexes := make([]int, len(column))
	for i := range indexes {
		indexes[i] = i
	}
	sort.Slice(indexes, func(a, b int) bool {
		i, j := indexes[a], indexes[b]
		vi, vj := column[i], column[j]
		switch {
		case vi.NA && vj.NA:
			return i < j
		case vi.NA:
			return true
		case vj.NA:
			return false
		}
		if t == value.Numeric {
			if vi.Float != vj.Float {
				return vi.Float < vj.Float
			}
		} else {
			if vi.Index != vj.Index {
				return vi.Index < vj.Index
			}
		}
		return i < j
	})
	return indexes
}

/*
SortedTables takes a dataset and a column selection and returns one
sorted row-index table per dataset column. Unselected columns get an
empty table.
*/
func SortedTables(ds *Dataset, selectColumns *Selection) [][]int {
	tables := make([][]int, len(ds.Columns))
	for col := range ds.Columns {
		if selectColumns.Selected(col) {
			tables[col] = SortColumn(ds.Columns[col], ds.Types[col])
		} else {
			tables[col] = []int{}
		}
	}
	return tables
}
