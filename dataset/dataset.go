package dataset

import (
	"fmt"
	"strconv"

	"github.com/quadrivio/entree/value"
)

/*
Dataset represents a rectangular table of values in column-major order.
Every column has a type, a category map (empty for numeric columns) and
a name.
*/
type Dataset struct {
	Names      []string
	Types      []value.Type
	Columns    [][]value.Value
	Categories []*value.CategoryMap
}

/*
NumRows returns the number of rows in the dataset.
*/
func (ds *Dataset) NumRows() int {
	if len(ds.Columns) == 0 {
		return 0
	}
	return len(ds.Columns[0])
}

/*
NumCols returns the number of columns in the dataset.
*/
func (ds *Dataset) NumCols() int {
	return len(ds.Columns)
}

/*
Table represents raw tabular data as exchanged with storage backends:
row-major cell strings with a parallel grid flagging which cells were
quoted, plus the column names.
*/
type Table struct {
	ColNames []string
	Cells    [][]string
	Quoted   [][]bool
}

/*
Check returns an error unless every row of the table has the same number
of cells, matching the number of column names when those are present.
*/
func (t *Table) Check() error {
	numCols := len(t.ColNames)
	for row, cells := range t.Cells {
		if row == 0 && numCols == 0 {
			numCols = len(cells)
		}
		if len(cells) != numCols {
			return fmt.Errorf("row %d has %d cells, want %d", row, len(cells), numCols)
		}
	}
	return nil
}

/*
InferTypes takes a table and the NA token and returns the default type
of each column: numeric when every cell that is not empty and not an
unquoted NA token parses completely as a number, categorical otherwise.
An empty naString means no token is interpreted as NA.
*/
func InferTypes(t *Table, naString string) []value.Type {
	numCols := 0
	if len(t.Cells) > 0 {
		numCols = len(t.Cells[0])
	}
	types := make([]value.Type, numCols)
	for col := 0; col < numCols; col++ {
		types[col] = value.Numeric
		for row := range t.Cells {
			cell := t.Cells[row][col]
			if len(cell) == 0 {
				continue
			}
			if naString != "" && cell == naString && !t.Quoted[row][col] {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				types[col] = value.Categorical
				break
			}
		}
	}
	return types
}

/*
FromTable takes a table, the type of each column and the NA token and
returns the dataset holding the table's values. Unquoted cells equal to
a non-empty naString and unquoted empty cells become NA; every other
cell of a categorical column names a level, inserted into the column's
category map in row order when not present yet. Cells of a numeric
column that do not start with a number become NA.
*/
func FromTable(t *Table, types []value.Type, naString string) (*Dataset, error) {
	return fromTable(t, types, naString, nil)
}

/*
FromTableWithCategories is FromTable for datasets read against an
already trained model: the given category maps are not extended, and
cells naming an unknown level become NA.
*/
func FromTableWithCategories(t *Table, types []value.Type, naString string, categories []*value.CategoryMap) (*Dataset, error) {
	if categories == nil {
		return nil, fmt.Errorf("converting table: no category maps given")
	}
	return fromTable(t, types, naString, categories)
}

func fromTable(t *Table, types []value.Type, naString string, categories []*value.CategoryMap) (*Dataset, error) {
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("converting table: %v", err)
	}
	numRows := len(t.Cells)
	numCols := 0
	if numRows > 0 {
		numCols = len(t.Cells[0])
	} else {
		numCols = len(t.ColNames)
	}
	if numCols != len(types) {
		return nil, fmt.Errorf("converting table: %d columns but %d column types", numCols, len(types))
	}
	constCategories := categories != nil
	if constCategories && numCols != len(categories) {
		return nil, fmt.Errorf("converting table: %d columns but %d category maps", numCols, len(categories))
	}

	ds := &Dataset{
		Names:      t.ColNames,
		Types:      types,
		Columns:    make([][]value.Value, numCols),
		Categories: make([]*value.CategoryMap, numCols),
	}
	for col := 0; col < numCols; col++ {
		if constCategories {
			ds.Categories[col] = categories[col]
		} else {
			ds.Categories[col] = value.NewCategoryMap()
		}
		column := make([]value.Value, numRows)
		for row := 0; row < numRows; row++ {
			cell := t.Cells[row][col]
			isQuoted := t.Quoted[row][col]
			switch {
			case naString != "" && cell == naString && !isQuoted:
				column[row] = value.NA()
			case len(cell) == 0 && !isQuoted:
				column[row] = value.NA()
			default:
				switch types[col] {
				case value.Numeric:
					var f float64
					if _, err := fmt.Sscanf(cell, "%g", &f); err != nil {
						column[row] = value.NA()
					} else {
						column[row] = value.Number(f)
					}
				case value.Categorical:
					index, ok := ds.Categories[col].IndexFor(cell)
					if !ok {
						if constCategories {
							column[row] = value.NA()
							continue
						}
						index = ds.Categories[col].FindOrInsert(cell)
					}
					column[row] = value.Level(index)
				}
			}
		}
		ds.Columns[col] = column
	}
	return ds, nil
}

/*
ToTable takes a dataset and the NA token and returns the table holding
its values as cells. Numeric values are written with 8 decimal digits,
category levels are written by name and flagged as quoted, and NA values
become the naString cell, or an empty cell when naString is empty.
*/
func ToTable(ds *Dataset, naString string) *Table {
	numRows := ds.NumRows()
	numCols := ds.NumCols()
	t := &Table{
		ColNames: ds.Names,
		Cells:    make([][]string, numRows),
		Quoted:   make([][]bool, numRows),
	}
	for row := 0; row < numRows; row++ {
		t.Cells[row] = make([]string, numCols)
		t.Quoted[row] = make([]bool, numCols)
		for col := 0; col < numCols; col++ {
			v := ds.Columns[col][row]
			if v.NA {
				t.Cells[row][col] = naString
				continue
			}
			switch ds.Types[col] {
			case value.Categorical:
				if name, ok := ds.Categories[col].NameFor(v.Index); ok {
					t.Cells[row][col] = name
					t.Quoted[row][col] = true
				} else {
					t.Cells[row][col] = naString
				}
			case value.Numeric:
				t.Cells[row][col] = strconv.FormatFloat(v.Float, 'f', 8, 64)
			}
		}
	}
	return t
}
