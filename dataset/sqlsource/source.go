/*
Package sqlsource reads and writes datasets over a SQL database through
a dialect Adapter.

The database stores no column metadata of its own, so a Source is
constructed with the column names and types it exchanges and validates
every dataset against them.
*/
package sqlsource

import (
	"context"
	"fmt"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/value"
)

// Source exchanges datasets with the two-table schema of an Adapter.
type Source struct {
	adapter Adapter
	names   []string
	types   []value.Type
	columns []string
}

/*
New takes an adapter and the names and types of the columns to exchange
and returns a Source, or an error when a name cannot serve as a database
column.
*/
func New(adapter Adapter, names []string, types []value.Type) (*Source, error) {
	if len(names) != len(types) {
		return nil, fmt.Errorf("sql source: %d column names for %d types", len(names), len(types))
	}
	columns := make([]string, len(names))
	for i, name := range names {
		column, err := adapter.ColumnName(name)
		if err != nil {
			return nil, fmt.Errorf("sql source: %v", err)
		}
		columns[i] = column
	}
	return &Source{adapter: adapter, names: names, types: types, columns: columns}, nil
}

// Init ensures the levels and dataRows tables exist.
func (s *Source) Init(ctx context.Context) error {
	if err := s.adapter.CreateLevelsTable(ctx); err != nil {
		return fmt.Errorf("initializing sql source: %v", err)
	}
	categorical, numeric := s.splitColumns()
	if err := s.adapter.CreateRowsTable(ctx, categorical, numeric); err != nil {
		return fmt.Errorf("initializing sql source: %v", err)
	}
	return nil
}

/*
Write appends the rows of ds to the database, first inserting any level
names the levels table does not hold yet, and returns the number of rows
written.
*/
func (s *Source) Write(ctx context.Context, ds *dataset.Dataset) (int, error) {
	if err := s.checkShape(ds); err != nil {
		return 0, err
	}
	levelIDs, err := s.ensureLevels(ctx, ds)
	if err != nil {
		return 0, err
	}

	rows := make([]map[string]interface{}, ds.NumRows())
	for row := range rows {
		cells := make(map[string]interface{})
		for col, column := range s.columns {
			v := ds.Columns[col][row]
			if v.NA {
				continue
			}
			if s.types[col] == value.Categorical {
				name := ds.Categories[col].Name(v.Index)
				id, ok := levelIDs[name]
				if !ok {
					return 0, fmt.Errorf("writing rows: level %q missing from the levels table", name)
				}
				cells[column] = id
			} else {
				cells[column] = v.Float
			}
		}
		rows[row] = cells
	}

	categorical, numeric := s.splitColumns()
	n, err := s.adapter.AddRows(ctx, rows, categorical, numeric)
	if err != nil {
		return n, fmt.Errorf("writing rows: %v", err)
	}
	return n, nil
}

/*
Read returns the whole dataRows table as a dataset. A nil categories
slice builds fresh category maps as levels appear; passing the category
maps of a trained model instead keeps level indexes aligned with the
model, with levels the model does not know read as NA. The maps are
shared with the returned dataset, not copied.
*/
func (s *Source) Read(ctx context.Context, categories []*value.CategoryMap) (*dataset.Dataset, error) {
	if categories != nil && len(categories) != len(s.names) {
		return nil, fmt.Errorf("reading rows: %d category maps for %d columns", len(categories), len(s.names))
	}
	levels, err := s.adapter.ListLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rows: listing levels: %v", err)
	}

	ds := &dataset.Dataset{
		Names:      append([]string(nil), s.names...),
		Types:      append([]value.Type(nil), s.types...),
		Columns:    make([][]value.Value, len(s.names)),
		Categories: categories,
	}
	if ds.Categories == nil {
		ds.Categories = make([]*value.CategoryMap, len(s.names))
		for col := range ds.Categories {
			ds.Categories[col] = value.NewCategoryMap()
		}
	}

	categorical, numeric := s.splitColumns()
	err = s.adapter.IterateOnRows(ctx, categorical, numeric, func(_ int, cells map[string]interface{}) (bool, error) {
		for col, column := range s.columns {
			v := value.NA()
			if cell, ok := cells[column]; ok {
				if s.types[col] == value.Categorical {
					id, isInt := cell.(int)
					if !isInt {
						return false, fmt.Errorf("column %q holds a %T instead of a level id", s.names[col], cell)
					}
					name, found := levels[id]
					if !found {
						return false, fmt.Errorf("column %q references unknown level id %d", s.names[col], id)
					}
					if categories == nil {
						v = value.Level(ds.Categories[col].FindOrInsert(name))
					} else if index, found := ds.Categories[col].IndexFor(name); found {
						v = value.Level(index)
					}
				} else {
					f, isFloat := cell.(float64)
					if !isFloat {
						return false, fmt.Errorf("column %q holds a %T instead of a number", s.names[col], cell)
					}
					v = value.Number(f)
				}
			}
			ds.Columns[col] = append(ds.Columns[col], v)
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading rows: %v", err)
	}
	return ds, nil
}

// Count returns the number of rows stored.
func (s *Source) Count(ctx context.Context) (int, error) {
	n, err := s.adapter.CountRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting rows: %v", err)
	}
	return n, nil
}

func (s *Source) splitColumns() (categorical, numeric []string) {
	for i, column := range s.columns {
		if s.types[i] == value.Categorical {
			categorical = append(categorical, column)
		} else {
			numeric = append(numeric, column)
		}
	}
	return categorical, numeric
}

func (s *Source) checkShape(ds *dataset.Dataset) error {
	if ds.NumCols() != len(s.names) {
		return fmt.Errorf("writing rows: dataset has %d columns, source stores %d", ds.NumCols(), len(s.names))
	}
	for col, t := range s.types {
		if ds.Types[col] != t {
			return fmt.Errorf("writing rows: column %q is %s, source stores %s", ds.Names[col], ds.Types[col], t)
		}
	}
	return nil
}

/*
ensureLevels inserts the level names of the dataset's categorical
columns that the levels table does not hold yet and returns the complete
name to id lookup.
*/
func (s *Source) ensureLevels(ctx context.Context, ds *dataset.Dataset) (map[string]int, error) {
	known, err := s.levelIDs(ctx)
	if err != nil {
		return nil, err
	}
	var missing []string
	queued := make(map[string]bool)
	for col, t := range s.types {
		if t != value.Categorical {
			continue
		}
		for _, name := range ds.Categories[col].Names() {
			if _, ok := known[name]; !ok && !queued[name] {
				missing = append(missing, name)
				queued[name] = true
			}
		}
	}
	if len(missing) == 0 {
		return known, nil
	}
	if _, err := s.adapter.AddLevels(ctx, missing); err != nil {
		return nil, fmt.Errorf("adding levels: %v", err)
	}
	return s.levelIDs(ctx)
}

func (s *Source) levelIDs(ctx context.Context) (map[string]int, error) {
	levels, err := s.adapter.ListLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing levels: %v", err)
	}
	ids := make(map[string]int, len(levels))
	for id, name := range levels {
		ids[name] = id
	}
	return ids, nil
}
