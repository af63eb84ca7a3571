package sqlsource

import "context"

/*
Adapter runs the dialect-specific SQL a Source needs. Implementations
exist for PostgreSQL (pgadapter) and SQLite3 (sqlite3adapter).

The backing schema has two tables: levels, assigning an integer id to
every categorical level name, and dataRows, holding one database column
per dataset column, with categorical cells stored as references into
levels, numeric cells as REAL and NULL marking an NA either way.
*/
type Adapter interface {
	// ColumnName validates a dataset column name and returns the database
	// column it is stored under.
	ColumnName(name string) (string, error)

	CreateLevelsTable(ctx context.Context) error
	CreateRowsTable(ctx context.Context, categoricalColumns, numericColumns []string) error

	AddLevels(ctx context.Context, names []string) (int, error)
	ListLevels(ctx context.Context) (map[int]string, error)

	AddRows(ctx context.Context, rows []map[string]interface{}, categoricalColumns, numericColumns []string) (int, error)
	IterateOnRows(ctx context.Context, categoricalColumns, numericColumns []string, lambda func(int, map[string]interface{}) (bool, error)) error
	CountRows(ctx context.Context) (int, error)
}
