/*
Package pgadapter provides an implementation of the Adapter interface in
the sqlsource package that works over a PostgreSQL database.
*/
package pgadapter

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/quadrivio/entree/dataset/sqlsource"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
)

const (
	levelsTableCreateStmt = `CREATE TABLE IF NOT EXISTS levels (
		id SERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL)`

	// MaxLevelInsertionsPerStatement is the maximum number of level names
	// added with a single insert command by the AddLevels method of the
	// adapter. Adding more issues more insert commands.
	MaxLevelInsertionsPerStatement = 10

	// MaxRowInsertionsPerStatement is the maximum number of rows added
	// with a single insert command by the AddRows method of the adapter.
	// Adding more issues more insert commands.
	MaxRowInsertionsPerStatement = 10
)

type adapter struct {
	db *sql.DB
}

/*
New takes a PostgreSQL database connection URL and returns an Adapter
that works on the database, or an error if it fails to connect to it.
*/
func New(url string) (sqlsource.Adapter, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	return &adapter{db}, nil
}

func (a *adapter) ColumnName(name string) (string, error) {
	if name == "id" {
		return "", fmt.Errorf("%q is reserved and cannot be used as column name", name)
	}
	if strings.ContainsAny(name, `"`) {
		return "", fmt.Errorf(`column name %q contains invalid character '"'`, name)
	}
	return name, nil
}

func (a *adapter) CreateLevelsTable(ctx context.Context) error {
	createStmt, err := a.db.PrepareContext(ctx, levelsTableCreateStmt)
	if err != nil {
		return fmt.Errorf("preparing levels creation statement: %v", err)
	}
	defer createStmt.Close()
	_, err = createStmt.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("running levels creation statement: %v", err)
	}
	return nil
}

func (a *adapter) CreateRowsTable(ctx context.Context, categoricalColumns, numericColumns []string) error {
	var createStmtBuf bytes.Buffer
	createStmtBuf.WriteString("CREATE TABLE IF NOT EXISTS dataRows(")
	for _, c := range categoricalColumns {
		createStmtBuf.WriteString(fmt.Sprintf(`"%s" INTEGER NULL REFERENCES levels(id), `, c))
	}
	for _, c := range numericColumns {
		createStmtBuf.WriteString(fmt.Sprintf(`"%s" REAL NULL, `, c))
	}
	createStmtBuf.WriteString(`"id" SERIAL PRIMARY KEY)`)
	createStmt, err := a.db.PrepareContext(ctx, createStmtBuf.String())
	if err != nil {
		return fmt.Errorf("preparing dataRows creation statement: %v", err)
	}
	defer createStmt.Close()
	_, err = createStmt.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("ensuring dataRows table exists: %v", err)
	}
	return nil
}

func (a *adapter) AddLevels(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	added := 0
	fullChunks := len(names) / MaxLevelInsertionsPerStatement
	if fullChunks > 0 {
		insertStmt, err := a.db.PrepareContext(ctx, levelInsertStmt(MaxLevelInsertionsPerStatement))
		if err != nil {
			return 0, fmt.Errorf("preparing insert command for %d levels: %v", MaxLevelInsertionsPerStatement, err)
		}
		for c := 0; c < fullChunks; c++ {
			args := make([]interface{}, 0, MaxLevelInsertionsPerStatement)
			for _, name := range names[added : added+MaxLevelInsertionsPerStatement] {
				args = append(args, name)
			}
			if _, err = insertStmt.ExecContext(ctx, args...); err != nil {
				insertStmt.Close()
				return added, fmt.Errorf("inserting the %dth %d levels: %v", c+1, MaxLevelInsertionsPerStatement, err)
			}
			added += MaxLevelInsertionsPerStatement
		}
		if err = insertStmt.Close(); err != nil {
			return added, fmt.Errorf("closing insert command for %d levels: %v", MaxLevelInsertionsPerStatement, err)
		}
	}
	rest := names[added:]
	if len(rest) > 0 {
		insertStmt, err := a.db.PrepareContext(ctx, levelInsertStmt(len(rest)))
		if err != nil {
			return added, fmt.Errorf("preparing insert command for %d levels: %v", len(rest), err)
		}
		args := make([]interface{}, 0, len(rest))
		for _, name := range rest {
			args = append(args, name)
		}
		if _, err = insertStmt.ExecContext(ctx, args...); err != nil {
			insertStmt.Close()
			return added, fmt.Errorf("inserting the last %d levels: %v", len(rest), err)
		}
		if err = insertStmt.Close(); err != nil {
			return added, fmt.Errorf("closing insert command for %d levels: %v", len(rest), err)
		}
		added += len(rest)
	}
	return added, nil
}

func (a *adapter) ListLevels(ctx context.Context) (map[int]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, name FROM levels`)
	if err != nil {
		return nil, err
	}
	result := make(map[int]string)
	for rows.Next() {
		var id int
		var name string
		if err = rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = name
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, rows.Close()
}

func (a *adapter) AddRows(ctx context.Context, rawRows []map[string]interface{}, categoricalColumns, numericColumns []string) (int, error) {
	if len(rawRows) == 0 {
		return 0, nil
	}
	columns := append(append([]string{}, categoricalColumns...), numericColumns...)
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns to store")
	}
	added := 0
	fullChunks := len(rawRows) / MaxRowInsertionsPerStatement
	if fullChunks > 0 {
		insertStmt, err := a.db.PrepareContext(ctx, rowInsertStmt(columns, MaxRowInsertionsPerStatement))
		if err != nil {
			return 0, fmt.Errorf("preparing insert command for %d rows: %v", MaxRowInsertionsPerStatement, err)
		}
		for c := 0; c < fullChunks; c++ {
			args := rowInsertArgs(rawRows[added:added+MaxRowInsertionsPerStatement], columns)
			if _, err = insertStmt.ExecContext(ctx, args...); err != nil {
				insertStmt.Close()
				return added, fmt.Errorf("inserting the %dth %d rows: %v", c+1, MaxRowInsertionsPerStatement, err)
			}
			added += MaxRowInsertionsPerStatement
		}
		if err = insertStmt.Close(); err != nil {
			return added, fmt.Errorf("closing insert command for %d rows: %v", MaxRowInsertionsPerStatement, err)
		}
	}
	rest := rawRows[added:]
	if len(rest) > 0 {
		insertStmt, err := a.db.PrepareContext(ctx, rowInsertStmt(columns, len(rest)))
		if err != nil {
			return added, fmt.Errorf("preparing insert command for %d rows: %v", len(rest), err)
		}
		if _, err = insertStmt.ExecContext(ctx, rowInsertArgs(rest, columns)...); err != nil {
			insertStmt.Close()
			return added, fmt.Errorf("inserting the last %d rows: %v", len(rest), err)
		}
		if err = insertStmt.Close(); err != nil {
			return added, fmt.Errorf("closing insert command for %d rows: %v", len(rest), err)
		}
		added += len(rest)
	}
	return added, nil
}

func (a *adapter) IterateOnRows(ctx context.Context, categoricalColumns, numericColumns []string, lambda func(int, map[string]interface{}) (bool, error)) error {
	var queryBuffer bytes.Buffer
	queryBuffer.WriteString(`SELECT "`)
	queryBuffer.WriteString(strings.Join(categoricalColumns, `", "`))
	if len(categoricalColumns) > 0 && len(numericColumns) > 0 {
		queryBuffer.WriteString(`", "`)
	}
	queryBuffer.WriteString(strings.Join(numericColumns, `", "`))
	queryBuffer.WriteString(`" FROM dataRows ORDER BY "id"`)
	rows, err := a.db.QueryContext(ctx, queryBuffer.String())
	if err != nil {
		return err
	}
	for j := 0; rows.Next(); j++ {
		rawRow := make(map[string]interface{})
		levelValues := make([]sql.NullInt64, len(categoricalColumns))
		numberValues := make([]sql.NullFloat64, len(numericColumns))
		values := make([]interface{}, 0, len(categoricalColumns)+len(numericColumns))
		for i := range levelValues {
			values = append(values, &levelValues[i])
		}
		for i := range numberValues {
			values = append(values, &numberValues[i])
		}
		if err = rows.Scan(values...); err != nil {
			return err
		}
		for i, c := range categoricalColumns {
			if levelValues[i].Valid {
				rawRow[c] = int(levelValues[i].Int64)
			}
		}
		for i, c := range numericColumns {
			if numberValues[i].Valid {
				rawRow[c] = numberValues[i].Float64
			}
		}
		ok, err := lambda(j, rawRow)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	if err = rows.Err(); err != nil {
		return err
	}
	return rows.Close()
}

func (a *adapter) CountRows(ctx context.Context) (int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT COUNT(*) FROM dataRows`)
	if err != nil {
		return 0, err
	}
	if !rows.Next() {
		return 0, rows.Err()
	}
	var count int
	if err = rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, rows.Close()
}

func levelInsertStmt(count int) string {
	var buf bytes.Buffer
	buf.WriteString("INSERT INTO levels (name) VALUES ($1)")
	for i := 1; i < count; i++ {
		fmt.Fprintf(&buf, ", ($%d)", i+1)
	}
	return buf.String()
}

func rowInsertStmt(columns []string, rowCount int) string {
	var buf bytes.Buffer
	buf.WriteString(`INSERT INTO dataRows ("`)
	buf.WriteString(strings.Join(columns, `", "`))
	buf.WriteString(`") VALUES `)
	n := 1
	for row := 0; row < rowCount; row++ {
		if row > 0 {
			buf.WriteString(", ")
		}
		buf.WriteByte('(')
		for i := 0; i < len(columns); i++ {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "$%d", n)
			n++
		}
		buf.WriteByte(')')
	}
	return buf.String()
}

func rowInsertArgs(rawRows []map[string]interface{}, columns []string) []interface{} {
	args := make([]interface{}, 0, len(rawRows)*len(columns))
	for _, rawRow := range rawRows {
		for _, column := range columns {
			args = append(args, rawRow[column])
		}
	}
	return args
}
