package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/myrjola/skinwise/internal/errors"
)

// schemaObject is a row of sqlite_schema.
type schemaObject struct {
	Type  string
	Name  string
	Table string
	SQL   string
	// Columns is only populated for tables of the target schema.
	Columns []string
}

const schemaObjectsQuery = `SELECT type, name, tbl_name, COALESCE(sql, '') AS sql
FROM sqlite_schema
WHERE name NOT LIKE 'sqlite_%'
ORDER BY type, name`

// migrateTo ensures that the db schema matches the target schema definition.
//
// We employ a very simple declarative schema migration that:
//
// 1. Deletes deleted tables,
// 2. Creates new tables,
// 3. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 4. Drops and recreates changed indexes, triggers and views.
//
// The target schema is materialised in a private in-memory database and compared to the current one in Go.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, targetSchema string) (err error) {
	var target map[string]schemaObject
	if target, err = db.readTargetSchema(ctx, targetSchema); err != nil {
		return errors.Wrap(err, "read target schema")
	}

	// Step 1: Disable foreign key validation temporarily. It is a no-op inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); fkErr != nil {
			fkErr = errors.Wrap(fkErr, "re-enable foreign key validation")
			db.logger.LogAttrs(ctx, slog.LevelError, "foreign keys left disabled", errors.SlogError(fkErr))
			err = errors.Join(err, fkErr)
		}
	}()

	// Step 2: Start transaction.
	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				errors.SlogError(errors.Wrap(rbErr, "rollback")))
		}
	}()

	// Step 3-7 migrate tables.
	if err = db.migrateTables(ctx, tx, target); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes and triggers associated with table if needed.
	// Step 9: Recreate views associated with table.
	if err = db.migrateDependents(ctx, tx, target); err != nil {
		return errors.Wrap(err, "migrate indexes, triggers and views")
	}

	// Step 10: Check foreign key constraints.
	if err = checkForeignKeys(ctx, tx); err != nil {
		return err
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}

	return nil
}

// readTargetSchema creates the target schema in a throwaway in-memory database and returns its objects keyed by name.
func (db *Database) readTargetSchema(ctx context.Context, targetSchema string) (map[string]schemaObject, error) {
	targetDB, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "open target database")
	}
	// Every connection to :memory: is a distinct database.
	targetDB.SetMaxOpenConns(1)
	defer func() {
		if closeErr := targetDB.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close target schema database",
				errors.SlogError(errors.Wrap(closeErr, "close")))
		}
	}()

	if strings.TrimSpace(targetSchema) != "" {
		if _, err = targetDB.ExecContext(ctx, targetSchema); err != nil {
			return nil, errors.Wrap(err, "create target schema")
		}
	}

	objects, err := querySchemaObjects(ctx, targetDB)
	if err != nil {
		return nil, errors.Wrap(err, "query target schema")
	}
	for name, object := range objects {
		if object.Type != "table" {
			continue
		}
		if object.Columns, err = queryColumns(ctx, targetDB, name); err != nil {
			return nil, errors.Wrap(err, "query target columns", slog.String("table", name))
		}
		objects[name] = object
	}
	return objects, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func querySchemaObjects(ctx context.Context, q queryer) (map[string]schemaObject, error) {
	rows, err := q.QueryContext(ctx, schemaObjectsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query sqlite_schema")
	}
	defer rows.Close()

	objects := make(map[string]schemaObject)
	for rows.Next() {
		var object schemaObject
		if err = rows.Scan(&object.Type, &object.Name, &object.Table, &object.SQL); err != nil {
			return nil, errors.Wrap(err, "scan schema object")
		}
		objects[object.Name] = object
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return objects, nil
}

func queryColumns(ctx context.Context, q queryer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, errors.Wrap(err, "query table info")
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, errors.Wrap(err, "scan column")
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return columns, nil
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx, target map[string]schemaObject) error {
	current, err := querySchemaObjects(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "query current schema")
	}

	// Drop deleted tables.
	for _, name := range sortedNames(current, "table") {
		if t, ok := target[name]; ok && t.Type == "table" {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s;", quoteIdentifier(name))); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", name))
		}
	}

	for _, name := range sortedNames(target, "table") {
		table := target[name]
		existing, ok := current[name]

		// Create new tables.
		if !ok || existing.Type != "table" {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", table.SQL))
			if _, err = tx.ExecContext(ctx, table.SQL); err != nil {
				return errors.Wrap(err, "create table", slog.String("table", name))
			}
			continue
		}

		if existing.SQL == table.SQL {
			continue
		}

		if err = db.rebuildTable(ctx, tx, existing, table); err != nil {
			return errors.Wrap(err, "rebuild table", slog.String("table", name))
		}
	}
	return nil
}

// rebuildTable continues the 12-step schema migration for a table whose definition changed.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, current, target schemaObject) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", target.Name),
		slog.String("current_sql", current.SQL),
		slog.String("new_sql", target.SQL))

	// Step 4: Create tables according to new schema on temporary names.
	tempName := target.Name + "_migration_temp"
	tempNameSQL := strings.Replace(target.SQL, target.Name, tempName, 1)
	if _, err := tx.ExecContext(ctx, tempNameSQL); err != nil {
		return errors.Wrap(err, "create new table to temporary name", slog.String("query", tempNameSQL))
	}

	// Step 5: Copy common columns between tables.
	currentColumns, err := queryColumns(ctx, tx, current.Name)
	if err != nil {
		return errors.Wrap(err, "query current columns")
	}
	var common []string
	for _, column := range target.Columns {
		if slices.Contains(currentColumns, column) {
			common = append(common, quoteIdentifier(column))
		}
	}
	if len(common) > 0 {
		columns := strings.Join(common, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s;",
			quoteIdentifier(tempName), columns, columns, quoteIdentifier(current.Name))
		db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data")
		}
	}

	// Step 6: Drop the old table.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s;", quoteIdentifier(current.Name))); err != nil {
		return errors.Wrap(err, "drop old table")
	}

	// Step 7: Rename new table to old table's name.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s;",
		quoteIdentifier(tempName), quoteIdentifier(target.Name))); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}

// migrateDependents drops indexes, triggers and views that are gone or changed and creates the missing ones.
//
// Rebuilt tables lose their indexes and triggers, so the current schema is read again after the table migration.
func (db *Database) migrateDependents(ctx context.Context, tx *sql.Tx, target map[string]schemaObject) error {
	current, err := querySchemaObjects(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "query current schema")
	}

	for _, kind := range []string{"trigger", "view", "index"} {
		for _, name := range sortedNames(current, kind) {
			if t, ok := target[name]; ok && t.Type == kind && t.SQL == current[name].SQL {
				continue
			}
			db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping "+kind, slog.String("name", name))
			stmt := fmt.Sprintf("DROP %s IF EXISTS %s;", strings.ToUpper(kind), quoteIdentifier(name))
			if _, err = tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "drop "+kind, slog.String("name", name))
			}
			delete(current, name)
		}
	}

	for _, kind := range []string{"index", "view", "trigger"} {
		for _, name := range sortedNames(target, kind) {
			if _, ok := current[name]; ok {
				continue
			}
			object := target[name]
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating "+kind, slog.String("query", object.SQL))
			if _, err = tx.ExecContext(ctx, object.SQL); err != nil {
				return errors.Wrap(err, "create "+kind, slog.String("name", name))
			}
		}
	}
	return nil
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	defer rows.Close()
	if rows.Next() {
		return errors.New("foreign key violation after migration")
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "foreign key check rows")
	}
	return nil
}

func sortedNames(objects map[string]schemaObject, kind string) []string {
	var names []string
	for name, object := range objects {
		if object.Type == kind {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
