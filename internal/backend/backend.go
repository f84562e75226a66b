// Package backend implements the build.Backend contract over database/sql
// connections. One implementation serves every supported engine; the driver
// and dialect pairing is chosen at open time.
package backend

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	// Database drivers register themselves under the names used in Open.
	_ "github.com/databricks/databricks-sql-go"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/opencohort/cohortc/internal/debug"
	"github.com/opencohort/cohortc/internal/dialect"
)

// SQLBackend is a build.Backend over a sqlx connection.
type SQLBackend struct {
	db *sqlx.DB
	d  dialect.Dialect
}

// driverFor maps a dialect name to the registered database/sql driver.
func driverFor(kind string) (driver string, d dialect.Dialect, err error) {
	d, err = dialect.ForName(kind)
	if err != nil {
		return "", nil, err
	}
	switch d.Name() {
	case "duckdb":
		return "duckdb", d, nil
	case "postgres":
		return "postgres", d, nil
	case "spark":
		return "databricks", d, nil
	case "sqlite":
		return "sqlite3", d, nil
	}
	return "", nil, fmt.Errorf("no driver for dialect %s", d.Name())
}

// Open connects to a backend of the given kind ("duckdb", "postgres",
// "spark"/"databricks", "sqlite") with a driver-specific DSN.
func Open(kind, dsn string) (*SQLBackend, error) {
	driver, d, err := driverFor(kind)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", kind, err)
	}
	return &SQLBackend{db: db, d: d}, nil
}

// Wrap adapts an existing connection.
func Wrap(db *sqlx.DB, d dialect.Dialect) *SQLBackend {
	return &SQLBackend{db: db, d: d}
}

// Dialect returns the backend's dialect.
func (b *SQLBackend) Dialect() dialect.Dialect { return b.d }

// DB exposes the underlying connection for callers that read result rows.
func (b *SQLBackend) DB() *sqlx.DB { return b.db }

// Close releases the connection pool.
func (b *SQLBackend) Close() error { return b.db.Close() }

// HasTable probes the table with a zero-row select. Resolution failures
// report absence; the caller distinguishes missing tables from connectivity
// problems at open time.
func (b *SQLBackend) HasTable(ctx context.Context, schema, name string) (bool, error) {
	qualified := dialect.QualifyTable(b.d, schema, name)
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE 1 = 0", qualified))
	if err != nil {
		debug.Logf("table probe failed for %s: %v", qualified, err)
		return false, nil
	}
	defer rows.Close()
	return true, rows.Err()
}

// CreateTableAs materializes a rendered SELECT.
func (b *SQLBackend) CreateTableAs(ctx context.Context, schema, name, selectSQL string, temp bool) error {
	qualified := dialect.QualifyTable(b.d, schema, name)
	stmt := b.d.CreateTableAs(qualified, selectSQL, temp)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", qualified, err)
	}
	return nil
}

// DropTable removes a table.
func (b *SQLBackend) DropTable(ctx context.Context, schema, name string, force bool) error {
	qualified := dialect.QualifyTable(b.d, schema, name)
	stmt := b.d.DropTable(qualified, force)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", qualified, err)
	}
	return nil
}

// Exec runs a single statement.
func (b *SQLBackend) Exec(ctx context.Context, stmt string) error {
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("statement failed: %w", err)
	}
	return nil
}

// QueryCount counts the rows of a rendered SELECT.
func (b *SQLBackend) QueryCount(ctx context.Context, selectSQL string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM (\n%s\n) AS _count_src", selectSQL)
	if err := b.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// Query runs a rendered SELECT and returns the rows.
func (b *SQLBackend) Query(ctx context.Context, selectSQL string) (*sqlx.Rows, error) {
	rows, err := b.db.QueryxContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}
