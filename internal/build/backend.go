package build

import (
	"context"

	"github.com/opencohort/cohortc/internal/dialect"
)

// Backend is the capability contract the pipeline needs from a SQL engine.
// Implementations live in the backend package; the plan compiler itself
// never touches a connection.
type Backend interface {
	// Dialect returns the SQL dialect the backend speaks.
	Dialect() dialect.Dialect

	// HasTable reports whether a table resolves in the given schema
	// (empty schema means the connection default).
	HasTable(ctx context.Context, schema, name string) (bool, error)

	// CreateTableAs materializes a rendered SELECT under schema.name.
	// When temp is true and the dialect supports it, the table is
	// session-scoped.
	CreateTableAs(ctx context.Context, schema, name, selectSQL string, temp bool) error

	// DropTable removes a table; force suppresses missing-table errors.
	DropTable(ctx context.Context, schema, name string, force bool) error

	// Exec runs a single statement (ANALYZE, DDL, pragmas).
	Exec(ctx context.Context, stmt string) error

	// QueryCount runs SELECT COUNT(*) over a rendered SELECT.
	QueryCount(ctx context.Context, selectSQL string) (int64, error)
}
