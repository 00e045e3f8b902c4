package pgrecord

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the slice of a connection needed to run type DDL. *pgx.Conn
// satisfies it; so does a transaction wrapped to expose Query and TypeMap.
type Execer interface {
	Conn
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateType is the reversible schema operation that creates a composite
// type in the database. It only defines the SQL text and the
// forward/backward pairing; a migration runner decides when to execute it.
type CreateType struct {
	Spec *TypeSpec
}

// SQL returns the forward statement:
//
//	CREATE TYPE "name" AS ("field" type, ...)
//
// Type and field names are quoted as identifiers, a different escaping rule
// than the literal quoting used by the codec, so reserved words like "end"
// are valid field names.
func (op CreateType) SQL() string {
	cols := make([]string, len(op.Spec.fields))
	for i, f := range op.Spec.fields {
		cols[i] = quoteIdent(f.Name) + " " + f.dbType()
	}
	return fmt.Sprintf("CREATE TYPE %s AS (%s)", quoteIdent(op.Spec.name), strings.Join(cols, ", "))
}

// Describe returns a human-readable summary for migration logs.
func (op CreateType) Describe() string {
	return "Creates type " + op.Spec.name
}

// Apply executes the forward statement, then drives the registration
// protocol's schema-applied transition and fires the type-created
// notification, so the type is usable on this session immediately.
func (op CreateType) Apply(ctx context.Context, db Execer, reg *Registry) error {
	if _, err := db.Exec(ctx, op.SQL()); err != nil {
		return mapPgError(err, "create type "+op.Spec.name)
	}
	if reg != nil {
		if err := reg.SchemaApplied(ctx, db); err != nil {
			return err
		}
		reg.notifyTypeCreated(op.Spec.name, db)
	}
	return nil
}

// Revert drops the type again. CreateType and DropType are symmetric by
// construction, which is what keeps the operation reversible.
func (op CreateType) Revert(ctx context.Context, db Execer) error {
	return DropType{Name: op.Spec.name}.Apply(ctx, db)
}

// DropType removes a composite type from the database.
type DropType struct {
	Name string
}

// SQL returns the statement: DROP TYPE "name".
func (op DropType) SQL() string {
	return "DROP TYPE " + quoteIdent(op.Name)
}

// Describe returns a human-readable summary for migration logs.
func (op DropType) Describe() string {
	return "Drops type " + op.Name
}

// Apply executes the drop.
func (op DropType) Apply(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, op.SQL()); err != nil {
		return mapPgError(err, "drop type "+op.Name)
	}
	return nil
}
