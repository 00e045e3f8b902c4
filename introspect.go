package pgrecord

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Conn is the subset of *pgx.Conn the registry needs: catalog queries plus
// access to the connection's type map. *pgx.Conn and the connections handed
// to pgxpool's AfterConnect hook satisfy it.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	TypeMap() *pgtype.Map
}

// attrInfo is one attribute of a live composite type, in tuple order.
type attrInfo struct {
	Name string
	OID  uint32
}

// typeInfo is the shape of a composite type as the database defines it.
type typeInfo struct {
	OID      uint32
	ArrayOID uint32
	Fields   []attrInfo
}

// lookupType introspects the live definition of a composite type. The
// regtype cast makes the server itself raise undefined_object when the type
// does not exist yet, which callers treat as the expected
// startup-before-migration race.
func lookupType(ctx context.Context, conn Conn, name string) (*typeInfo, error) {
	const typeQuery = `
		SELECT t.oid, t.typarray
		FROM pg_type t
		WHERE t.oid = $1::regtype`

	rows, err := conn.Query(ctx, typeQuery, name)
	if err != nil {
		return nil, mapPgError(err, "look up type "+name)
	}
	info := &typeInfo{}
	found := false
	for rows.Next() {
		if err := rows.Scan(&info.OID, &info.ArrayOID); err != nil {
			rows.Close()
			return nil, mapPgError(err, "scan type row for "+name)
		}
		found = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "look up type "+name)
	}
	if !found {
		return nil, newError(ErrKindUndefinedType, "type %s does not exist", name)
	}

	const attrQuery = `
		SELECT a.attname, a.atttypid
		FROM pg_attribute a
		JOIN pg_type t ON t.typrelid = a.attrelid
		WHERE t.oid = $1
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY a.attnum`

	rows, err = conn.Query(ctx, attrQuery, info.OID)
	if err != nil {
		return nil, mapPgError(err, "list attributes of "+name)
	}
	defer rows.Close()

	for rows.Next() {
		var attr attrInfo
		if err := rows.Scan(&attr.Name, &attr.OID); err != nil {
			return nil, mapPgError(err, "scan attribute of "+name)
		}
		info.Fields = append(info.Fields, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "list attributes of "+name)
	}
	return info, nil
}
