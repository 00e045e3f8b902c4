// Package pgrecord binds Go code to PostgreSQL user-defined composite
// (record) types.
//
// A composite type is declared once as an ordered list of typed fields:
//
//	point := pgrecord.MustDeclare("point",
//		pgrecord.Int("x"),
//		pgrecord.Int("y"),
//	)
//
// The TypeSpec is the single source of truth for the type's shape. From it
// hang value construction, the CREATE TYPE / DROP TYPE operations, the SQL
// literal encoder and the result decoder, so none of them can drift apart.
//
// Values encode outbound as cast composite literals, (1, 2)::point, via the
// two-phase Literal/Prepare/Render pipeline, and decode inbound through
// codecs the Registry installs into each connection's type map. Wiring the
// Registry into a pool with Connect makes both directions automatic,
// including nested composite types and array-of-composite columns:
//
//	reg := pgrecord.NewRegistry()
//	reg.Register(point)
//	pool, err := pgrecord.Connect(ctx, cfg, reg)
//
// Types that have not been created in the database yet are an expected
// race: the registry logs the failed attempt and retries on the next
// connection or after CreateType.Apply reports schema changes.
package pgrecord
