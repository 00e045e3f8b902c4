package pgrecord

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// FromPositional is the decoder factory handed to the driver layer: given a
// flat, positionally-ordered tuple of already-decoded field values, it
// constructs the typed value by positional assignment in declared field
// order.
//
// An arity mismatch means the registered decoder and the database type have
// drifted apart. That is an internal-consistency fault, not a recoverable
// error, and it surfaces as a decode error.
func (s *TypeSpec) FromPositional(vals []any) (*CompositeValue, error) {
	if len(vals) != len(s.fields) {
		return nil, decodeErrorf("%s declares %d fields but the database returned %d values",
			s.name, len(s.fields), len(vals))
	}
	v := s.newEmpty()
	for i, f := range s.fields {
		v.vals[i] = f.normalize(vals[i])
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// verifyShape checks the declared field list against the live database
// type. Any divergence is fatal: registering a decoder over a mismatched
// type would corrupt every row read through it.
func (s *TypeSpec) verifyShape(info *typeInfo) error {
	if len(info.Fields) != len(s.fields) {
		return decodeErrorf("%s declares %d fields but the database type has %d",
			s.name, len(s.fields), len(info.Fields))
	}
	for i, f := range s.fields {
		if info.Fields[i].Name != f.Name {
			return decodeErrorf("%s field %d is declared %q but the database type has %q",
				s.name, i, f.Name, info.Fields[i].Name)
		}
	}
	return nil
}

// pgType builds the driver type for this spec from the live type info,
// resolving each attribute's OID through the connection's type map. Nested
// composite types must already be registered in m; the registry binds
// depth-first to guarantee that.
func (s *TypeSpec) pgType(m *pgtype.Map, info *typeInfo) (*pgtype.Type, error) {
	fields := make([]pgtype.CompositeCodecField, len(s.fields))
	for i, f := range s.fields {
		attr := info.Fields[i]
		pt, ok := m.TypeForOID(attr.OID)
		if !ok {
			return nil, decodeErrorf("%s.%s: no codec for OID %d (is the nested type registered?)",
				s.name, f.Name, attr.OID)
		}
		fields[i] = pgtype.CompositeCodecField{Name: attr.Name, Type: pt}
	}
	return &pgtype.Type{
		Name:  s.name,
		OID:   info.OID,
		Codec: &pgtype.CompositeCodec{Fields: fields},
	}, nil
}

// registerInto installs the composite codec, and the derived array codec
// when the database reports an array OID, so array-of-composite columns
// round-trip without extra wiring.
func (s *TypeSpec) registerInto(m *pgtype.Map, info *typeInfo) error {
	if err := s.verifyShape(info); err != nil {
		return err
	}
	t, err := s.pgType(m, info)
	if err != nil {
		return err
	}
	m.RegisterType(t)
	if info.ArrayOID != 0 {
		m.RegisterType(&pgtype.Type{
			Name:  "_" + s.name,
			OID:   info.ArrayOID,
			Codec: &pgtype.ArrayCodec{ElementType: t},
		})
	}
	return nil
}
