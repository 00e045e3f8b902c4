package pgrecord

import (
	"regexp"
	"strings"
)

// identPattern matches the unquoted-identifier syntax accepted for type and
// field names. Reserved words are fine; DDL always quotes them.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// TypeSpec is the single source of truth for a composite type's shape: a
// unique database type name plus an ordered list of field descriptors.
// Field order is fixed at declaration time and defines tuple position in the
// database type, the encoded literal and the decoder alike.
//
// A TypeSpec is immutable after Declare returns it. The only
// connection-scoped state (live OIDs discovered during registration) lives
// in the Registry, not here.
type TypeSpec struct {
	name   string
	fields []FieldSpec
	byName map[string]int
}

// Declare builds the TypeSpec for a composite type. It fails with a schema
// error if the type name is empty or not a valid identifier, if any field
// name is invalid or duplicated, if a nested composite field has no element
// type, or if a field is a relational reference (composite types may only
// nest other composite types or scalars, never foreign keys).
func Declare(dbTypeName string, fields ...FieldSpec) (*TypeSpec, error) {
	if dbTypeName == "" {
		return nil, schemaErrorf("composite type requires a db type name")
	}
	if !identPattern.MatchString(dbTypeName) {
		return nil, schemaErrorf("%q is not a valid type name", dbTypeName)
	}

	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if !identPattern.MatchString(f.Name) {
			return nil, schemaErrorf("%s: %q is not a valid field name", dbTypeName, f.Name)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, schemaErrorf("%s: duplicate field %q", dbTypeName, f.Name)
		}
		if f.Kind == KindReference {
			return nil, schemaErrorf("%s.%s: composite types cannot contain relational references (to %s)",
				dbTypeName, f.Name, f.refTarget)
		}
		if f.Kind == KindComposite && f.Elem == nil {
			return nil, schemaErrorf("%s.%s: nested composite field has no element type", dbTypeName, f.Name)
		}
		byName[f.Name] = i
	}

	spec := &TypeSpec{
		name:   dbTypeName,
		fields: append([]FieldSpec(nil), fields...),
		byName: byName,
	}
	return spec, nil
}

// MustDeclare is Declare for package-level type definitions, panicking on a
// declaration error. Misdeclared types are a programming bug that should
// fail at init, matching how the Registry expects specs to exist before any
// connection is made.
func MustDeclare(dbTypeName string, fields ...FieldSpec) *TypeSpec {
	spec, err := Declare(dbTypeName, fields...)
	if err != nil {
		panic(err)
	}
	return spec
}

// Name returns the database type name. It is the composite type's identity
// everywhere: the registry key, the CREATE TYPE target and the cast suffix
// on encoded literals.
func (s *TypeSpec) Name() string { return s.name }

// Fields returns the field descriptors in declaration order. The returned
// slice is a copy; a TypeSpec cannot be reshaped after declaration.
func (s *TypeSpec) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// NumFields returns the declared field count.
func (s *TypeSpec) NumFields() int { return len(s.fields) }

// Field returns the descriptor for a named field.
func (s *TypeSpec) Field(name string) (FieldSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

func (s *TypeSpec) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return s.name + "(" + strings.Join(parts, ", ") + ")"
}
