package pgrecord

import (
	"fmt"
	"strings"
	"time"
)

// CompositeValue is one runtime instance of a composite type: a value for
// every declared field (possibly nil, if nullable), stored positionally in
// declaration order, plus a read-only reference to the shared TypeSpec.
//
// A CompositeValue is built by the application (New, NewFromMap, DecodeJSON)
// or by the driver scanning a query result. It implements pgx's composite
// getter and scanner interfaces, so a value of a registered type can be
// passed as a query argument and scanned from a row in both text and binary
// wire formats, recursively for nested types.
type CompositeValue struct {
	spec *TypeSpec
	vals []any
	null bool
}

// New constructs a value from positional arguments in declared field order.
// Fewer arguments than fields leaves the remainder null; more than the
// declared count is an error. Each value goes through the field's
// conversion, so a validation error names the offending field.
func (s *TypeSpec) New(vals ...any) (*CompositeValue, error) {
	if len(vals) > len(s.fields) {
		return nil, validationErrorf("arity", "%s has %d fields, got %d values", s.name, len(s.fields), len(vals))
	}
	v := s.newEmpty()
	for i, raw := range vals {
		if err := v.setIndex(i, raw); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// NewFromMap constructs a value from a field-name-to-value map. Every
// declared field must be present (null is explicit, not a default) and
// unknown keys are rejected.
func (s *TypeSpec) NewFromMap(m map[string]any) (*CompositeValue, error) {
	for name := range m {
		if _, ok := s.byName[name]; !ok {
			return nil, validationErrorf("unknown_field", "%s has no field %q", s.name, name)
		}
	}
	v := s.newEmpty()
	for i, f := range s.fields {
		raw, ok := m[f.Name]
		if !ok {
			return nil, validationErrorf("missing_field", "%s requires field %q (use an explicit null)", s.name, f.Name)
		}
		if err := v.setIndex(i, raw); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (s *TypeSpec) newEmpty() *CompositeValue {
	return &CompositeValue{spec: s, vals: make([]any, len(s.fields))}
}

// Spec returns the TypeSpec this value belongs to.
func (v *CompositeValue) Spec() *TypeSpec { return v.spec }

// Get returns the named field's value. The second result is false if the
// field does not exist in the type.
func (v *CompositeValue) Get(name string) (any, bool) {
	i, ok := v.spec.byName[name]
	if !ok {
		return nil, false
	}
	return v.spec.fields[i].normalize(v.vals[i]), true
}

// MustGet is Get for fields known to exist; it panics otherwise.
func (v *CompositeValue) MustGet(name string) any {
	val, ok := v.Get(name)
	if !ok {
		panic(fmt.Sprintf("pgrecord: %s has no field %q", v.spec.name, name))
	}
	return val
}

// Set assigns a field after converting the value to the field's logical
// type. A validation error carries the field name as its path prefix.
func (v *CompositeValue) Set(name string, raw any) error {
	i, ok := v.spec.byName[name]
	if !ok {
		return validationErrorf("unknown_field", "%s has no field %q", v.spec.name, name)
	}
	return v.setIndex(i, raw)
}

func (v *CompositeValue) setIndex(i int, raw any) error {
	f := v.spec.fields[i]
	val, err := f.convert(raw)
	if err != nil {
		return fieldValidationError(f.Name, err)
	}
	v.vals[i] = val
	return nil
}

// Validate checks every field of a value against its declaration. Values
// built by the constructors are always valid; this exists for values filled
// in by the driver, which has no per-field conversion hook.
func (v *CompositeValue) Validate() error {
	if v.null {
		return nil
	}
	for i, f := range v.spec.fields {
		if err := f.check(f.normalize(v.vals[i])); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether two values have the same type and equal fields.
// Nested values are compared recursively; timestamps compare by instant.
func (v *CompositeValue) Equal(other *CompositeValue) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.spec != other.spec || v.null != other.null {
		return false
	}
	for i, f := range v.spec.fields {
		a := f.normalize(v.vals[i])
		b := f.normalize(other.vals[i])
		if !fieldEqual(a, b) {
			return false
		}
	}
	return true
}

func fieldEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case *CompositeValue:
		bv, ok := b.(*CompositeValue)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}

func (v *CompositeValue) String() string {
	if v.null {
		return v.spec.name + "(NULL)"
	}
	var sb strings.Builder
	sb.WriteString(v.spec.name)
	sb.WriteByte('(')
	for i, f := range v.spec.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		fmt.Fprintf(&sb, "%v", f.normalize(v.vals[i]))
	}
	sb.WriteByte(')')
	return sb.String()
}

// --- pgx composite interfaces ---
//
// These make a CompositeValue directly usable as a query argument and a
// scan target once its type is registered on the connection.

// IsNull implements pgtype.CompositeIndexGetter.
func (v *CompositeValue) IsNull() bool { return v.null }

// Index implements pgtype.CompositeIndexGetter, returning the
// driver-encodable value at tuple position i.
func (v *CompositeValue) Index(i int) any {
	return v.spec.fields[i].normalize(v.vals[i])
}

// ScanNull implements pgtype.CompositeIndexScanner.
func (v *CompositeValue) ScanNull() error {
	v.null = true
	for i := range v.vals {
		v.vals[i] = nil
	}
	return nil
}

// ScanIndex implements pgtype.CompositeIndexScanner, returning the scan
// target for tuple position i. Nested composite fields get a fresh value of
// the nested type so the driver recurses through its own registered codec;
// scalar fields are scanned loosely and normalised on read.
func (v *CompositeValue) ScanIndex(i int) any {
	f := v.spec.fields[i]
	if f.Kind == KindComposite {
		nested := f.Elem.newEmpty()
		v.vals[i] = nested
		return nested
	}
	return &v.vals[i]
}

// SkipUnderlyingTypePlan keeps pgx from unwrapping the value before the
// composite codec sees it.
func (v *CompositeValue) SkipUnderlyingTypePlan() {}
