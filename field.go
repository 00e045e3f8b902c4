package pgrecord

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the logical type of a composite field. It decides the SQL column
// type emitted by CREATE TYPE, the Go type values are normalised to, and
// how the value is quoted inside a composite literal.
type Kind int

const (
	KindInt         Kind = iota // integer <-> int64
	KindBigInt                  // bigint <-> int64
	KindFloat                   // double precision <-> float64
	KindBool                    // boolean <-> bool
	KindText                    // text <-> string
	KindDate                    // date <-> time.Time (midnight, UTC)
	KindTimestamp               // timestamp without time zone <-> time.Time
	KindTimestampTZ             // timestamp with time zone <-> time.Time
	KindComposite               // another declared composite type
	KindReference               // relational reference; rejected by Declare
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindComposite:
		return "composite"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// FieldSpec describes one named, typed member of a composite type. A
// FieldSpec is owned by exactly one TypeSpec and never mutated after
// Declare accepts it; nested composites are referenced through Elem by type,
// not by sharing field descriptors.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Nullable bool
	// Elem is the nested type for KindComposite fields, nil otherwise.
	Elem *TypeSpec
	// refTarget records what a KindReference field points at, only so the
	// declaration error can name it.
	refTarget string
}

// --- field constructors ---

// Int declares an integer field.
func Int(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindInt} }

// BigInt declares a bigint field.
func BigInt(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindBigInt} }

// Float declares a double precision field.
func Float(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindFloat} }

// Bool declares a boolean field.
func Bool(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindBool} }

// Text declares a text field.
func Text(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindText} }

// Date declares a date field.
func Date(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindDate} }

// Timestamp declares a timestamp (without time zone) field.
func Timestamp(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindTimestamp} }

// TimestampTZ declares a timestamp with time zone field.
func TimestampTZ(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindTimestampTZ} }

// Composite declares a field holding a value of another composite type.
func Composite(name string, elem *TypeSpec) FieldSpec {
	return FieldSpec{Name: name, Kind: KindComposite, Elem: elem}
}

// Reference declares a relational reference to another table. Composite
// types cannot contain relational references; Declare rejects this field
// kind. It exists so the misuse is caught at declaration time rather than
// silently producing a broken column.
func Reference(name, target string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindReference, refTarget: target}
}

// AsNullable returns a copy of the field that accepts NULL.
func (f FieldSpec) AsNullable() FieldSpec {
	f.Nullable = true
	return f
}

// dbType is the SQL type used for this field in CREATE TYPE.
func (f FieldSpec) dbType() string {
	switch f.Kind {
	case KindInt:
		return "integer"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "double precision"
	case KindBool:
		return "boolean"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindComposite:
		return quoteIdent(f.Elem.Name())
	default:
		return ""
	}
}

const (
	timestampLayout   = "2006-01-02T15:04:05.999999"
	timestampTZLayout = "2006-01-02T15:04:05.999999Z07:00"
	dateLayout        = "2006-01-02"
)

// timestamp layouts accepted on the conversion paths, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	dateLayout,
}

// convert coerces an application-supplied value into the field's canonical
// Go representation. It is the strict path used by Set, the constructors
// and the JSON decoder; nil is only accepted for nullable fields.
func (f FieldSpec) convert(raw any) (any, error) {
	if raw == nil {
		if !f.Nullable {
			return nil, validationErrorf("required", "null is not allowed")
		}
		return nil, nil
	}

	switch f.Kind {
	case KindInt, KindBigInt:
		return convertInt(raw)
	case KindFloat:
		return convertFloat(raw)
	case KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case KindText:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case KindDate, KindTimestamp, KindTimestampTZ:
		return convertTime(raw)
	case KindComposite:
		switch v := raw.(type) {
		case *CompositeValue:
			if v.spec != f.Elem {
				return nil, validationErrorf("wrong_type", "expected a %s value, got %s", f.Elem.Name(), v.spec.Name())
			}
			return v, nil
		case map[string]any:
			return f.Elem.NewFromMap(v)
		}
	}
	return nil, validationErrorf("wrong_type", "cannot use %T as %s", raw, f.Kind)
}

func convertInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint32:
		return int64(v), nil
	case float64:
		// JSON numbers arrive as float64; only integral values qualify.
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
	}
	return nil, validationErrorf("wrong_type", "cannot use %T as an integer", raw)
}

func convertFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, validationErrorf("wrong_type", "cannot use %T as a float", raw)
}

func convertTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, validationErrorf("bad_timestamp", "cannot parse %q as a timestamp", v)
	}
	return nil, validationErrorf("wrong_type", "cannot use %T as a timestamp", raw)
}

// normalize widens whatever type the driver handed back into the field's
// canonical Go representation. Unlike convert it never rejects: values on
// this path already passed through a registered codec, so anything
// unexpected is carried through verbatim and caught by Validate.
func (f FieldSpec) normalize(raw any) any {
	if raw == nil {
		return nil
	}
	switch f.Kind {
	case KindInt, KindBigInt:
		switch v := raw.(type) {
		case int16:
			return int64(v)
		case int32:
			return int64(v)
		case int:
			return int64(v)
		}
	case KindFloat:
		if v, ok := raw.(float32); ok {
			return float64(v)
		}
	case KindComposite:
		// A nested NULL scans into a value with the null flag set; read it
		// back as an absent field.
		if cv, ok := raw.(*CompositeValue); ok && cv.null {
			return nil
		}
	}
	return raw
}

// check reports whether a normalised value satisfies the field, as a
// validation error naming the field. Used by CompositeValue.Validate on
// driver-decoded values that bypassed convert.
func (f FieldSpec) check(v any) error {
	if v == nil {
		if !f.Nullable {
			return fieldValidationError(f.Name, validationErrorf("required", "null is not allowed"))
		}
		return nil
	}
	var ok bool
	switch f.Kind {
	case KindInt, KindBigInt:
		_, ok = v.(int64)
	case KindFloat:
		_, ok = v.(float64)
	case KindBool:
		_, ok = v.(bool)
	case KindText:
		_, ok = v.(string)
	case KindDate, KindTimestamp, KindTimestampTZ:
		_, ok = v.(time.Time)
	case KindComposite:
		var cv *CompositeValue
		cv, ok = v.(*CompositeValue)
		if ok {
			if err := cv.Validate(); err != nil {
				return fieldValidationError(f.Name, err)
			}
		}
	}
	if !ok {
		return fieldValidationError(f.Name, validationErrorf("wrong_type", "unexpected %T", v))
	}
	return nil
}

// renderLiteral writes the SQL-literal fragment for one field value into sb.
// NULL is emitted unquoted; strings use single-quote doubling; nested
// composites quote themselves through their own prepared literal.
func (f FieldSpec) renderLiteral(sb *strings.Builder, v any) error {
	if v == nil {
		sb.WriteString("NULL")
		return nil
	}
	switch f.Kind {
	case KindInt, KindBigInt:
		sb.WriteString(strconv.FormatInt(v.(int64), 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.(float64), 'g', -1, 64))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.(bool)))
	case KindText:
		sb.WriteString(quoteLiteral(v.(string)))
	case KindDate:
		sb.WriteString("'" + v.(time.Time).Format(dateLayout) + "'")
	case KindTimestamp:
		sb.WriteString("'" + v.(time.Time).Format(timestampLayout) + "'")
	case KindTimestampTZ:
		sb.WriteString("'" + v.(time.Time).Format(timestampTZLayout) + "'")
	case KindComposite:
		lit, ok := v.(*Literal)
		if !ok {
			return decodeErrorf("field %s holds %T instead of a prepared literal", f.Name, v)
		}
		s, err := lit.Render()
		if err != nil {
			return err
		}
		sb.WriteString(s)
	default:
		return decodeErrorf("field %s has unrenderable kind %s", f.Name, f.Kind)
	}
	return nil
}

// quoteLiteral escapes a string for use as a SQL string literal. Identifiers
// use quoteIdent instead; the two escaping rules must never be mixed.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent escapes a SQL identifier. Kept separate from pgx.Identifier so
// the DDL emitter and field types share one implementation.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// jsonValue renders a normalised field value for the JSON fallback codec.
func (f FieldSpec) jsonValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindDate:
		return v.(time.Time).Format(dateLayout), nil
	case KindTimestamp:
		return v.(time.Time).Format(timestampLayout), nil
	case KindTimestampTZ:
		return v.(time.Time).Format(timestampTZLayout), nil
	case KindComposite:
		cv, ok := v.(*CompositeValue)
		if !ok {
			return nil, decodeErrorf("field %s holds %T instead of a composite value", f.Name, v)
		}
		return cv.jsonObject()
	default:
		return v, nil
	}
}

func (f FieldSpec) String() string {
	s := fmt.Sprintf("%s %s", f.Name, f.Kind)
	if f.Kind == KindComposite && f.Elem != nil {
		s = fmt.Sprintf("%s %s", f.Name, f.Elem.Name())
	}
	if f.Nullable {
		s += " null"
	}
	return s
}
