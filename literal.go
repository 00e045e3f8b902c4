package pgrecord

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Quotable is the self-quoting capability: anything that can render itself
// as a safe SQL fragment after being prepared against a connection's type
// map. Both top-level and nested composite literals implement it, so the
// encoder asks values to quote themselves instead of special-casing
// nesting.
type Quotable interface {
	Prepare(m *pgtype.Map) error
	Render() (string, error)
}

// Literal is the SQL-literal form of a composite value, rendered as
//
//	(v1, v2, ..., vn)::type_name
//
// with fields in declared order, each quoted per its own scalar rules, NULL
// unquoted, and nested composites recursively rendered with their own cast.
// The explicit cast is mandatory: without it the tuple syntax is ambiguous
// to the server, especially for empty and single-field types.
//
// Construction is two-phase. Literal snapshots the field values eagerly;
// Prepare then binds the literal to a connection's type map, and Render
// fails if Prepare has not run. The ordering contract keeps the rendered
// fragment tied to a live connection rather than floating free of one.
type Literal struct {
	spec     *TypeSpec
	parts    []any // converted scalars, or *Literal for nested composites
	prepared bool
}

// Literal builds the encodable SQL-literal form of the value. Field values
// are captured immediately; validation problems (a required field left
// null, a value of the wrong type) surface here rather than at render time.
func (v *CompositeValue) Literal() (*Literal, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	lit := &Literal{spec: v.spec, parts: make([]any, len(v.spec.fields))}
	for i, f := range v.spec.fields {
		val := f.normalize(v.vals[i])
		if f.Kind == KindComposite && val != nil {
			nested, err := val.(*CompositeValue).Literal()
			if err != nil {
				return nil, err
			}
			lit.parts[i] = nested
			continue
		}
		lit.parts[i] = val
	}
	return lit, nil
}

// Prepare binds the literal to a connection's type map. It recurses into
// nested literals so the whole tree becomes renderable in one pass. All
// field values were converted at construction time; this step enforces that
// a literal is only ever rendered in the context of a connection.
func (l *Literal) Prepare(m *pgtype.Map) error {
	if m == nil {
		return schemaErrorf("Prepare requires a connection type map")
	}
	for _, p := range l.parts {
		if nested, ok := p.(*Literal); ok {
			if err := nested.Prepare(m); err != nil {
				return err
			}
		}
	}
	l.prepared = true
	return nil
}

// Render produces the composite literal with its cast suffix. Calling it
// before Prepare is an ordering violation and fails with a not-prepared
// error.
func (l *Literal) Render() (string, error) {
	if !l.prepared {
		return "", newError(ErrKindNotPrepared, "Literal.Prepare() must be called before Literal.Render()")
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, f := range l.spec.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := f.renderLiteral(&sb, l.parts[i]); err != nil {
			return "", err
		}
	}
	sb.WriteString(")::")
	sb.WriteString(l.spec.name)
	return sb.String(), nil
}
