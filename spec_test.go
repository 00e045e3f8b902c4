package pgrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSimpleType(t *testing.T) *TypeSpec {
	t.Helper()
	spec, err := Declare("test_type",
		Int("a"),
		Text("b"),
		Timestamp("c"),
	)
	require.NoError(t, err)
	return spec
}

func mustPointAndBox(t *testing.T) (point, box *TypeSpec) {
	t.Helper()
	point, err := Declare("point", Int("x"), Int("y"))
	require.NoError(t, err)
	box, err = Declare("box",
		Composite("top_left", point),
		Composite("bottom_right", point),
	)
	require.NoError(t, err)
	return point, box
}

func TestDeclare(t *testing.T) {
	point, err := Declare("point", Int("x"), Int("y"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		typName string
		fields  []FieldSpec
		wantErr string
	}{
		{
			name:    "valid type",
			typName: "date_range",
			fields:  []FieldSpec{Timestamp("start"), Timestamp("end")},
		},
		{
			name:    "reserved words are valid names",
			typName: "order",
			fields:  []FieldSpec{Text("end")},
		},
		{
			name:    "empty fields allowed",
			typName: "unit",
		},
		{
			name:    "empty type name",
			typName: "",
			wantErr: "requires a db type name",
		},
		{
			name:    "invalid type name",
			typName: "bad name!",
			wantErr: "not a valid type name",
		},
		{
			name:    "invalid field name",
			typName: "t",
			fields:  []FieldSpec{Int("1bad")},
			wantErr: "not a valid field name",
		},
		{
			name:    "duplicate field",
			typName: "t",
			fields:  []FieldSpec{Int("a"), Text("a")},
			wantErr: "duplicate field",
		},
		{
			name:    "relational reference rejected",
			typName: "t",
			fields:  []FieldSpec{Int("a"), Reference("owner", "users")},
			wantErr: "cannot contain relational references",
		},
		{
			name:    "nested field without element type",
			typName: "t",
			fields:  []FieldSpec{{Name: "p", Kind: KindComposite}},
			wantErr: "no element type",
		},
		{
			name:    "valid nested field",
			typName: "t",
			fields:  []FieldSpec{Composite("p", point)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Declare(tt.typName, tt.fields...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, IsSchemaError(err), "expected a schema error, got %v", err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typName, spec.Name())
			assert.Equal(t, len(tt.fields), spec.NumFields())
		})
	}
}

func TestDeclare_FieldOrderIsDeclarationOrder(t *testing.T) {
	spec, err := Declare("ordered", Text("c"), Int("a"), Bool("b"))
	require.NoError(t, err)

	var names []string
	for _, f := range spec.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)

	// Permuting the declaration permutes everything consistently: the DDL,
	// the literal and the decoder all read the same field list.
	permuted, err := Declare("ordered2", Int("a"), Bool("b"), Text("c"))
	require.NoError(t, err)
	assert.Equal(t, `CREATE TYPE "ordered" AS ("c" text, "a" integer, "b" boolean)`, CreateType{Spec: spec}.SQL())
	assert.Equal(t, `CREATE TYPE "ordered2" AS ("a" integer, "b" boolean, "c" text)`, CreateType{Spec: permuted}.SQL())
}

func TestDeclare_FieldsReturnsACopy(t *testing.T) {
	spec := mustSimpleType(t)
	fields := spec.Fields()
	fields[0].Name = "mutated"

	again, ok := spec.Field("a")
	require.True(t, ok)
	assert.Equal(t, "a", again.Name)
}

func TestMustDeclare_PanicsOnBadShape(t *testing.T) {
	assert.Panics(t, func() { MustDeclare("") })
}

func TestTypeSpec_String(t *testing.T) {
	point, box := mustPointAndBox(t)
	assert.Equal(t, "point(x int, y int)", point.String())
	assert.Equal(t, "box(top_left point, bottom_right point)", box.String())
}
