package schemafile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSchema = `
types:
  - name: point
    fields:
      - {name: x, type: integer}
      - {name: y, type: integer}
  - name: box
    fields:
      - {name: top_left, type: point}
      - {name: bottom_right, type: point, nullable: true}
  - name: event
    fields:
      - {name: label, type: text}
      - {name: at, type: timestamptz}
      - {name: count, type: bigint, nullable: true}
`

func TestLoad(t *testing.T) {
	specs, err := Load(strings.NewReader(validSchema))
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "point", specs[0].Name())
	assert.Equal(t, "box", specs[1].Name())
	assert.Equal(t, "event", specs[2].Name())

	// box resolves its fields against the point spec declared above it.
	box := specs[1]
	f, ok := box.Field("top_left")
	require.True(t, ok)
	require.NotNil(t, f.Elem)
	assert.Same(t, specs[0], f.Elem)
	assert.False(t, f.Nullable)

	f, ok = box.Field("bottom_right")
	require.True(t, ok)
	assert.True(t, f.Nullable)

	event := specs[2]
	f, _ = event.Field("count")
	assert.True(t, f.Nullable)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{
			name:    "unknown field type",
			in:      "types:\n  - name: t\n    fields:\n      - {name: a, type: uuid}\n",
			wantErr: `unknown type "uuid"`,
		},
		{
			name: "composite used before declared",
			in: "types:\n" +
				"  - name: box\n    fields:\n      - {name: top_left, type: point}\n" +
				"  - name: point\n    fields:\n      - {name: x, type: integer}\n",
			wantErr: "declared earlier",
		},
		{
			name:    "no types",
			in:      "types: []\n",
			wantErr: "declares no types",
		},
		{
			name:    "malformed yaml",
			in:      "types: [}\n",
			wantErr: "parse schema file",
		},
		{
			name:    "invalid type name",
			in:      "types:\n  - name: Bad-Name\n    fields:\n      - {name: a, type: text}\n",
			wantErr: "not a valid type name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open schema file")
}
