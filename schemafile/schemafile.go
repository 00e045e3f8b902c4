// Package schemafile loads declarative composite-type definitions from
// YAML. It exists for tooling (the pgrecord CLI) and for applications that
// prefer keeping type schemas next to their migrations instead of in code.
//
// File format:
//
//	types:
//	  - name: point
//	    fields:
//	      - {name: x, type: integer}
//	      - {name: y, type: integer}
//	  - name: box
//	    fields:
//	      - {name: top_left, type: point}
//	      - {name: bottom_right, type: point, nullable: true}
//
// A field's type is either a scalar keyword or the name of a composite
// type declared earlier in the same file.
package schemafile

import (
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pgrecord/pgrecord"
)

type file struct {
	Types []typeDef `yaml:"types"`
}

type typeDef struct {
	Name   string     `yaml:"name"`
	Fields []fieldDef `yaml:"fields"`
}

type fieldDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// Load reads type declarations from r and returns the specs in file order.
func Load(r io.Reader) ([]*pgrecord.TypeSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if len(f.Types) == 0 {
		return nil, fmt.Errorf("schema file declares no types")
	}

	declared := make(map[string]*pgrecord.TypeSpec, len(f.Types))
	specs := make([]*pgrecord.TypeSpec, 0, len(f.Types))
	for _, td := range f.Types {
		fields := make([]pgrecord.FieldSpec, 0, len(td.Fields))
		for _, fd := range td.Fields {
			field, err := buildField(fd, declared)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", td.Name, err)
			}
			fields = append(fields, field)
		}
		spec, err := pgrecord.Declare(td.Name, fields...)
		if err != nil {
			return nil, err
		}
		declared[td.Name] = spec
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadFile is Load for a path.
func LoadFile(path string) ([]*pgrecord.TypeSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func buildField(fd fieldDef, declared map[string]*pgrecord.TypeSpec) (pgrecord.FieldSpec, error) {
	var field pgrecord.FieldSpec
	switch fd.Type {
	case "integer", "int":
		field = pgrecord.Int(fd.Name)
	case "bigint":
		field = pgrecord.BigInt(fd.Name)
	case "float", "double precision":
		field = pgrecord.Float(fd.Name)
	case "boolean", "bool":
		field = pgrecord.Bool(fd.Name)
	case "text":
		field = pgrecord.Text(fd.Name)
	case "date":
		field = pgrecord.Date(fd.Name)
	case "timestamp":
		field = pgrecord.Timestamp(fd.Name)
	case "timestamptz":
		field = pgrecord.TimestampTZ(fd.Name)
	default:
		elem, ok := declared[fd.Type]
		if !ok {
			return field, fmt.Errorf("field %s: unknown type %q (composite types must be declared earlier in the file)", fd.Name, fd.Type)
		}
		field = pgrecord.Composite(fd.Name, elem)
	}
	if fd.Nullable {
		field = field.AsNullable()
	}
	return field, nil
}
