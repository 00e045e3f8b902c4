package pgrecord

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// ValueArray adapts a list of composite values to the driver's array
// interfaces, so a column declared as an array of a composite type can be
// passed as a query argument and scanned from a row once the type is
// registered. Only one-dimensional arrays are supported; list order is
// element order on the wire.
type ValueArray struct {
	spec  *TypeSpec
	Elems []*CompositeValue
}

// NewValueArray creates an array holder for values of the given type.
func NewValueArray(spec *TypeSpec, elems ...*CompositeValue) *ValueArray {
	return &ValueArray{spec: spec, Elems: elems}
}

// Spec returns the element type.
func (a *ValueArray) Spec() *TypeSpec { return a.spec }

// Dimensions implements pgtype.ArrayGetter.
func (a *ValueArray) Dimensions() []pgtype.ArrayDimension {
	if a.Elems == nil {
		return nil
	}
	return []pgtype.ArrayDimension{{Length: int32(len(a.Elems)), LowerBound: 1}}
}

// Index implements pgtype.ArrayGetter.
func (a *ValueArray) Index(i int) any { return a.Elems[i] }

// IndexType implements pgtype.ArrayGetter.
func (a *ValueArray) IndexType() any { return a.spec.newEmpty() }

// SetDimensions implements pgtype.ArraySetter.
func (a *ValueArray) SetDimensions(dims []pgtype.ArrayDimension) error {
	if dims == nil {
		a.Elems = nil
		return nil
	}
	if len(dims) != 1 {
		return decodeErrorf("%s[]: expected a one-dimensional array, got %d dimensions", a.spec.name, len(dims))
	}
	a.Elems = make([]*CompositeValue, dims[0].Length)
	return nil
}

// ScanIndex implements pgtype.ArraySetter.
func (a *ValueArray) ScanIndex(i int) any {
	a.Elems[i] = a.spec.newEmpty()
	return a.Elems[i]
}

// ScanIndexType implements pgtype.ArraySetter.
func (a *ValueArray) ScanIndexType() any { return a.spec.newEmpty() }

// SkipUnderlyingTypePlan keeps pgx from unwrapping the holder before the
// array codec sees it.
func (a *ValueArray) SkipUnderlyingTypePlan() {}
