package triangulate

import (
	"fmt"
	"reflect"
)

// Tensor is a dense float64 tensor with an explicit shape. Multi-view point
// observations and their validity masks are carried as Tensors so that every
// shape decision is visible at the call boundary instead of being implied by
// slice nesting.
//
// Data is stored in row-major order (last axis fastest). Reshape and
// FlattenPairs return views sharing the backing slice; use Clone when an
// independent copy is needed.
type Tensor struct {
	shape []int
	data  []float64
}

// NewTensor constructs a tensor over the given backing data. The data slice
// is retained, not copied. Returns an error when the shape is empty, contains
// a non-positive dimension, or does not match len(data).
func NewTensor(shape []int, data []float64) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("tensor shape must have at least one dimension")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("tensor shape %v contains non-positive dimension", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{shape: append([]int(nil), shape...), data: data}, nil
}

// Ones returns a tensor of the given shape with every element set to 1.0.
func Ones(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = 1.0
	}
	t, err := NewTensor(shape, data)
	if err != nil {
		panic(err) // shape validated by the caller-visible constructor path
	}
	return t
}

// FromNested builds a tensor from a uniformly nested slice value. Accepted
// leaves are any Go integer or float kind; accepted containers are slices and
// arrays of any element type, including the []any nesting produced by
// encoding/json. A *Tensor passes through unchanged.
//
// Ragged nesting or a non-slice, non-numeric value is rejected.
func FromNested(v any) (*Tensor, error) {
	if t, ok := v.(*Tensor); ok {
		return t, nil
	}
	shape, err := nestedShape(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("scalar %v has no tensor shape", v)
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, 0, n)
	data, err = appendNested(data, reflect.ValueOf(v), shape)
	if err != nil {
		return nil, err
	}
	return NewTensor(shape, data)
}

// nestedShape walks the first element at each level to determine the shape,
// validating dimensions lazily during appendNested.
func nestedShape(v reflect.Value) ([]int, error) {
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, fmt.Errorf("empty sequence has no tensor shape")
		}
		inner, err := nestedShape(v.Index(0))
		if err != nil {
			return nil, err
		}
		return append([]int{v.Len()}, inner...), nil
	case reflect.Float64, reflect.Float32,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported element type %s", v.Kind())
	}
}

// appendNested flattens v into data, enforcing that every level matches the
// shape discovered from the first element (no ragged nesting).
func appendNested(data []float64, v reflect.Value, shape []int) ([]float64, error) {
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if len(shape) == 0 {
		switch v.Kind() {
		case reflect.Float64, reflect.Float32:
			return append(data, v.Float()), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return append(data, float64(v.Int())), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return append(data, float64(v.Uint())), nil
		default:
			return nil, fmt.Errorf("unsupported element type %s", v.Kind())
		}
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("ragged nesting: expected sequence of length %d, got %s", shape[0], v.Kind())
	}
	if v.Len() != shape[0] {
		return nil, fmt.Errorf("ragged nesting: expected sequence of length %d, got length %d", shape[0], v.Len())
	}
	var err error
	for i := 0; i < v.Len(); i++ {
		data, err = appendNested(data, v.Index(i), shape[1:])
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.shape) }

// Dim returns the length of axis i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing slice. Mutations are visible through every view of
// the same tensor.
func (t *Tensor) Data() []float64 { return t.data }

// At returns the element at the given multi-axis index.
func (t *Tensor) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given multi-axis index.
func (t *Tensor) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("index rank %d does not match tensor rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for axis, i := range idx {
		if i < 0 || i >= t.shape[axis] {
			panic(fmt.Sprintf("index %d out of range for axis %d (length %d)", i, axis, t.shape[axis]))
		}
		off = off*t.shape[axis] + i
	}
	return off
}

// Clone returns a deep copy with its own backing data.
func (t *Tensor) Clone() *Tensor {
	data := append([]float64(nil), t.data...)
	out, _ := NewTensor(t.shape, data)
	return out
}

// Reshape returns a view of the tensor with a new shape covering the same
// number of elements. The backing data is shared.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	return NewTensor(shape, t.data)
}

// ShapeEquals reports whether both tensors have identical shapes.
func (t *Tensor) ShapeEquals(other *Tensor) bool {
	if len(t.shape) != len(other.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != other.shape[i] {
			return false
		}
	}
	return true
}

// LeadingShape returns every axis length except the last.
func (t *Tensor) LeadingShape() []int {
	return append([]int(nil), t.shape[:len(t.shape)-1]...)
}

// FlattenPairs collapses all middle axes of a [n_view, ...extra..., w] tensor
// into a single point axis, yielding a [n_view, n_point, w] view over the same
// data. This is the one place higher-rank inputs (per-frame, per-person) are
// reduced to the canonical rank-3 layout the statistics and solver stages
// operate on.
func (t *Tensor) FlattenPairs() (*Tensor, error) {
	if t.Rank() < 2 {
		return nil, fmt.Errorf("cannot flatten rank-%d tensor to [n_view, n_point, w]", t.Rank())
	}
	nView := t.shape[0]
	w := t.shape[len(t.shape)-1]
	nPoint := 1
	for _, d := range t.shape[1 : len(t.shape)-1] {
		nPoint *= d
	}
	return t.Reshape(nView, nPoint, w)
}
