// Package vitembed implements the input-embedding stage of a Vision
// Transformer from first principles: patch extraction, linear projection,
// class-token prepending, and positional-encoding addition.
//
// This is a teaching codebase. Every stage is a small struct holding its
// learned parameters, constructed by a pure function of its configuration,
// with a Forward method that maps one tensor to one tensor. Nothing here
// trains, serializes, or runs attention; those belong downstream.
package vitembed

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a multi-dimensional array of float64 values stored in
// row-major (C-contiguous) order. The last axis varies fastest.
//
// Tensor is the interchange type between stages: image batches are rank-4
// (batch, channel, height, width) and embedding sequences are rank-3
// (batch, position, embedding).
//
// Tensor is not safe for concurrent mutation. Forward passes only read
// their inputs, so sharing a tensor between concurrent forward calls is
// fine; anything that writes must be serialized by the caller.
type Tensor struct {
	data  []float64
	shape []int
}

// New creates a tensor with the given shape, initialized to zero.
// Panics if the shape is empty or contains a non-positive dimension;
// shape construction errors are programmer bugs, not runtime conditions.
func New(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("vitembed: tensor shape cannot be empty")
	}
	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("vitembed: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}

	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		data:  make([]float64, size),
		shape: shapeCopy,
	}
}

// Shape returns a copy of the tensor's shape. The returned slice can be
// modified freely without affecting the tensor.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.shape) {
		panic(fmt.Sprintf("vitembed: axis %d out of range for rank-%d tensor", i, len(t.shape)))
	}
	return t.shape[i]
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	return len(t.data)
}

// Data returns the backing slice in row-major order. It is shared, not
// copied: writes through it are visible to the tensor. This is how an
// external training procedure updates learned parameters.
func (t *Tensor) Data() []float64 {
	return t.data
}

// At returns the element at the given indices. Panics on out-of-bounds
// or wrong-arity indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.flatIndex(indices)]
}

// Set stores value at the given indices. Panics on invalid indices.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

// flatIndex converts multi-dimensional indices to a row-major flat index.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("vitembed: expected %d indices, got %d", len(t.shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("vitembed: index[%d]=%d out of bounds [0,%d)", i, indices[i], t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}
	return idx
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.shape...)
	copy(c.data, t.data)
	return c
}

// Reshape returns a tensor sharing this tensor's data with a new shape.
// The element count must be preserved. Because storage is row-major and
// contiguous, reshaping is free: no data moves.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("vitembed: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}
	if size != len(t.data) {
		panic(fmt.Sprintf("vitembed: cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, size))
	}
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)
	return &Tensor{data: t.data, shape: shapeCopy}
}

// Matrix returns a zero-copy gonum view of a rank-2 tensor. Writes to the
// returned matrix write through to the tensor. This is the bridge that
// lets gonum do all the heavy linear algebra while tensors keep the
// higher-rank bookkeeping.
func (t *Tensor) Matrix() *mat.Dense {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("vitembed: Matrix requires a rank-2 tensor, got rank %d", len(t.shape)))
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// Equal reports whether two tensors have identical shapes and bit-identical
// contents. Forward passes are deterministic, so repeated calls with the
// same parameters and input must compare Equal.
func Equal(a, b *Tensor) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}
	return true
}

// String returns a compact description, e.g. "Tensor(4, 5, 50)".
func (t *Tensor) String() string {
	s := "Tensor("
	for i, dim := range t.shape {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", dim)
	}
	return s + ")"
}
