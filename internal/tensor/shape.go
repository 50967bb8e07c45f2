package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Shape is the extent of a value along its three axes.
//
// Rank-1 and rank-2 data is embedded in three axes: a vector of n
// elements is Shape{1, 1, n}, an h×w matrix is Shape{h, w, 1}.
type Shape struct {
	H int // height
	W int // width
	D int // depth
}

// ShapeOf builds a Shape from up to three dimensions.
//
//	ShapeOf(n)       -> {1, 1, n}
//	ShapeOf(h, w)    -> {h, w, 1}
//	ShapeOf(h, w, d) -> {h, w, d}
//
// More than three dimensions or a non-positive extent is a configuration error.
func ShapeOf(dims ...int) (Shape, error) {
	var s Shape
	switch len(dims) {
	case 1:
		s = Shape{1, 1, dims[0]}
	case 2:
		s = Shape{dims[0], dims[1], 1}
	case 3:
		s = Shape{dims[0], dims[1], dims[2]}
	default:
		return Shape{}, errors.Wrapf(ErrInvalidShape, "rank %d not supported (max 3): %v", len(dims), dims)
	}
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// MustShape is like ShapeOf but panics on error. Intended for literals.
func MustShape(dims ...int) Shape {
	s, err := ShapeOf(dims...)
	if err != nil {
		panic(err)
	}
	return s
}

// Volume returns H*W*D.
func (s Shape) Volume() int {
	return s.H * s.W * s.D
}

// Validate checks that every axis is positive.
func (s Shape) Validate() error {
	if s.H <= 0 || s.W <= 0 || s.D <= 0 {
		return errors.Wrapf(ErrInvalidShape, "%v: every axis must be > 0", s)
	}
	return nil
}

// Index returns the flat offset of (y, x, d). Depth varies fastest.
func (s Shape) Index(y, x, d int) int {
	return (y*s.W+x)*s.D + d
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.H, s.W, s.D)
}
