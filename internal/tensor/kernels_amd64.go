//go:build amd64

package tensor

import "github.com/ziutek/blas"

func dot(x, y []float32) float32 {
	return blas.Sdot(len(x), x, 1, y, 1)
}

func axpy(alpha float32, x, y []float32) {
	blas.Saxpy(len(x), alpha, x, 1, y, 1)
}
