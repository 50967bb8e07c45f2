package tensor

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// MatVec computes y = W·x for a rows×cols matrix stored row-major in w.
func MatVec(y, w, x []float32, rows, cols int) {
	blas32.Gemv(blas.NoTrans, 1, general(w, rows, cols), vector(x), 0, vector(y))
}

// MatTVecAdd accumulates dx += Wᵀ·dy.
func MatTVecAdd(dx, w, dy []float32, rows, cols int) {
	blas32.Gemv(blas.Trans, 1, general(w, rows, cols), vector(dy), 1, vector(dx))
}

// OuterAdd accumulates dW += dy ⊗ x.
func OuterAdd(dw, dy, x []float32, rows, cols int) {
	blas32.Ger(1, vector(dy), vector(x), general(dw, rows, cols))
}

// Dot returns Σ a[i]·b[i] over len(a) elements.
func Dot(a, b []float32) float32 {
	return dot(a, b)
}

// Axpy accumulates y += alpha·x over len(x) elements.
func Axpy(alpha float32, x, y []float32) {
	axpy(alpha, x, y)
}

func general(data []float32, rows, cols int) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

func vector(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}
