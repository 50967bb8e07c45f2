//go:build !amd64

package tensor

func dot(x, y []float32) float32 {
	var sum float32
	for i, a := range x {
		sum += a * y[i]
	}
	return sum
}

func axpy(alpha float32, x, y []float32) {
	for i, a := range x {
		y[i] += alpha * a
	}
}
