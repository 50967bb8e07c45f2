package autodiff

import (
	"fmt"

	"github.com/born-ml/tapenet/internal/tensor"
)

// MatMul computes W·x, treating w as a rows×cols matrix (shape (rows, cols, 1))
// and x as a flat vector of cols elements regardless of its shape.
// The result has shape (1, 1, rows).
//
// Backward:
//
//	grad_x += Wᵀ·grad
//	grad_W += grad ⊗ x
func (g *Graph) MatMul(w, x *tensor.Value) *tensor.Value {
	ws := w.Shape()
	if ws.D != 1 || ws.W != x.Len() {
		panic(fmt.Sprintf("matmul: weight %v cannot multiply input %v (volume %d)", ws, x.Shape(), x.Len()))
	}
	g.track(w, x)

	rows, cols := ws.H, ws.W
	out := tensor.New(tensor.Shape{H: 1, W: 1, D: rows})
	tensor.MatVec(out.Data(), w.Data(), x.Data(), rows, cols)

	g.record(func() {
		og := out.Gradient()
		tensor.MatTVecAdd(x.Gradient(), w.Data(), og, rows, cols)
		tensor.OuterAdd(w.Gradient(), og, x.Data(), rows, cols)
	})
	return out
}
