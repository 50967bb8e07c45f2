// Package autodiff implements reverse-mode automatic differentiation with
// a tape of backward closures.
//
// Every operation on a Graph computes its forward value immediately and,
// while the graph is recording, appends one closure that routes the
// output's gradient onto the inputs' gradient accumulators. Forward
// execution is the graph construction: there is no separate symbolic
// graph and no compilation phase.
//
// Usage:
//
//	g := autodiff.NewGraph(true)
//	y := g.MatMul(w, x)
//	z := g.Activate(y, activation.Tanh)
//	// seed dL/dz on z (a loss function does this)
//	g.Backward()
//	// w.Gradient() now holds dL/dw
//
// A Graph is not safe for concurrent use. Independent graphs over
// independent values may run on separate goroutines.
package autodiff

// Graph records backward closures during a forward pass.
type Graph struct {
	tape      []func() // Recorded closures (in execution order)
	recording bool     // Whether operations append to the tape
}

// NewGraph creates a graph. With recording disabled every operation still
// produces a correct forward value but allocates no closures, which is
// what pure inference wants.
func NewGraph(recording bool) *Graph {
	return &Graph{
		tape:      make([]func(), 0, 64),
		recording: recording,
	}
}

// Recording reports whether operations are being recorded.
func (g *Graph) Recording() bool {
	return g.recording
}

// Len returns the number of recorded closures.
func (g *Graph) Len() int {
	return len(g.tape)
}

// Restart clears the tape and sets whether the next forward pass records.
// Value buffers are not touched.
func (g *Graph) Restart(isBackward bool) {
	clear(g.tape)
	g.tape = g.tape[:0]
	g.recording = isBackward
}

// Backward runs every recorded closure exactly once, last recorded first,
// then empties the tape.
//
// The forward pass is a strictly sequential series of calls, so reverse
// recording order is a valid reverse topological order of the DAG. The
// caller seeds the final output's gradient before calling Backward.
func (g *Graph) Backward() {
	for i := len(g.tape) - 1; i >= 0; i-- {
		g.tape[i]()
		g.tape[i] = nil
	}
	g.tape = g.tape[:0]
}

// record appends a backward closure if the graph is recording.
func (g *Graph) record(backward func()) {
	if g.recording {
		g.tape = append(g.tape, backward)
	}
}
