package autodiff

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/tensor"
)

func vec(data ...float32) *tensor.Value {
	v, err := tensor.FromSlice(tensor.MustShape(len(data)), data)
	if err != nil {
		panic(err)
	}
	return v
}

func seedOnes(v *tensor.Value) {
	for i := range v.Gradient() {
		v.Gradient()[i] = 1
	}
}

// TestBackward_ReverseOrder records closures with distinguishable side
// effects and checks they run last-recorded-first, exactly once.
func TestBackward_ReverseOrder(t *testing.T) {
	g := NewGraph(true)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		g.record(func() { order = append(order, i) })
	}
	require.Equal(t, 3, g.Len())

	g.Backward()
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Zero(t, g.Len())

	g.Backward()
	assert.Equal(t, []int{2, 1, 0}, order, "closures must not run twice")
}

// TestAddConst_Chain checks one closure per operation and correct routing
// through three chained adds of different constants.
func TestAddConst_Chain(t *testing.T) {
	g := NewGraph(true)
	x := vec(1, 2)

	a := g.AddConst(x, 1)
	b := g.AddConst(a, 10)
	c := g.AddConst(b, 100)
	require.Equal(t, 3, g.Len())
	assert.Equal(t, []float32{112, 113}, c.Data())

	c.Gradient()[0], c.Gradient()[1] = 0.5, -2
	g.Backward()

	assert.Equal(t, []float32{0.5, -2}, b.Gradient())
	assert.Equal(t, []float32{0.5, -2}, a.Gradient())
	assert.Equal(t, []float32{0.5, -2}, x.Gradient())
}

func TestRestart_ClearsTapeOnly(t *testing.T) {
	g := NewGraph(true)
	x := vec(3)
	y := g.Scale(x, 2)
	require.Equal(t, 1, g.Len())

	g.Restart(false)
	assert.Zero(t, g.Len())
	assert.False(t, g.Recording())
	assert.Equal(t, []float32{6}, y.Data())

	g.Scale(x, 2)
	assert.Zero(t, g.Len(), "non-recording graph must not tape")

	g.Restart(true)
	assert.True(t, g.Recording())
}

func TestNonRecording_ForwardStillCorrect(t *testing.T) {
	g := NewGraph(false)
	w, err := tensor.FromSlice(tensor.MustShape(2, 2), []float32{1, 2, 3, 4})
	require.NoError(t, err)

	y := g.MatMul(w, vec(1, 1))
	assert.Equal(t, []float32{3, 7}, y.Data())
	assert.Zero(t, g.Len())
}

// TestMatMul_SingleNeuron is the one-neuron scenario: W=[0.5 0.5], x=[1 1].
func TestMatMul_SingleNeuron(t *testing.T) {
	g := NewGraph(true)
	w, err := tensor.FromSlice(tensor.MustShape(1, 2), []float32{0.5, 0.5})
	require.NoError(t, err)
	x := vec(1, 1)

	y := g.MatMul(w, x)
	require.Equal(t, []float32{1}, y.Data())

	y.Gradient()[0] = 1
	g.Backward()
	assert.Equal(t, []float32{0.5, 0.5}, x.Gradient())
	assert.Equal(t, []float32{1, 1}, w.Gradient())
}

func TestArith_Gradients(t *testing.T) {
	g := NewGraph(true)
	a, b := vec(1, 2), vec(3, 5)

	sum := g.Add(a, b)
	diff := g.Sub(a, b)
	prod := g.Mul(a, b)
	assert.Equal(t, []float32{4, 7}, sum.Data())
	assert.Equal(t, []float32{-2, -3}, diff.Data())
	assert.Equal(t, []float32{3, 10}, prod.Data())

	seedOnes(sum)
	seedOnes(diff)
	seedOnes(prod)
	g.Backward()

	// d/da: 1 + 1 + b ; d/db: 1 - 1 + a
	assert.Equal(t, []float32{5, 7}, a.Gradient())
	assert.Equal(t, []float32{1, 2}, b.Gradient())
}

func TestShapeMismatch_Panics(t *testing.T) {
	g := NewGraph(true)
	assert.Panics(t, func() { g.Add(vec(1), vec(1, 2)) })
	w := tensor.New(tensor.MustShape(2, 3))
	assert.Panics(t, func() { g.MatMul(w, vec(1, 2)) })
}

func TestInferenceOnly_RecordingPanics(t *testing.T) {
	x := vec(1, 2)
	x.ReleaseTrainingState()

	assert.NotPanics(t, func() { NewGraph(false).Scale(x, 2) })
	assert.Panics(t, func() { NewGraph(true).Scale(x, 2) })
}

func TestConvOutput(t *testing.T) {
	out, err := ConvOutput(tensor.MustShape(10, 10, 3), 3, 3, 4, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.MustShape(8, 8, 4), out)

	out, err = ConvOutput(tensor.MustShape(5, 5, 1), 3, 3, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.MustShape(3, 3, 2), out)

	_, err = ConvOutput(tensor.MustShape(2, 2, 1), 3, 3, 1, 2, 0)
	require.ErrorIs(t, err, tensor.ErrInvalidShape)

	_, err = ConvOutput(tensor.MustShape(4, 4, 1), 3, 3, 1, 0, 0)
	require.ErrorIs(t, err, tensor.ErrInvalidShape)
}

func TestConvolve_KnownValues(t *testing.T) {
	g := NewGraph(true)
	// 3x3 single-channel input 1..9, one 2x2 filter of ones, bias 0.5
	input, err := tensor.FromSlice(tensor.MustShape(3, 3, 1), []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	filter := tensor.Full(tensor.MustShape(2, 2, 1), 1)
	bias := vec(0.5)

	out := g.Convolve(input, []*tensor.Value{filter}, bias, 1, 0)
	require.Equal(t, tensor.MustShape(2, 2, 1), out.Shape())
	assert.Equal(t, []float32{12.5, 16.5, 24.5, 28.5}, out.Data())

	seedOnes(out)
	g.Backward()
	assert.Equal(t, []float32{4}, bias.Gradient())
	assert.Equal(t, []float32{12, 16, 24, 28}, filter.Gradient())
	assert.Equal(t, []float32{1, 2, 1, 2, 4, 2, 1, 2, 1}, input.Gradient())
}

// Large enough that the forward pass splits output rows across workers.
func TestConvolve_LargeMatchesDirectSum(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	in := tensor.MustShape(40, 40, 4)
	input := tensor.Random(in, 1, rng)
	filters := make([]*tensor.Value, 8)
	for i := range filters {
		filters[i] = tensor.Random(tensor.MustShape(3, 3, 4), 1, rng)
	}
	bias := tensor.Random(tensor.MustShape(8), 1, rng)
	require.LessOrEqual(t, 2*convRows(filters[0].Shape(), tensor.MustShape(40, 40, 8)).MinChunkSize, 40)

	out := NewGraph(false).Convolve(input, filters, bias, 1, 2)
	require.Equal(t, tensor.MustShape(40, 40, 8), out.Shape())

	for oy := 0; oy < 40; oy++ {
		for ox := 0; ox < 40; ox++ {
			for k, f := range filters {
				want := float64(bias.Data()[k])
				for fy := 0; fy < 3; fy++ {
					for fx := 0; fx < 3; fx++ {
						y, x := oy+fy-1, ox+fx-1
						if y < 0 || y >= in.H || x < 0 || x >= in.W {
							continue
						}
						for d := 0; d < in.D; d++ {
							want += float64(f.At(fy, fx, d)) * float64(input.At(y, x, d))
						}
					}
				}
				require.InDelta(t, want, out.At(oy, ox, k), 1e-4, "(%d,%d,%d)", oy, ox, k)
			}
		}
	}
}

func TestMaxPool_RoutesToWinner(t *testing.T) {
	g := NewGraph(true)
	input, err := tensor.FromSlice(tensor.MustShape(2, 2, 1), []float32{1, 4, 3, 2})
	require.NoError(t, err)

	out := g.MaxPool(input, 2, 2)
	require.Equal(t, []float32{4}, out.Data())

	out.Gradient()[0] = 3
	g.Backward()
	assert.Equal(t, []float32{0, 3, 0, 0}, input.Gradient())
}

func TestMaxPool_NonFiniteWindows(t *testing.T) {
	inf, nan := float32(math.Inf(-1)), float32(math.NaN())
	tests := []struct {
		name   string
		window []float32
		winner int
		check  func(t *testing.T, v float32)
	}{
		{"all -Inf", []float32{inf, inf, inf, inf}, 0, func(t *testing.T, v float32) { assert.True(t, math.IsInf(float64(v), -1)) }},
		{"all NaN", []float32{nan, nan, nan, nan}, 0, func(t *testing.T, v float32) { assert.True(t, math.IsNaN(float64(v))) }},
		{"NaN then number", []float32{nan, -3, nan, -5}, 1, func(t *testing.T, v float32) { assert.Equal(t, float32(-3), v) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, recording := range []bool{true, false} {
				input, err := tensor.FromSlice(tensor.MustShape(2, 2, 1), tt.window)
				require.NoError(t, err)

				g := NewGraph(recording)
				var out *tensor.Value
				require.NotPanics(t, func() { out = g.MaxPool(input, 2, 2) })
				tt.check(t, out.Data()[0])

				if recording {
					out.Gradient()[0] = 1
					g.Backward()
					want := make([]float32, 4)
					want[tt.winner] = 1
					assert.Equal(t, want, input.Gradient())
				}
			}
		})
	}
}

func TestSplitConcatDepth_RoundTrip(t *testing.T) {
	g := NewGraph(true)
	a, err := tensor.FromSlice(tensor.MustShape(1, 2, 4), []float32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)

	parts := g.SplitDepth(a, 2)
	require.Len(t, parts, 2)
	assert.Equal(t, []float32{1, 2, 5, 6}, parts[0].Data())
	assert.Equal(t, []float32{3, 4, 7, 8}, parts[1].Data())
	assert.Equal(t, 1, g.Len(), "split records a single closure")

	joined := g.ConcatDepth(parts[0], parts[1])
	assert.Equal(t, a.Data(), joined.Data())

	for i := range joined.Gradient() {
		joined.Gradient()[i] = float32(i)
	}
	g.Backward()
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5, 6, 7}, a.Gradient())
}

func TestDropout(t *testing.T) {
	x := tensor.Full(tensor.MustShape(1000), 1)

	same := NewGraph(false).Dropout(x, 0.5, rand.New(rand.NewSource(1)))
	assert.Same(t, x, same)

	g := NewGraph(true)
	out := g.Dropout(x, 0.5, rand.New(rand.NewSource(1)))
	kept := 0
	for _, v := range out.Data() {
		if v != 0 {
			assert.Equal(t, float32(2), v)
			kept++
		}
	}
	assert.InDelta(t, 500, kept, 60)

	seedOnes(out)
	g.Backward()
	for i, v := range out.Data() {
		assert.Equal(t, v, x.Gradient()[i])
	}
}

// checkGradients compares analytic gradients of L = 0.5·Σ out² against
// central finite differences for every element of every input.
func checkGradients(t *testing.T, build func(g *Graph) *tensor.Value, inputs ...*tensor.Value) {
	t.Helper()

	loss := func() float64 {
		out := build(NewGraph(false))
		var l float64
		for _, v := range out.Data() {
			l += 0.5 * float64(v) * float64(v)
		}
		return l
	}

	for _, in := range inputs {
		in.ClearGradient()
	}
	g := NewGraph(true)
	out := build(g)
	copy(out.Gradient(), out.Data())
	g.Backward()

	for n, in := range inputs {
		for i := range in.Data() {
			orig := in.Data()[i]
			f := func(x float64) float64 {
				in.Data()[i] = float32(x)
				defer func() { in.Data()[i] = orig }()
				return loss()
			}
			want := fd.Derivative(f, float64(orig), &fd.Settings{Formula: fd.Central, Step: 1e-2})
			got := float64(in.Gradient()[i])
			rel := math.Abs(got-want) / math.Max(math.Max(math.Abs(got), math.Abs(want)), 1)
			assert.Less(t, rel, 1e-3, "input %d element %d: analytic %v numeric %v", n, i, got, want)
		}
	}
}

func TestGradientCheck_DenseTanh(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	w := tensor.Random(tensor.MustShape(3, 4), 0.5, rng)
	b := tensor.Random(tensor.MustShape(3), 0.5, rng)
	x := tensor.Random(tensor.MustShape(4), 1, rng)

	checkGradients(t, func(g *Graph) *tensor.Value {
		return g.Activate(g.Add(g.MatMul(w, x), b), activation.Tanh)
	}, w, b, x)
}

func TestGradientCheck_PaddedConvSigmoid(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	input := tensor.Random(tensor.MustShape(5, 5, 2), 1, rng)
	filters := []*tensor.Value{
		tensor.Random(tensor.MustShape(3, 3, 2), 0.3, rng),
		tensor.Random(tensor.MustShape(3, 3, 2), 0.3, rng),
	}
	bias := tensor.Random(tensor.MustShape(2), 0.1, rng)

	checkGradients(t, func(g *Graph) *tensor.Value {
		c := g.Convolve(input, filters, bias, 1, 2)
		return g.Activate(c, activation.Sigmoid)
	}, input, filters[0], filters[1], bias)
}

func TestGradientCheck_ScaleByConcat(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	a := tensor.Random(tensor.MustShape(3), 1, rng)
	b := tensor.Random(tensor.MustShape(3), 1, rng)
	s := tensor.Random(tensor.MustShape(2), 1, rng)

	checkGradients(t, func(g *Graph) *tensor.Value {
		re := g.Sub(g.ScaleBy(a, s, 0), g.ScaleBy(b, s, 1))
		im := g.Add(g.ScaleBy(a, s, 1), g.ScaleBy(b, s, 0))
		return g.Concat(g.Mul(re, re), im)
	}, a, b, s)
}
