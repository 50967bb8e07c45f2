package autodiff

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/parallel"
	"github.com/born-ml/tapenet/internal/tensor"
)

// ConvOutput derives the output shape of a convolution of count filters
// of fh×fw over in.
//
//	out = floor((in - filter + pad) / stride) + 1
//
// pad is the total zero padding per spatial axis; pad/2 zeros lead and
// the rest trail. A non-positive stride or an empty output is a
// configuration error.
func ConvOutput(in tensor.Shape, fh, fw, count, stride, pad int) (tensor.Shape, error) {
	if fh <= 0 || fw <= 0 || count <= 0 {
		return tensor.Shape{}, errors.Wrapf(tensor.ErrInvalidShape, "conv: filters %dx%d x%d", fh, fw, count)
	}
	if stride <= 0 || pad < 0 {
		return tensor.Shape{}, errors.Wrapf(tensor.ErrInvalidShape, "conv: stride %d, pad %d", stride, pad)
	}
	spanH, spanW := in.H-fh+pad, in.W-fw+pad
	if spanH < 0 || spanW < 0 {
		return tensor.Shape{}, errors.Wrapf(tensor.ErrInvalidShape,
			"conv: filter %dx%d with pad %d does not fit input %v", fh, fw, pad, in)
	}
	return tensor.Shape{H: spanH/stride + 1, W: spanW/stride + 1, D: count}, nil
}

// Convolve slides each filter over input and adds the matching bias.
//
// Every filter has shape (fh, fw, input.D); bias has one element per
// filter. The output shape is ConvOutput(input, fh, fw, len(filters),
// stride, pad).
//
// Backward routes each output gradient element onto the input window,
// the filter and the bias that produced it.
func (g *Graph) Convolve(input *tensor.Value, filters []*tensor.Value, bias *tensor.Value, stride, pad int) *tensor.Value {
	if len(filters) == 0 {
		panic("convolve: no filters")
	}
	in, fs := input.Shape(), filters[0].Shape()
	if fs.D != in.D {
		panic(fmt.Sprintf("convolve: filter depth %d != input depth %d", fs.D, in.D))
	}
	if bias.Len() != len(filters) {
		panic(fmt.Sprintf("convolve: %d biases for %d filters", bias.Len(), len(filters)))
	}
	outShape, err := ConvOutput(in, fs.H, fs.W, len(filters), stride, pad)
	if err != nil {
		panic(err)
	}
	g.track(input, bias)
	g.track(filters...)

	out := tensor.New(outShape)
	lead := pad / 2
	od, bd := out.Data(), bias.Data()

	// Output rows write disjoint slices of od, so they run in parallel.
	parallel.For(outShape.H, func(oy int) {
		rowWindows(in, fs, outShape, stride, lead, oy, make([]window, 0, fs.H), func(ox int, rows []window) {
			for k, f := range filters {
				sum := bd[k]
				fdata, idata := f.Data(), input.Data()
				for _, r := range rows {
					sum += tensor.Dot(fdata[r.filter:r.filter+r.n], idata[r.input:r.input+r.n])
				}
				od[outShape.Index(oy, ox, k)] = sum
			}
		})
	}, convRows(fs, outShape))

	g.record(func() {
		og, bg := out.Gradient(), bias.Gradient()
		idata, igrad := input.Data(), input.Gradient()
		eachWindow(in, fs, outShape, stride, lead, func(oy, ox int, rows []window) {
			for k, f := range filters {
				d := og[outShape.Index(oy, ox, k)]
				if d == 0 {
					continue
				}
				bg[k] += d
				fdata, fgrad := f.Data(), f.Gradient()
				for _, r := range rows {
					tensor.Axpy(d, fdata[r.filter:r.filter+r.n], igrad[r.input:r.input+r.n])
					tensor.Axpy(d, idata[r.input:r.input+r.n], fgrad[r.filter:r.filter+r.n])
				}
			}
		})
	})
	return out
}

// window is one contiguous run shared by a filter row and an input row:
// the in-bounds columns of that row times the depth.
type window struct {
	input  int // offset into the input buffer
	filter int // offset into the filter buffer
	n      int // run length
}

// eachWindow visits every output position with the list of contiguous
// input/filter runs that overlap it, skipping padded zeros.
func eachWindow(in, fs, out tensor.Shape, stride, lead int, visit func(oy, ox int, rows []window)) {
	rows := make([]window, 0, fs.H)
	for oy := 0; oy < out.H; oy++ {
		rowWindows(in, fs, out, stride, lead, oy, rows, func(ox int, rows []window) {
			visit(oy, ox, rows)
		})
	}
}

// rowWindows is eachWindow for the single output row oy. rows is scratch
// space reused between positions.
func rowWindows(in, fs, out tensor.Shape, stride, lead, oy int, rows []window, visit func(ox int, rows []window)) {
	y0 := oy*stride - lead
	for ox := 0; ox < out.W; ox++ {
		x0 := ox*stride - lead
		xs, xe := max(x0, 0), min(x0+fs.W, in.W)
		rows = rows[:0]
		if xs < xe {
			for fy := 0; fy < fs.H; fy++ {
				y := y0 + fy
				if y < 0 || y >= in.H {
					continue
				}
				rows = append(rows, window{
					input:  in.Index(y, xs, 0),
					filter: fs.Index(fy, xs-x0, 0),
					n:      (xe - xs) * in.D,
				})
			}
		}
		visit(ox, rows)
	}
}

// convMinWork is the number of multiply-adds one goroutine should get
// before the forward pass splits output rows across workers.
const convMinWork = 1 << 15

// convRows sizes the row chunks of a forward pass so small convolutions
// stay on the calling goroutine.
func convRows(fs, out tensor.Shape) parallel.Config {
	cfg := parallel.DefaultConfig()
	perRow := max(out.W*out.D*fs.Volume(), 1)
	cfg.MinChunkSize = max(convMinWork/perRow, 1)
	return cfg
}
