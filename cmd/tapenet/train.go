package main

import (
	"bytes"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/config"
	"github.com/born-ml/tapenet/internal/nn"
	"github.com/born-ml/tapenet/internal/optim"
	"github.com/born-ml/tapenet/internal/tensor"
)

//go:embed xor.yaml
var xorConfig []byte

type sample struct {
	input []float32
	class int
}

var xor = []sample{
	{[]float32{0, 0}, 0},
	{[]float32{0, 1}, 1},
	{[]float32{1, 0}, 1},
	{[]float32{1, 1}, 0},
}

func runTrain(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config (default: built-in XOR network)")
	out := fs.String("out", "xor.tnet", "Where to save the trained bundle (empty: don't save)")
	epochs := fs.Int("epochs", 0, "Override the config's epoch count")
	verbose := fs.Bool("v", false, "Log every epoch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(os.Stderr, *verbose)

	var (
		cfg *config.Config
		err error
	)
	if *configPath == "" {
		cfg, err = config.Load(bytes.NewReader(xorConfig))
	} else {
		cfg, err = config.LoadFile(*configPath)
	}
	if err != nil {
		return err
	}
	if *epochs > 0 {
		cfg.Epochs = *epochs
	}

	net, opt, err := cfg.Build(logger)
	if err != nil {
		return err
	}
	lossFn, err := xorLoss(cfg.Loss, net)
	if err != nil {
		return err
	}
	logger.Info("training", "layers", net.Len(), "params", net.NumParameters(),
		"optimizer", opt.Name(), "epochs", cfg.Epochs)

	hp := cfg.Optimizer.Hyperparams()
	g := autodiff.NewGraph(true)
	every := max(cfg.Epochs/10, 1)
	var loss float32
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		loss, err = trainEpoch(net, opt, hp, g, lossFn)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch+1)
		}
		if (epoch+1)%every == 0 {
			logger.Info("epoch", "n", epoch+1, "loss", loss)
		} else {
			logger.Debug("epoch", "n", epoch+1, "loss", loss)
		}
	}
	if n := opt.NaNCount(); n > 0 {
		logger.Warn("training produced NaN updates", "count", n)
	}

	correct, err := report(stdout, net, cfg.Loss)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "accuracy: %d/%d, final loss %.5f\n", correct, len(xor), loss)

	if *out == "" {
		return nil
	}
	err = net.SaveFile(*out, map[string]string{
		"optimizer":  opt.Name(),
		"loss":       cfg.Loss,
		"epochs":     strconv.Itoa(cfg.Epochs),
		"final_loss": strconv.FormatFloat(float64(loss), 'g', 6, 32),
	})
	if err != nil {
		return err
	}
	logger.Info("saved", "path", *out)
	return nil
}

type lossFunc func(out *tensor.Value, s sample) (float32, error)

// xorLoss checks that net can learn XOR under the named loss.
func xorLoss(name string, net *nn.Network) (lossFunc, error) {
	if net.InputShape().Volume() != 2 {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "xor needs 2 inputs, network takes %v", net.InputShape())
	}
	outs := net.OutputShape().Volume()
	switch name {
	case config.LossCrossEntropy:
		if outs != 2 {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "cross entropy over xor needs 2 outputs, network has %d", outs)
		}
		return func(out *tensor.Value, s sample) (float32, error) {
			return nn.SoftmaxCrossEntropy(out, s.class)
		}, nil
	default:
		if outs != 1 {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "mse over xor needs 1 output, network has %d", outs)
		}
		return func(out *tensor.Value, s sample) (float32, error) {
			return nn.MeanSquared(out, tensor.Full(out.Shape(), float32(s.class)))
		}, nil
	}
}

func trainEpoch(net *nn.Network, opt optim.Optimizer, hp optim.Hyperparams, g *autodiff.Graph, lossFn lossFunc) (float32, error) {
	var total float32
	for _, s := range xor {
		x, err := tensor.FromSlice(net.InputShape(), s.input)
		if err != nil {
			return 0, err
		}
		g.Restart(true)
		net.ResetState()
		out, err := net.Forward(x, g)
		if err != nil {
			return 0, err
		}
		loss, err := lossFn(out, s)
		if err != nil {
			return 0, err
		}
		g.Backward()
		opt.Update(net, hp)
		total += loss
	}
	return total / float32(len(xor)), nil
}

// report prints one prediction per sample and returns how many are right.
func report(w io.Writer, net *nn.Network, loss string) (int, error) {
	g := autodiff.NewGraph(false)
	correct := 0
	for _, s := range xor {
		x, err := tensor.FromSlice(net.InputShape(), s.input)
		if err != nil {
			return 0, err
		}
		net.ResetState()
		out, err := net.Forward(x, g)
		if err != nil {
			return 0, err
		}
		var predicted int
		if loss == config.LossCrossEntropy {
			if out.Data()[1] > out.Data()[0] {
				predicted = 1
			}
		} else if out.Data()[0] >= 0.5 {
			predicted = 1
		}
		if predicted == s.class {
			correct++
		}
		fmt.Fprintf(w, "%v -> %v (want %d)\n", s.input, out.Data(), s.class)
	}
	return correct, nil
}
