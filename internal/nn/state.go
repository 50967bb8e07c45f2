package nn

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/serialization"
	"github.com/born-ml/tapenet/internal/tensor"
)

// StateDict returns the live parameter values keyed "<layer>.<name>".
func (n *Network) StateDict() map[string]*tensor.Value {
	named := n.NamedParameters()
	out := make(map[string]*tensor.Value, len(named))
	for _, p := range named {
		out[p.Name] = p.Value
	}
	return out
}

// LoadStateDict copies data from state into the matching parameters.
//
// Every parameter must be present with the same shape, and state must
// not hold names the network lacks. Nothing is copied unless the whole
// dictionary matches.
func (n *Network) LoadStateDict(state map[string]*tensor.Value) error {
	named := n.NamedParameters()
	for _, p := range named {
		src, ok := state[p.Name]
		if !ok {
			return errors.Wrapf(ErrMissingParameter, "%q", p.Name)
		}
		if src.Shape() != p.Value.Shape() {
			return errors.Wrapf(tensor.ErrShapeMismatch, "%q: network has %v, state has %v", p.Name, p.Value.Shape(), src.Shape())
		}
	}
	if len(state) != len(named) {
		known := make(map[string]struct{}, len(named))
		for _, p := range named {
			known[p.Name] = struct{}{}
		}
		var extra []string
		for name := range state {
			if _, ok := known[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return errors.Wrapf(ErrUnexpectedParameter, "%q", extra)
	}

	for _, p := range named {
		if err := p.Value.Import(state[p.Name].Data()); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the network parameters as a serialization bundle. Only
// data and shapes are written; gradients and optimizer moments are not.
func (n *Network) Save(w io.Writer, metadata map[string]string) error {
	entries, opts := n.bundle(metadata)
	_, err := serialization.Write(w, entries, opts)
	return err
}

// SaveFile is Save to a file at path. The file is closed before
// SaveFile returns, and a failed close is reported.
func (n *Network) SaveFile(path string, metadata map[string]string) error {
	entries, opts := n.bundle(metadata)
	_, err := serialization.WriteFile(path, entries, opts)
	return err
}

func (n *Network) bundle(metadata map[string]string) ([]serialization.Entry, serialization.WriteOptions) {
	named := n.NamedParameters()
	entries := make([]serialization.Entry, len(named))
	for i, p := range named {
		entries[i] = serialization.Entry{Name: p.Name, Shape: p.Value.Shape(), Data: p.Value.Data()}
	}
	in := n.inputShape
	return entries, serialization.WriteOptions{
		Kind:       "network",
		InputShape: &in,
		Metadata:   metadata,
	}
}

// Load reads a bundle written by Save into this network's parameters.
// The network must already have the same architecture.
func (n *Network) Load(r io.Reader) (serialization.Header, error) {
	bundle, err := serialization.Read(r, serialization.ReaderOptions{ValidationLevel: serialization.ValidationStrict})
	if err != nil {
		return serialization.Header{}, err
	}
	if dims := bundle.Header.InputShape; dims != nil {
		in, err := serialization.ShapeFromDims(dims)
		if err != nil {
			return serialization.Header{}, err
		}
		if in != n.inputShape {
			return serialization.Header{}, errors.Wrapf(tensor.ErrShapeMismatch,
				"bundle input shape %v, network input shape %v", in, n.inputShape)
		}
	}

	state := make(map[string]*tensor.Value, len(bundle.Entries))
	for _, e := range bundle.Entries {
		v, err := tensor.FromSlice(e.Shape, e.Data)
		if err != nil {
			return serialization.Header{}, errors.Wrapf(err, "%q", e.Name)
		}
		state[e.Name] = v
	}
	if err := n.LoadStateDict(state); err != nil {
		return serialization.Header{}, err
	}
	return bundle.Header, nil
}
