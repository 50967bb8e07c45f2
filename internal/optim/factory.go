package optim

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownOptimizer is returned by New for an unrecognized name.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// Names lists the optimizer names New accepts.
var Names = []string{"adam", "adamax", "nesterov", "rmsprop"}

// New creates an optimizer by name with default configuration.
// logger may be nil.
func New(name string, logger *slog.Logger) (Optimizer, error) {
	switch strings.ToLower(name) {
	case "adam":
		return NewAdam(AdamConfig{}).WithLogger(logger), nil
	case "adamax":
		return NewAdamax(AdamaxConfig{}).WithLogger(logger), nil
	case "nesterov":
		return NewNesterov(NesterovConfig{}).WithLogger(logger), nil
	case "rmsprop":
		return NewRMSProp(RMSPropConfig{}).WithLogger(logger), nil
	default:
		return nil, errors.Wrapf(ErrUnknownOptimizer, "%q (want one of %s)", name, strings.Join(Names, ", "))
	}
}
