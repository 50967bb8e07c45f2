package nn

import "github.com/pkg/errors"

// Network errors. Shape problems use the tensor sentinels.
var (
	ErrEmptyNetwork        = errors.New("network has no layers")
	ErrFrozen              = errors.New("layer configuration is frozen after the first forward pass")
	ErrMissingRand         = errors.New("learnable layer needs a random source")
	ErrMissingParameter    = errors.New("missing parameter")
	ErrUnexpectedParameter = errors.New("unexpected parameter")
	ErrUnknownKind         = errors.New("unknown layer kind")
)
