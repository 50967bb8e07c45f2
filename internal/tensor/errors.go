package tensor

import "github.com/pkg/errors"

// Sentinel errors. Callers match them with errors.Is; the wrapped message
// names the offending shapes or lengths.
var (
	// ErrInvalidShape reports a configuration error: a non-positive axis,
	// rank above three, or a layer whose derived output would be empty.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrShapeMismatch reports a value whose shape differs from the declared one.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrLengthMismatch reports a buffer whose length differs from the volume.
	ErrLengthMismatch = errors.New("buffer length mismatch")

	// ErrInferenceOnly reports training use of a value whose training state was released.
	ErrInferenceOnly = errors.New("value is inference-only")
)
