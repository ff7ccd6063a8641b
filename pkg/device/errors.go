package device

import "errors"

// Structural errors raised while declaring devices or assembling the
// system. None of them is recoverable for the current run: the caller
// fixes the declarations or the input data and reruns the pipeline.
var (
	// ErrDuplicateIdx indicates an element idx that already exists on the device.
	ErrDuplicateIdx = errors.New("device: duplicate element idx")

	// ErrUnknownIdx indicates a foreign-key value that matches no element
	// of the referenced device.
	ErrUnknownIdx = errors.New("device: unknown element idx")

	// ErrUnknownParameter indicates an element parameter the device never declared.
	ErrUnknownParameter = errors.New("device: unknown parameter")

	// ErrMissingParameter indicates a mandatory parameter that was not supplied.
	ErrMissingParameter = errors.New("device: missing mandatory parameter")

	// ErrMissingQuantity indicates an equation symbol that names no
	// quantity of the device.
	ErrMissingQuantity = errors.New("device: equation references unknown quantity")

	// ErrEquationCountMismatch indicates an imbalance between declared
	// variables and declared equations.
	ErrEquationCountMismatch = errors.New("device: equation count mismatch")

	// ErrUnsupportedComputeMode indicates a compute declaration with an
	// expansion mode the engine does not implement.
	ErrUnsupportedComputeMode = errors.New("device: unsupported compute mode")

	// ErrOrderingViolation indicates a declaration or pipeline stage that
	// ran out of order: a derived parameter depending on one declared
	// after it, an import of symbols or addresses that do not exist yet,
	// or setup and solve called in the wrong sequence.
	ErrOrderingViolation = errors.New("device: ordering violation")

	// ErrUnknownDevice indicates a reference to a device class missing
	// from the registry.
	ErrUnknownDevice = errors.New("device: unknown device class")
)
