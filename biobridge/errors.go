package biobridge

import "errors"

var (
	// ErrInvalidMaxPreservedCapacity is returned by ShimConfig.Validate
	// when MaxPreservedCapacity is neither Unbounded nor a nonnegative
	// integer.
	ErrInvalidMaxPreservedCapacity = errors.New("biobridge: max preserved capacity must be Unbounded or >= 0")

	// ErrInvalidInitialOutboundCapacity is returned by ShimConfig.Validate
	// when InitialOutboundCapacity is negative.
	ErrInvalidInitialOutboundCapacity = errors.New("biobridge: initial outbound capacity must be >= 0")

	// errVTableAlreadyDestroyed is logged when Release fires more than
	// once for the same retained handle; it indicates a caller-side
	// refcounting bug, not a shim bug.
	errVTableAlreadyDestroyed = errors.New("biobridge: vtable released more times than it was retained")
)
