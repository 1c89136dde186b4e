package implicit

import (
	"errors"

	"github.com/gogpu/implicit/internal/subtape"
	"github.com/gogpu/implicit/kernel"
)

// Errors returned by Build and Renderable methods.
var (
	// ErrEmptyTape is returned by Build for a tape without clauses.
	ErrEmptyTape = errors.New("implicit: empty tape")

	// ErrInvalidSize is returned by Build for a non-positive image size.
	ErrInvalidSize = errors.New("implicit: image size must be positive")

	// ErrInvalidDimension is returned by Build for a dimension other than 2 or 3.
	ErrInvalidDimension = errors.New("implicit: dimension must be 2 or 3")

	// ErrInvalidTileSizes is returned by Build when the region sizes do not
	// form a strictly decreasing chain of divisors.
	ErrInvalidTileSizes = errors.New("implicit: invalid tile sizes")

	// ErrAllocation is returned by Build when the buffers of a Renderable
	// would exceed the configured memory limit.
	ErrAllocation = errors.New("implicit: allocation failed")

	// ErrClosed is returned when a closed Renderable is used.
	ErrClosed = errors.New("implicit: renderable is closed")

	// ErrExhausted is returned by Run when the subtape pool runs out of
	// chunks. Enlarge the pool with WithSubtapeChunks.
	ErrExhausted = subtape.ErrExhausted

	// ErrNoDevice is returned by RunKernel on machines without a GPU.
	ErrNoDevice = kernel.ErrNoDevice
)
