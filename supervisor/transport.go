package supervisor

import (
	"context"

	"github.com/webots/supervisor/wire"
)

// Transport is the external collaborator the engine depends on: a
// request builder with append primitives, a step lock, and a flush
// operation that exchanges the accumulated frame for the simulator's
// reply. Simulator-side semantics are out of scope for this module;
// Transport is the seam a concrete implementation (transport/tcp) fills
// in, or a test double (supervisor/faketransport_test.go) fills in for
// the testable properties in spec.md §8.
type Transport interface {
	// Lock acquires the step mutex. Flush is the only point at which a
	// caller may block for an unbounded time; every other Engine method
	// completes without suspending.
	Lock()
	Unlock()

	// Writer returns the frame builder for the step currently in
	// progress. The same *wire.Writer is returned for every call made
	// between a Lock and the following Flush.
	Writer() *wire.Writer

	// Flush sends the accumulated frame and blocks until the
	// simulator's reply for this step is available, returning a reader
	// positioned at the start of the reply payload. The writer is reset
	// for the next step as a side effect.
	Flush(ctx context.Context) (*wire.Reader, error)
}
