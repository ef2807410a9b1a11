package nestedset

import "errors"

// ErrNotFound indicates a referenced node id does not exist.
var ErrNotFound = errors.New("node not found")

// ErrInvariantViolation indicates an operation would break the
// nested-set invariants (negative interval width, axis overflow, moving
// a node into its own subtree, saving a node without an id). The
// operation is aborted with no partial writes.
var ErrInvariantViolation = errors.New("nested-set invariant violation")

// ErrConfiguration indicates the manager was constructed without a
// required collaborator. Fatal, never retried.
var ErrConfiguration = errors.New("invalid configuration")
