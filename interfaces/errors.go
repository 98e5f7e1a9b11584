package interfaces

import "errors"

// Failure taxonomy of the storage client. Callers react to these with
// errors.Is; coordinators wrap them with operation context.
var (
	// ErrSigningFailure means no token could be minted. It is fatal to the
	// whole operation and is surfaced before any network call is made.
	ErrSigningFailure = errors.New("token signing failed")

	// ErrNodeUnreachable is a network-level failure talking to one node.
	ErrNodeUnreachable = errors.New("node unreachable")

	// ErrNodeRejected means one node reported an authentication or
	// validation failure for an otherwise delivered request.
	ErrNodeRejected = errors.New("node rejected request")

	// ErrPartialWrite means fewer than all configured nodes acknowledged a
	// write. Some nodes may already have persisted their share; the record
	// must be treated as nonexistent since it cannot be reconstructed.
	ErrPartialWrite = errors.New("write not acknowledged by all nodes")

	// ErrPartialDelete means fewer than all configured nodes acknowledged a
	// delete.
	ErrPartialDelete = errors.New("delete not acknowledged by all nodes")

	// ErrInsufficientShares means fewer shares than configured nodes were
	// available for a field at reconstruction time.
	ErrInsufficientShares = errors.New("insufficient shares for reconstruction")

	// ErrReconstruction means combining a complete share set still failed,
	// for example because a share was corrupted in node-side storage.
	ErrReconstruction = errors.New("share reconstruction failed")

	// ErrBadShare means a share could not be decoded at all.
	ErrBadShare = errors.New("malformed share")

	// ErrUnknownCollection means no schema mapping exists for a collection.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnknownField means a record carries a field the collection spec
	// does not declare.
	ErrUnknownField = errors.New("field not declared in collection spec")
)
