package interfaces

import "context"

// NodeStatus classifies the outcome of one node's branch of a fan-out
// operation. Zero matches and node failure are deliberately kept apart so
// the aggregator can report degraded reads instead of conflating an outage
// with a legitimately empty result.
type NodeStatus int

const (
	// NodeOK means the node answered the request successfully.
	NodeOK NodeStatus = iota
	// NodeUnreachable means the request never produced a node response.
	NodeUnreachable
	// NodeRejected means the node answered with an authentication or
	// validation failure.
	NodeRejected
)

// String returns the status name for logging.
func (s NodeStatus) String() string {
	switch s {
	case NodeOK:
		return "ok"
	case NodeUnreachable:
		return "unreachable"
	case NodeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ReadOutcome is one node's contribution to a read: its status, the partial
// records it matched, and the underlying error for non-OK statuses.
type ReadOutcome struct {
	Status  NodeStatus
	Records []PartialRecord
	Err     error
}

// ReadResult is the joined result of a cluster read. Records holds only
// fully reconstructed records, in no particular order. NodeStatuses reports
// every node's branch so callers can detect degraded reads. Dropped counts
// identifiers discarded for missing shares or reconstruction failures.
type ReadResult struct {
	Records      []Record
	NodeStatuses map[NodeID]NodeStatus
	Dropped      int
}

// Degraded reports whether any node failed to contribute to the read.
func (r *ReadResult) Degraded() bool {
	for _, st := range r.NodeStatuses {
		if st != NodeOK {
			return true
		}
	}
	return false
}

// TokenIssuer mints short-lived node-scoped bearer credentials. One token
// per node per operation, freshly signed every time; there is no cache.
type TokenIssuer interface {
	// IssueTokens returns one token per descriptor, in descriptor order,
	// each bound to that node's identity as audience. Any signing problem
	// fails the whole batch with ErrSigningFailure.
	IssueTokens(nodes []NodeDescriptor) ([]BearerToken, error)
}

// SecretSharer splits protected field values into per-node shares and
// recombines complete share sets. Implementations own the cluster key and
// must initialize it at most once per process even under concurrent use.
type SecretSharer interface {
	// Split produces exactly one share per configured node. The accepted
	// value type depends on kind: string for FieldSecret and
	// FieldSecretMatch, int64 for FieldSecretSum.
	Split(kind FieldKind, value any) ([]Share, error)

	// Combine reconstructs the original value from a complete share set.
	// It fails with ErrInsufficientShares when given a share count other
	// than the configured node count, and with ErrReconstruction or
	// ErrBadShare when a complete set still cannot be combined.
	Combine(kind FieldKind, shares []Share) (any, error)

	// MatchShare returns the deterministic share a given node holds for a
	// FieldSecretMatch value, used to build node-side equality filters.
	MatchShare(value string, nodeIndex int) (Share, error)

	// Nodes returns the node count the cluster key is bound to.
	Nodes() int
}

// NodeCaller performs one authenticated call against one node. All failure
// modes are normalized into the uniform outcome types; implementations do
// not retry.
type NodeCaller interface {
	Create(ctx context.Context, node NodeDescriptor, token BearerToken, schema SchemaID, record PartialRecord) error
	Read(ctx context.Context, node NodeDescriptor, token BearerToken, schema SchemaID, filter Filter) ReadOutcome
	Delete(ctx context.Context, node NodeDescriptor, token BearerToken, schema SchemaID, filter Filter) error
}

// SecretVault is the storage client surface consumed by the rest of the
// system. Field values handed to Write are already validated by the caller.
type SecretVault interface {
	// Write splits protected fields, fans one partial record out to every
	// node and succeeds only if all nodes acknowledge. On failure the
	// record must be treated as nonexistent.
	Write(ctx context.Context, collection string, fields map[string]any) (RecordID, error)

	// WriteWithID behaves like Write under a caller-supplied identifier,
	// the only way to overwrite an existing record.
	WriteWithID(ctx context.Context, collection string, id RecordID, fields map[string]any) error

	// Read fans a filtered read out to every node and reconstructs the
	// records for which every node contributed a share.
	Read(ctx context.Context, collection string, filter Filter) (*ReadResult, error)

	// Delete removes matching records from every node, all-or-nothing.
	Delete(ctx context.Context, collection string, filter Filter) error
}
