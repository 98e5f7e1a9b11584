// Package vault implements the encrypted multi-node storage client: the
// write and read coordinators, the cluster delete, and the collection
// router that maps logical collection names to node-side schemas.
//
// # Write path
//
// A write splits every protected field into one share per node, assembles
// one partial record per node, mints one node-scoped token per node, and
// dispatches all node writes concurrently. The write reports success if and
// only if every node acknowledged. There is no retry; on a non-unanimous
// write the coordinator attempts a best-effort cleanup of the shares that
// did land and reports ErrPartialWrite, after which the caller must treat
// the record as nonexistent.
//
// # Read path
//
// A read dispatches one filtered read per node concurrently, groups the
// returned partial records strictly by record identifier, and reconstructs
// only the identifiers for which every node contributed a share of every
// protected field. Incomplete identifiers are dropped, never surfaced
// partially. A node outage reduces completeness instead of failing the
// read - an availability-over-consistency choice - and the result's
// per-node statuses make that degradation visible to the caller.
//
// # Topology
//
// The node set is fixed for the lifetime of the sharing engine's cluster
// key. Adding or removing a node invalidates reconstruction of previously
// written data; the client refuses to start against a topology that does
// not match its engine rather than guessing.
package vault
