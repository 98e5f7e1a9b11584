// Package sharing implements the secret-sharing engine behind the vault
// storage client.
//
// A protected field value is split into exactly one share per configured
// node; reconstruction needs every node's share back. There is no
// sub-threshold recovery: the quorum is always the full node set, and the
// engine refuses share sets of any other size.
//
// # Share flavors
//
// Different fields need different downstream capabilities, so three flavors
// are supported:
//
//   - secret: Shamir splitting at an N-of-N threshold. Randomized; store
//     and retrieve only.
//   - secret-match: deterministic XOR sharing keyed by the cluster key.
//     Equal plaintexts produce identical share sets, so node-side equality
//     filters work without reconstruction.
//   - secret-sum: additive sharing of integers modulo 2^32. Shares can be
//     summed across records without reconstructing individual values.
//
// # Cluster key
//
// The engine generates its key material lazily, at most once per process,
// and binds it to a fixed node count. Changing the topology requires a new
// engine and makes data split under the old key unrecoverable; no migration
// mechanism is provided.
package sharing
