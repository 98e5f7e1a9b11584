// Package nodeclient is the thin per-node transport of the vault storage
// client: one authenticated JSON-over-HTTP call per operation against one
// node's create, read or delete endpoint.
//
// The client normalizes every failure into the uniform taxonomy defined in
// the interfaces package. Transport-level failures map to ErrNodeUnreachable
// and non-2xx node responses to ErrNodeRejected; read outcomes carry an
// explicit per-node status so a node outage is never conflated with a node
// that legitimately matched nothing.
package nodeclient
