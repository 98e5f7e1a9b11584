// Package nodesim implements a single storage node behind the vault wire
// protocol, backed by an in-memory store.
//
// It exists for development and testing: the client's fan-out semantics -
// token audience binding, all-or-nothing writes, reads degraded by a node
// outage - are only observable against real node endpoints, and nodesim
// provides those endpoints without any external infrastructure. Production
// deployments talk to real storage nodes instead.
//
// Each node verifies the caller's bearer token, enforces that the token's
// audience names this specific node, and serves exact-match filtered
// create/read/delete over schema-keyed partial records.
package nodesim
