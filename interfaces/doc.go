// Package interfaces defines the types and contracts shared by the vault
// storage client components.
//
// The package deliberately contains no implementation: the secret-sharing
// engine, token issuer, node transport and coordinators all depend on this
// package and never on each other's concrete types, which keeps every
// component independently testable with fakes.
//
// # Core types
//
//   - RecordID, NodeID, SchemaID, BearerToken, Share - typed string wrappers
//     for the identifiers flowing through the system
//   - PartialRecord - the single-node payload: identifier, plaintext fields
//     and one share per protected field
//   - CollectionSpec / FieldSpec - per-collection schema mapping and field
//     protection kinds
//
// # Contracts
//
//   - SecretSharer - split/combine of protected field values
//   - TokenIssuer - per-operation node-scoped credential minting
//   - NodeCaller - one authenticated HTTP call against one node
//   - SecretVault - the write/read/delete surface consumed by callers
//
// # Failure taxonomy
//
// The sentinel errors in this package (ErrSigningFailure, ErrPartialWrite,
// ErrInsufficientShares, ...) are the complete failure vocabulary of the
// client; coordinators wrap them with context and callers match with
// errors.Is.
package interfaces
