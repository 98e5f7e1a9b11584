// Package interfaces defines the core interfaces and types for the secret
// vault storage client. It provides the contract between different components
// without implementation details.
package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RecordIDKey is the reserved field name carrying the record identifier in a
// partial record. It is stored as plaintext on every node and is never split.
const RecordIDKey = "_id"

// ShareKey is the JSON object key wrapping a single share inside a partial
// record field: {"%share": "<encoded share>"}.
const ShareKey = "%share"

// RecordID uniquely identifies a logical record across all nodes.
// The write coordinator mints it; nodes never assign identifiers.
type RecordID string

// NewRecordID mints a fresh random record identifier.
func NewRecordID() RecordID {
	return RecordID(uuid.Must(uuid.NewRandom()).String())
}

// NewRecordIDFromString validates and converts a string into a RecordID.
func NewRecordIDFromString(s string) (RecordID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid record id %q: %w", s, err)
	}
	return RecordID(s), nil
}

// String returns the identifier as a string.
func (id RecordID) String() string {
	return string(id)
}

// NodeID identifies a single storage node. It doubles as the audience claim
// of the bearer token minted for that node and as the routing key for
// per-node outcomes.
type NodeID string

// String returns the node identity as a string.
func (id NodeID) String() string {
	return string(id)
}

// SchemaID is the node-side schema identifier a logical collection maps to.
type SchemaID string

// String returns the schema identifier as a string.
func (id SchemaID) String() string {
	return string(id)
}

// BearerToken is a signed credential presented to exactly one node.
type BearerToken string

// String returns the token in its compact serialized form.
func (t BearerToken) String() string {
	return string(t)
}

// Share is one encoded fragment of a secret-split field value. A share in
// isolation leaks nothing usable; reconstruction needs the share held by
// every configured node for the same field of the same record.
type Share string

// String returns the encoded share.
func (s Share) String() string {
	return string(s)
}

// NodeDescriptor holds the identity and base address of one storage node.
type NodeDescriptor struct {
	ID      NodeID `json:"id"`
	BaseURL string `json:"url"`
}

// Validate checks that the descriptor carries an identity and a usable
// http(s) base URL.
func (n NodeDescriptor) Validate() error {
	if n.ID == "" {
		return errors.New("node descriptor missing identity")
	}
	u, err := url.Parse(n.BaseURL)
	if err != nil {
		return fmt.Errorf("node %s: invalid base url: %w", n.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("node %s: unsupported url scheme %q", n.ID, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("node %s: base url missing host", n.ID)
	}
	return nil
}

// FieldKind declares how a field is persisted across the cluster.
type FieldKind int

const (
	// FieldPlaintext fields are stored verbatim, identically, at every node.
	FieldPlaintext FieldKind = iota

	// FieldSecret fields are split into opaque shares: store and retrieve
	// only, no node-side capabilities.
	FieldSecret

	// FieldSecretMatch fields are split into deterministic shares so
	// node-side filters can match on them without reconstruction.
	FieldSecretMatch

	// FieldSecretSum fields hold integers split into additive shares that
	// can be summed without full reconstruction.
	FieldSecretSum
)

// String returns the kind name as used in cluster configuration files.
func (k FieldKind) String() string {
	switch k {
	case FieldPlaintext:
		return "plaintext"
	case FieldSecret:
		return "secret"
	case FieldSecretMatch:
		return "secret-match"
	case FieldSecretSum:
		return "secret-sum"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Protected reports whether values of this kind are split into shares.
func (k FieldKind) Protected() bool {
	return k != FieldPlaintext
}

// ParseFieldKind converts a configuration string into a FieldKind.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plaintext", "plain", "":
		return FieldPlaintext, nil
	case "secret", "store":
		return FieldSecret, nil
	case "secret-match", "match":
		return FieldSecretMatch, nil
	case "secret-sum", "sum":
		return FieldSecretSum, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", s)
	}
}

// FieldSpec describes one named field of a collection.
type FieldSpec struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"-"`
}

type fieldSpecJSON struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// MarshalJSON encodes the field kind under its configuration name.
func (f FieldSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldSpecJSON{Name: f.Name, Kind: f.Kind.String()})
}

// UnmarshalJSON decodes the field kind from its configuration name.
func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	var raw fieldSpecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseFieldKind(raw.Kind)
	if err != nil {
		return fmt.Errorf("field %q: %w", raw.Name, err)
	}
	f.Name = raw.Name
	f.Kind = kind
	return nil
}

// CollectionSpec maps a logical collection to its node-side schema and
// declares the protection kind of every field.
type CollectionSpec struct {
	Schema SchemaID    `json:"schema"`
	Fields []FieldSpec `json:"fields"`
}

// Field looks up the spec for a named field.
func (c CollectionSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks the collection spec for a schema identifier, unique field
// names, and no use of the reserved identifier field.
func (c CollectionSpec) Validate() error {
	if c.Schema == "" {
		return errors.New("collection spec missing schema identifier")
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return errors.New("collection spec contains unnamed field")
		}
		if f.Name == RecordIDKey {
			return fmt.Errorf("field name %q is reserved", RecordIDKey)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q in collection spec", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// PartialRecord is the payload exchanged with exactly one node: the record
// identifier, every plaintext field verbatim, and that node's single share
// for each protected field. Protected fields are JSON objects of the form
// {"%share": "<encoded>"}, plaintext fields are bare strings.
type PartialRecord map[string]any

// ID extracts the record identifier from the partial record.
func (p PartialRecord) ID() (RecordID, error) {
	raw, ok := p[RecordIDKey]
	if !ok {
		return "", errors.New("partial record missing " + RecordIDKey)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("partial record %s is %T, want string", RecordIDKey, raw)
	}
	return RecordID(s), nil
}

// Share extracts the share stored under a protected field, if present.
func (p PartialRecord) Share(field string) (Share, bool) {
	raw, ok := p[field]
	if !ok {
		return "", false
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}
	enc, ok := obj[ShareKey].(string)
	if !ok {
		return "", false
	}
	return Share(enc), true
}

// Plaintext extracts a plaintext field value, if present.
func (p PartialRecord) Plaintext(field string) (string, bool) {
	s, ok := p[field].(string)
	return s, ok
}

// SetShare stores a share under a protected field.
func (p PartialRecord) SetShare(field string, s Share) {
	p[field] = map[string]any{ShareKey: s.String()}
}

// Record is a fully reconstructed logical record. Field values are strings
// for plaintext, secret and secret-match fields, and int64 for secret-sum
// fields.
type Record struct {
	ID     RecordID
	Fields map[string]any
}

// Filter is an opaque set of match criteria passed through verbatim to every
// node. Filtering happens node-side against each node's own shares, so
// values for secret-match fields must already be in share form.
type Filter map[string]any
