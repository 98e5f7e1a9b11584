package nodesim

import (
	"reflect"
	"sync"

	"github.com/gabrielantonyxaviour/jedi-vault/interfaces"
)

// Store is the in-memory record storage of a dev node, keyed by schema.
// A create under an already stored identifier overwrites the previous
// partial record, which is what lets callers reuse an identifier to update
// a logical record.
type Store struct {
	mu      sync.RWMutex
	schemas map[interfaces.SchemaID][]interfaces.PartialRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{schemas: make(map[interfaces.SchemaID][]interfaces.PartialRecord)}
}

// Create stores partial records under a schema, overwriting any existing
// record with the same identifier.
func (s *Store) Create(schema interfaces.SchemaID, records []interfaces.PartialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.schemas[schema]
	for _, record := range records {
		id, err := record.ID()
		if err != nil {
			// Records without an identifier are stored append-only.
			existing = append(existing, record)
			continue
		}
		replaced := false
		for i, prev := range existing {
			if prevID, err := prev.ID(); err == nil && prevID == id {
				existing[i] = record
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, record)
		}
	}
	s.schemas[schema] = existing
}

// Read returns the records under a schema matching every filter criterion
// exactly. An empty filter matches everything.
func (s *Store) Read(schema interfaces.SchemaID, filter interfaces.Filter) []interfaces.PartialRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []interfaces.PartialRecord
	for _, record := range s.schemas[schema] {
		if matches(record, filter) {
			out = append(out, record)
		}
	}
	return out
}

// Delete removes matching records and returns how many were removed.
func (s *Store) Delete(schema interfaces.SchemaID, filter interfaces.Filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.schemas[schema][:0]
	removed := 0
	for _, record := range s.schemas[schema] {
		if matches(record, filter) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	s.schemas[schema] = kept
	return removed
}

// matches applies exact per-key equality. Both sides come out of JSON
// decoding, so share objects compare as maps and everything else as
// primitive values.
func matches(record interfaces.PartialRecord, filter interfaces.Filter) bool {
	for key, want := range filter {
		have, ok := record[key]
		if !ok || !reflect.DeepEqual(have, want) {
			return false
		}
	}
	return true
}
