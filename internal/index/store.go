// Package index owns the authoritative requirement-to-code mapping and its
// persistence. The store is safe for concurrent use; the whole index is
// serialized to one JSON file after every mutation.
//
// Persistence is deliberately forgiving: a missing or corrupt index file
// loads as an empty index, and a failed save is logged while the in-memory
// state remains the source of truth. The index is an auxiliary structure,
// not a system of record.
package index

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/reqtrace/reqtrace/internal/debug"
	"github.com/reqtrace/reqtrace/internal/types"
)

// Store maps requirement identifiers to their ordered reference sequences.
type Store struct {
	mu       sync.RWMutex
	path     string
	mappings map[string][]types.CodeReference
}

// Load creates a store persisted at path and loads any existing content.
// Parse failures and a missing file both yield an empty, usable store.
func Load(path string) *Store {
	s := &Store{
		path:     path,
		mappings: make(map[string][]types.CodeReference),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			debug.Warnf("could not read index %s: %v\n", path, err)
		}
		return s
	}

	var loaded map[string][]types.CodeReference
	if err := json.Unmarshal(data, &loaded); err != nil {
		debug.Warnf("corrupt index %s, starting empty: %v\n", path, err)
		return s
	}

	s.mappings = loaded
	if s.mappings == nil {
		s.mappings = make(map[string][]types.CodeReference)
	}
	debug.LogIndex("loaded %d requirement mappings from %s\n", len(s.mappings), path)
	return s
}

// Rebuild discards the whole index and re-derives it from a full scan's
// associations, preserving scan order and deduplicating (file, symbol) pairs
// within each requirement. The result is persisted.
func (s *Store) Rebuild(refs []types.RequirementRef) {
	s.mu.Lock()
	s.mappings = make(map[string][]types.CodeReference)
	seen := make(map[string]map[types.Key]struct{})
	for _, rr := range refs {
		keys := seen[rr.Requirement]
		if keys == nil {
			keys = make(map[types.Key]struct{})
			seen[rr.Requirement] = keys
		}
		if _, dup := keys[rr.Ref.Key()]; dup {
			continue
		}
		keys[rr.Ref.Key()] = struct{}{}
		s.mappings[rr.Requirement] = append(s.mappings[rr.Requirement], rr.Ref)
	}
	s.mu.Unlock()

	s.persist()
}

// Add inserts one reference for a requirement unless its (file, symbol) pair
// is already present, then persists.
func (s *Store) Add(requirement string, ref types.CodeReference) {
	s.mu.Lock()
	for _, existing := range s.mappings[requirement] {
		if existing.Key() == ref.Key() {
			s.mu.Unlock()
			return
		}
	}
	s.mappings[requirement] = append(s.mappings[requirement], ref)
	s.mu.Unlock()

	s.persist()
}

// RemoveAll deletes a requirement's reference sequence entirely, then persists.
func (s *Store) RemoveAll(requirement string) {
	s.mu.Lock()
	_, existed := s.mappings[requirement]
	delete(s.mappings, requirement)
	s.mu.Unlock()

	if existed {
		s.persist()
	}
}

// RemoveFileRefs drops a requirement's references into one file, without
// touching its references elsewhere. Used by the marker writer when it
// relocates a marker within a file. Persists only if something was removed.
func (s *Store) RemoveFileRefs(requirement, file string) {
	s.mu.Lock()
	refs := s.mappings[requirement]
	kept := refs[:0]
	for _, r := range refs {
		if r.File != file {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(refs)
	if removed {
		if len(kept) == 0 {
			delete(s.mappings, requirement)
		} else {
			s.mappings[requirement] = kept
		}
	}
	s.mu.Unlock()

	if removed {
		s.persist()
	}
}

// Get returns the reference sequence for a requirement. Unknown identifiers
// yield an empty sequence, never an error.
func (s *Store) Get(requirement string) []types.CodeReference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.mappings[requirement]
	out := make([]types.CodeReference, len(refs))
	copy(out, refs)
	return out
}

// ReferencesToFile is the reverse lookup: every requirement with at least one
// reference into the given file, sorted for stable output. A linear scan of
// the forward index is fine at the sizes this store sees.
func (s *Store) ReferencesToFile(file string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for requirement, refs := range s.mappings {
		for _, r := range refs {
			if r.File == file {
				out = append(out, requirement)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Requirements returns all requirement identifiers in sorted order.
func (s *Store) Requirements() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.mappings))
	for requirement := range s.mappings {
		out = append(out, requirement)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of mapped requirements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}

// RefCount returns the total number of references across all requirements.
func (s *Store) RefCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, refs := range s.mappings {
		n += len(refs)
	}
	return n
}

// persist writes the whole index to disk. encoding/json sorts map keys, so
// an unchanged index always serializes to identical bytes.
func (s *Store) persist() {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.mappings, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		debug.Warnf("could not encode index: %v\n", err)
		return
	}

	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		// In-memory index stays authoritative until the next successful save
		debug.Warnf("could not save index to %s: %v\n", s.path, err)
		return
	}
	debug.LogIndex("saved %d requirement mappings to %s\n", s.Len(), s.path)
}
