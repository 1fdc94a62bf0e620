package types

// Shared limits used by the scanner and config defaults
const (
	// DefaultMaxFileSize is the largest file the scanner will read (bytes)
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultScanWorkers of 0 means auto-detect (NumCPU)
	DefaultScanWorkers = 0

	// BinarySniffBytes is how much of a file head is inspected for binary content
	BinarySniffBytes = 512
)

// RefKind distinguishes production code from test code referencing the same requirement
type RefKind string

const (
	KindImplementation RefKind = "implementation"
	KindTest           RefKind = "test"
)

// CodeReference is one located requirement annotation.
// Line points at the definition the marker annotates (1-based), never at the
// marker comment itself, so navigation lands on code.
type CodeReference struct {
	File   string  `json:"file"`
	Line   int     `json:"line"`
	Symbol string  `json:"symbol"`
	Kind   RefKind `json:"kind"`
}

// Key identifies a reference within one requirement's sequence. Two entries
// for the same requirement never share a Key.
type Key struct {
	File   string
	Symbol string
}

// Key returns the dedup identity of the reference.
func (r CodeReference) Key() Key {
	return Key{File: r.File, Symbol: r.Symbol}
}

// RequirementRef pairs a discovered reference with the requirement it implements.
type RequirementRef struct {
	Requirement string
	Ref         CodeReference
}
