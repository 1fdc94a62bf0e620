package scanner

import (
	"bytes"
)

// LineScanner provides zero-allocation line iteration over byte content.
// It performs a single-pass scan, computing line offsets on demand without
// allocating a slice of strings like strings.Split does.
//
// Usage:
//
//	ls := NewLineScanner(content)
//	for ls.Scan() {
//	    line := ls.Bytes()       // Zero-copy access to current line
//	    lineNum := ls.LineNumber() // 1-based line number
//	}
type LineScanner struct {
	data    []byte
	start   int  // Start of current line
	end     int  // End of current line (exclusive, before newline)
	pos     int  // Current position in data
	lineNum int  // Current line number (1-based)
	done    bool // Whether scanning is complete
}

// NewLineScanner creates a new line scanner for the given content.
// The scanner strips trailing \r\n or \n from each line.
func NewLineScanner(data []byte) *LineScanner {
	return &LineScanner{data: data}
}

// Scan advances to the next line. Returns false when done.
func (ls *LineScanner) Scan() bool {
	if ls.done {
		return false
	}

	if ls.pos >= len(ls.data) {
		ls.done = true
		return false
	}

	ls.start = ls.pos
	ls.lineNum++

	idx := bytes.IndexByte(ls.data[ls.pos:], '\n')
	if idx < 0 {
		// Last line without trailing newline
		ls.end = len(ls.data)
		ls.pos = len(ls.data)
	} else {
		ls.end = ls.pos + idx
		ls.pos = ls.pos + idx + 1
	}

	// Strip trailing \r (CRLF handling)
	if ls.end > ls.start && ls.data[ls.end-1] == '\r' {
		ls.end--
	}

	return true
}

// Bytes returns the current line without allocation. The slice aliases the
// scanner's underlying data and is only valid until the next Scan call.
func (ls *LineScanner) Bytes() []byte {
	return ls.data[ls.start:ls.end]
}

// Text returns the current line as a string.
func (ls *LineScanner) Text() string {
	return string(ls.data[ls.start:ls.end])
}

// LineNumber returns the 1-based number of the current line.
func (ls *LineScanner) LineNumber() int {
	return ls.lineNum
}
