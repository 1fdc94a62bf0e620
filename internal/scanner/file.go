package scanner

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/reqtrace/reqtrace/internal/debug"
	rterrors "github.com/reqtrace/reqtrace/internal/errors"
	"github.com/reqtrace/reqtrace/internal/patterns"
	"github.com/reqtrace/reqtrace/internal/types"
)

// ScanFile runs the marker state machine over one file's content and returns
// the (requirement, location) associations it finds.
//
// The machine carries an active requirement set by the most recent marker
// line. The first definition signature after a marker consumes it; a blank
// line or closing brace before any signature drops it, bounding how far a
// marker can reach forward. Duplicate (requirement, symbol) pairs within the
// file are emitted once.
//
// A line that cannot be decoded aborts this file's scan; associations already
// found are returned alongside the error.
func ScanFile(relPath string, content []byte) ([]types.RequirementRef, error) {
	set, ok := patterns.ForPath(relPath)
	if !ok {
		return nil, nil
	}

	pathIsTest := patterns.IsTestPath(relPath)

	type seenKey struct {
		requirement string
		symbol      string
	}
	seen := make(map[seenKey]struct{})

	var refs []types.RequirementRef
	active := ""

	ls := NewLineScanner(content)
	for ls.Scan() {
		raw := ls.Bytes()
		if !utf8.Valid(raw) {
			err := rterrors.NewScanError("decode",
				fmt.Errorf("line %d is not valid UTF-8", ls.LineNumber())).WithPath(relPath)
			return refs, err
		}
		line := string(raw)

		if id, matched := set.MatchMarker(line); matched {
			if active != "" && active != id {
				// A marker with no definable symbol before the next marker
				// cannot be located to code; it is dropped.
				debug.LogScan("%s:%d: marker %s dropped, superseded by %s\n", relPath, ls.LineNumber(), active, id)
			}
			active = id
			continue
		}

		if active != "" {
			if symbol, matched := set.MatchSignature(line); matched {
				kind := types.KindImplementation
				if pathIsTest || patterns.IsTestSymbol(symbol) {
					kind = types.KindTest
				}

				k := seenKey{requirement: active, symbol: symbol}
				if _, dup := seen[k]; !dup {
					seen[k] = struct{}{}
					refs = append(refs, types.RequirementRef{
						Requirement: active,
						Ref: types.CodeReference{
							File:   relPath,
							Line:   ls.LineNumber(),
							Symbol: symbol,
							Kind:   kind,
						},
					})
				}
				// A requirement is consumed by the first definition it meets
				active = ""
				continue
			}
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "}") {
			if active != "" {
				debug.LogScan("%s:%d: marker %s dropped, no definition before reset\n", relPath, ls.LineNumber(), active)
			}
			active = ""
		}
	}

	return refs, nil
}
