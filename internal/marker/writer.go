// Package marker writes requirement markers into source files and keeps the
// index consistent with the single file it edits, without a full rescan.
package marker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hbollon/go-edlib"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/debug"
	rterrors "github.com/reqtrace/reqtrace/internal/errors"
	"github.com/reqtrace/reqtrace/internal/index"
	"github.com/reqtrace/reqtrace/internal/patterns"
	"github.com/reqtrace/reqtrace/internal/scanner"
	"github.com/reqtrace/reqtrace/internal/types"
)

const (
	// hintWindow bounds how far from a hinted line a named symbol is searched
	// before falling back to the whole file
	hintWindow = 10

	// fuzzyThreshold is the minimum Jaro-Winkler similarity for treating a
	// discovered symbol as a drifted rename of the requested one
	fuzzyThreshold = 0.9
)

// Writer places requirement markers above definitions and updates the index.
type Writer struct {
	cfg   *config.Config
	store *index.Store
}

// NewWriter creates a marker writer bound to a config and index store.
func NewWriter(cfg *config.Config, store *index.Store) *Writer {
	return &Writer{cfg: cfg, store: store}
}

// Options carries the optional targeting hints for AddMarker. An external
// caller may know the exact symbol, only an approximate line, or neither.
type Options struct {
	Symbol string
	Line   int // 1-based hint; 0 means none
}

// AddMarker ensures file contains exactly one correctly placed marker for the
// requirement and that the index reflects it. On any failure the file and the
// index are left unmodified.
//
// When only a line hint is given and the file holds no definition at all,
// there is nothing to attach to: the write is skipped without error. A named
// symbol that cannot be resolved (exactly or by fuzzy match) is an error.
func (w *Writer) AddMarker(requirement, file string, opts Options) error {
	rel := filepath.ToSlash(file)
	full := filepath.Join(w.cfg.Project.Root, filepath.FromSlash(rel))

	content, err := os.ReadFile(full)
	if err != nil {
		return rterrors.NewWriteError(requirement, rel, err)
	}
	readDigest := xxhash.Sum64(content)

	set, ok := patterns.ForPath(rel)
	if !ok {
		return rterrors.NewWriteError(requirement, rel,
			fmt.Errorf("no pattern support for extension %q", filepath.Ext(rel)))
	}

	lines := strings.Split(string(content), "\n")

	target, resolved := resolveTarget(lines, set, opts)
	if !resolved {
		if opts.Symbol != "" {
			return rterrors.NewUnresolvedTargetError(requirement, rel)
		}
		// Line-hint-only request against a file with no definitions:
		// nothing to attach to, skip silently.
		debug.LogWrite("no definition found in %s, skipping marker for %s\n", rel, requirement)
		return nil
	}

	// Remove any stale marker for this requirement, adjusting the resolved
	// definition index for every removed line above it. The file must never
	// end up holding a stale and a fresh marker at once.
	kept := make([]string, 0, len(lines))
	defIdx := target.idx
	for i, line := range lines {
		if set.IsMarkerFor(line, requirement) {
			if i < target.idx {
				defIdx--
			}
			continue
		}
		kept = append(kept, line)
	}
	lines = kept

	// Insert above the definition, hopping over any contiguous comment block
	// directly preceding it so the marker sits with the documentation, not
	// inside it.
	insert := defIdx
	for insert > 0 && set.IsCommentLine(lines[insert-1]) {
		insert--
	}

	indent := leadingWhitespace(lines[defIdx])
	markerLine := indent + set.MarkerLine(requirement)

	lines = append(lines[:insert], append([]string{markerLine}, lines[insert:]...)...)
	defIdx++ // definition shifted down by the inserted marker

	// Guard against a concurrent external edit between read and write-back.
	current, err := os.ReadFile(full)
	if err != nil {
		return rterrors.NewWriteError(requirement, rel, err)
	}
	if xxhash.Sum64(current) != readDigest {
		return rterrors.NewWriteError(requirement, rel,
			fmt.Errorf("file changed during marker placement"))
	}

	if err := os.WriteFile(full, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return rterrors.NewWriteError(requirement, rel, err)
	}

	kind := types.KindImplementation
	if patterns.IsTestPath(rel) || patterns.IsTestSymbol(target.symbol) {
		kind = types.KindTest
	}

	// The marker moved within this file; this file's old entries for the
	// requirement are gone by construction.
	w.store.RemoveFileRefs(requirement, rel)
	w.store.Add(requirement, types.CodeReference{
		File:   rel,
		Line:   defIdx + 1,
		Symbol: target.symbol,
		Kind:   kind,
	})

	w.revalidate(requirement, rel)
	return nil
}

// revalidate re-scans the touched file and confirms the marker is
// discoverable. A mismatch is diagnosed, not an error: the write succeeded.
func (w *Writer) revalidate(requirement, rel string) {
	refs, err := scanner.NewTreeScanner(w.cfg).ScanSingleFile(rel)
	if err != nil {
		debug.Warnf("could not re-validate %s: %v\n", rel, err)
		return
	}
	for _, rr := range refs {
		if rr.Requirement == requirement {
			debug.LogWrite("validated %s -> %s:%d (%s)\n", requirement, rel, rr.Ref.Line, rr.Ref.Symbol)
			return
		}
	}
	debug.Warnf("marker for %s written to %s but not found on re-scan\n", requirement, rel)
}

// candidate is one definition discovered in the file
type candidate struct {
	idx    int // 0-based line index
	symbol string
}

// resolveTarget picks the definition the marker should annotate.
//
// With a symbol: exact name match inside a window around the hinted line,
// then anywhere in the file, then the most similar symbol above the fuzzy
// threshold (the code may have drifted since the caller last saw it).
// With only a line hint: the nearest definition by absolute line distance.
func resolveTarget(lines []string, set *patterns.Set, opts Options) (candidate, bool) {
	cands := findDefinitions(lines, set)
	if len(cands) == 0 {
		return candidate{}, false
	}

	if opts.Symbol != "" {
		if opts.Line > 0 {
			if c, ok := closestMatching(cands, opts.Symbol, opts.Line, hintWindow); ok {
				return c, true
			}
		}
		for _, c := range cands {
			if c.symbol == opts.Symbol {
				return c, true
			}
		}
		return fuzzyMatch(cands, opts.Symbol)
	}

	hint := opts.Line
	if hint < 1 {
		hint = 1
	}
	best := cands[0]
	bestDist := absDist(best.idx, hint)
	for _, c := range cands[1:] {
		if d := absDist(c.idx, hint); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, true
}

func findDefinitions(lines []string, set *patterns.Set) []candidate {
	var cands []candidate
	for i, line := range lines {
		if symbol, ok := set.MatchSignature(line); ok {
			cands = append(cands, candidate{idx: i, symbol: symbol})
		}
	}
	return cands
}

func closestMatching(cands []candidate, symbol string, hint, window int) (candidate, bool) {
	var best candidate
	bestDist := -1
	for _, c := range cands {
		if c.symbol != symbol {
			continue
		}
		d := absDist(c.idx, hint)
		if d > window {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist >= 0
}

func fuzzyMatch(cands []candidate, symbol string) (candidate, bool) {
	var best candidate
	var bestScore float32 = -1
	for _, c := range cands {
		score, err := edlib.StringsSimilarity(symbol, c.symbol, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore >= fuzzyThreshold {
		debug.LogWrite("fuzzy-resolved %q to drifted symbol %q (%.2f)\n", symbol, best.symbol, bestScore)
		return best, true
	}
	return candidate{}, false
}

func absDist(idx, hintLine int) int {
	d := (idx + 1) - hintLine
	if d < 0 {
		return -d
	}
	return d
}

func leadingWhitespace(s string) string {
	for i, r := range s {
		if r != ' ' && r != '\t' {
			return s[:i]
		}
	}
	return s
}
