// Package patterns holds the per-language lexical rules for requirement
// markers and definition signatures. It is pure data plus matching functions;
// nothing here touches the filesystem.
//
// Language support is a closed set of Family values selected once per file by
// extension. Signature patterns are ordered most-specific-first so a
// qualified method is never misclassified as a free function.
package patterns

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Family tags one language family's pattern set
type Family string

const (
	FamilyPython Family = "python"
	FamilyC      Family = "c"
	FamilyGo     Family = "go"
	FamilyJS     Family = "js"
	FamilyJVM    Family = "jvm" // C#/Java/Kotlin
	FamilyScript Family = "script"
)

// signature is one definition-signature pattern. group selects the capture
// that holds the symbol name.
type signature struct {
	re    *regexp.Regexp
	group int
}

// Set is the pattern set for one language family
type Set struct {
	Family        Family
	commentPrefix string
	markers       []*regexp.Regexp
	signatures    []signature
	notSignature  *regexp.Regexp // control-flow lines that would otherwise match
}

// requirement IDs look like RQ-UI-001, RQ-MOTOR_CTRL-12
const reqIDPattern = `RQ-[A-Z][A-Z0-9_]*(?:-[A-Za-z0-9_]+)*`

// ReqID matches a bare requirement identifier anywhere in a line.
var ReqID = regexp.MustCompile(reqIDPattern)

// markerRegexps builds the marker forms for a comment leader. The tag forms
// (@requirement, @req) and the bare ID form are leader-independent; the
// labeled form requires the comment leader so prose mentioning
// "Requirement:" in code strings is less likely to trip it.
func markerRegexps(leaders ...string) []*regexp.Regexp {
	res := []*regexp.Regexp{
		regexp.MustCompile(`(?i)@requirement[:\s]\s*([^\s*]+)`),
		regexp.MustCompile(`(?i)@req[:\s]\s*([^\s*]+)`),
	}
	for _, l := range leaders {
		res = append(res, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(l)+`\s*Requirement\s*:\s*([^\s*]+)`))
	}
	res = append(res, regexp.MustCompile(`(`+reqIDPattern+`)`))
	return res
}

var cControlFlow = regexp.MustCompile(`^\s*(?:return|if|else|while|for|switch|case|do|throw|delete|new|catch|try)\b`)

var sets = map[Family]*Set{
	FamilyPython: {
		Family:        FamilyPython,
		commentPrefix: "# ",
		markers:       markerRegexps("#"),
		signatures: []signature{
			{regexp.MustCompile(`^\s*async\s+def\s+([A-Za-z_]\w*)\s*\(`), 1},
			{regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*)\s*\(`), 1},
			{regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)\s*[:(]`), 1},
		},
	},
	FamilyC: {
		Family:        FamilyC,
		commentPrefix: "// ",
		markers:       markerRegexps("//", "/*"),
		signatures: []signature{
			// Qualified method or constructor: Type::name(
			{regexp.MustCompile(`([A-Za-z_]\w*)::(~?[A-Za-z_]\w*)\s*\(`), 2},
			{regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`), 1},
			{regexp.MustCompile(`^\s*struct\s+([A-Za-z_]\w*)`), 1},
			// Typed free function: ret name(
			{regexp.MustCompile(`^\s*(?:[A-Za-z_][\w:]*(?:\s*[*&])?)\s+\**([A-Za-z_]\w*)\s*\(`), 1},
		},
		notSignature: cControlFlow,
	},
	FamilyGo: {
		Family:        FamilyGo,
		commentPrefix: "// ",
		markers:       markerRegexps("//"),
		signatures: []signature{
			{regexp.MustCompile(`^func\s+\([^)]+\)\s+([A-Za-z_]\w*)\s*\(`), 1},
			{regexp.MustCompile(`^func\s+([A-Za-z_]\w*)\s*[(\[]`), 1},
			{regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s+(?:struct|interface)\b`), 1},
		},
	},
	FamilyJS: {
		Family:        FamilyJS,
		commentPrefix: "// ",
		markers:       markerRegexps("//", "/*"),
		signatures: []signature{
			{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), 1},
			{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`), 1},
			{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`), 1},
			// Class method with optional modifiers and TS return type
			{regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|readonly|async)\s+)*([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*(?::[^;{]+)?\{`), 1},
		},
		notSignature: cControlFlow,
	},
	FamilyJVM: {
		Family:        FamilyJVM,
		commentPrefix: "// ",
		markers:       markerRegexps("//", "/*"),
		signatures: []signature{
			{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|sealed|data|open)\s+)*(?:class|interface|enum|record|object)\s+([A-Za-z_]\w*)`), 1},
			{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|override|suspend|inline)\s+)*fun\s+([A-Za-z_]\w*)\s*\(`), 1},
			// Modified method: public static Foo<T> name(
			{regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|final|override|virtual|async|abstract|sealed)\s+)+[\w<>\[\],.]+\s+([A-Za-z_]\w*)\s*\(`), 1},
		},
		notSignature: cControlFlow,
	},
	FamilyScript: {
		Family:        FamilyScript,
		commentPrefix: "# ",
		markers:       markerRegexps("#"),
		signatures: []signature{
			{regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[!?]?)`), 1},
			{regexp.MustCompile(`^\s*(?:class|module)\s+([A-Z]\w*)`), 1},
			{regexp.MustCompile(`^\s*(?:function\s+)?([A-Za-z_]\w*)\s*\(\)\s*\{`), 1},
		},
	},
}

var familyByExt = map[string]Family{
	".py": FamilyPython,

	".c": FamilyC, ".cc": FamilyC, ".cpp": FamilyC, ".cxx": FamilyC,
	".h": FamilyC, ".hh": FamilyC, ".hpp": FamilyC,

	".go": FamilyGo,

	".js": FamilyJS, ".jsx": FamilyJS, ".ts": FamilyJS, ".tsx": FamilyJS,
	".mjs": FamilyJS, ".cjs": FamilyJS,

	".cs": FamilyJVM, ".java": FamilyJVM, ".kt": FamilyJVM, ".kts": FamilyJVM,

	".rb": FamilyScript, ".sh": FamilyScript, ".bash": FamilyScript,
}

// ForPath selects the pattern set for a file by extension.
// ok is false for unsupported extensions; such files carry no patterns and
// are skipped by the scanner.
func ForPath(path string) (*Set, bool) {
	fam, found := familyByExt[strings.ToLower(filepath.Ext(path))]
	if !found {
		return nil, false
	}
	return sets[fam], true
}

// MatchMarker extracts a requirement identifier from a marker line.
func (s *Set) MatchMarker(line string) (string, bool) {
	for _, re := range s.markers {
		if m := re.FindStringSubmatch(line); m != nil {
			id := strings.Trim(m[1], `*/"':`)
			if id != "" {
				return id, true
			}
		}
	}
	return "", false
}

// MatchSignature tests the line against the family's signature patterns in
// priority order and returns the captured symbol name of the first match.
func (s *Set) MatchSignature(line string) (string, bool) {
	if s.notSignature != nil && s.notSignature.MatchString(line) {
		return "", false
	}
	for _, sig := range s.signatures {
		if m := sig.re.FindStringSubmatch(line); m != nil {
			return m[sig.group], true
		}
	}
	return "", false
}

// CommentPrefix returns the line-comment leader (with trailing space) for the
// family, used when composing a marker line.
func (s *Set) CommentPrefix() string {
	return s.commentPrefix
}

// MarkerLine composes the canonical marker comment for a requirement.
func (s *Set) MarkerLine(requirement string) string {
	return s.commentPrefix + "Requirement: " + requirement
}

// IsMarkerFor reports whether the line is a marker naming the given
// requirement. Used by the writer to find and remove stale markers.
func (s *Set) IsMarkerFor(line, requirement string) bool {
	id, ok := s.MatchMarker(line)
	return ok && id == requirement
}

// IsCommentLine reports whether the line is (the start of) a comment in this
// family. The writer uses it to hop above a contiguous documentation block.
func (s *Set) IsCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	switch {
	case strings.HasPrefix(t, "#"),
		strings.HasPrefix(t, "//"),
		strings.HasPrefix(t, "/*"),
		strings.HasPrefix(t, "*"):
		return true
	}
	return false
}

// CommentPrefixForPath returns the line-comment leader for a path, defaulting
// to C-style for unknown extensions.
func CommentPrefixForPath(path string) string {
	if s, ok := ForPath(path); ok {
		return s.commentPrefix
	}
	return "// "
}

var testPathHints = []string{"_test.", ".test.", ".spec.", "_spec."}

// IsTestPath is a heuristic, not a guarantee: a path under a test directory
// or following a test naming convention marks its references as test kind.
func IsTestPath(path string) bool {
	slashed := strings.ToLower(filepath.ToSlash(path))
	for _, seg := range strings.Split(slashed, "/") {
		if seg == "test" || seg == "tests" || seg == "__tests__" || seg == "testdata" {
			return true
		}
	}
	base := filepath.Base(slashed)
	if strings.HasPrefix(base, "test_") || strings.HasPrefix(base, "tests_") {
		return true
	}
	for _, h := range testPathHints {
		if strings.Contains(base, h) {
			return true
		}
	}
	return false
}

// IsTestSymbol reports whether a symbol name follows a test naming convention.
func IsTestSymbol(symbol string) bool {
	return strings.HasPrefix(symbol, "test_") || strings.HasPrefix(symbol, "Test")
}
