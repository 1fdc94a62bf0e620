package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/types"
)

func ref(file, symbol string, line int) types.CodeReference {
	return types.CodeReference{File: file, Line: line, Symbol: symbol, Kind: types.KindImplementation}
}

func rref(req, file, symbol string, line int) types.RequirementRef {
	return types.RequirementRef{Requirement: req, Ref: ref(file, symbol, line)}
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return Load(filepath.Join(t.TempDir(), "requirements_map.json"))
}

func TestLoad_MissingFile(t *testing.T) {
	s := tempStore(t)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Get("RQ-UI-001"))
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements_map.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := Load(path)
	assert.Zero(t, s.Len())
}

func TestAddAndGet(t *testing.T) {
	s := tempStore(t)

	s.Add("RQ-UI-001", ref("ui.py", "render", 2))
	got := s.Get("RQ-UI-001")
	require.Len(t, got, 1)
	assert.Equal(t, "render", got[0].Symbol)

	// Same (file, symbol) pair is a no-op even at a different line
	s.Add("RQ-UI-001", ref("ui.py", "render", 7))
	got = s.Get("RQ-UI-001")
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)

	// Different symbol appends
	s.Add("RQ-UI-001", ref("ui.py", "update", 10))
	assert.Len(t, s.Get("RQ-UI-001"), 2)
}

func TestRebuild_ReplacesAndDedupes(t *testing.T) {
	s := tempStore(t)
	s.Add("RQ-OLD-001", ref("gone.py", "gone", 1))

	s.Rebuild([]types.RequirementRef{
		rref("RQ-UI-001", "ui.py", "render", 2),
		rref("RQ-UI-001", "ui.py", "render", 2), // duplicate pair
		rref("RQ-UI-001", "panel.py", "render", 4),
		rref("RQ-MOTOR-001", "motor.py", "start", 3),
	})

	// Stale entries do not survive a rebuild
	assert.Empty(t, s.Get("RQ-OLD-001"))
	assert.Len(t, s.Get("RQ-UI-001"), 2)
	assert.Len(t, s.Get("RQ-MOTOR-001"), 1)
}

func TestPersistence_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements_map.json")

	s := Load(path)
	s.Add("RQ-UI-001", ref("ui.py", "render", 2))

	reloaded := Load(path)
	got := reloaded.Get("RQ-UI-001")
	require.Len(t, got, 1)
	assert.Equal(t, ref("ui.py", "render", 2), got[0])
}

func TestPersistence_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements_map.json")
	refs := []types.RequirementRef{
		rref("RQ-B-001", "b.py", "b", 2),
		rref("RQ-A-001", "a.py", "a", 2),
	}

	s := Load(path)
	s.Rebuild(refs)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	s.Rebuild(refs)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRemoveAll(t *testing.T) {
	s := tempStore(t)
	s.Add("RQ-UI-001", ref("ui.py", "render", 2))

	s.RemoveAll("RQ-UI-001")
	assert.Empty(t, s.Get("RQ-UI-001"))

	// Removing an unknown requirement is a no-op
	s.RemoveAll("RQ-NOPE-001")
}

func TestRemoveFileRefs(t *testing.T) {
	s := tempStore(t)
	s.Add("RQ-UI-001", ref("ui.py", "render", 2))
	s.Add("RQ-UI-001", ref("panel.py", "draw", 5))

	s.RemoveFileRefs("RQ-UI-001", "ui.py")

	got := s.Get("RQ-UI-001")
	require.Len(t, got, 1)
	assert.Equal(t, "panel.py", got[0].File)

	// Dropping the last file reference removes the requirement entirely
	s.RemoveFileRefs("RQ-UI-001", "panel.py")
	assert.Zero(t, s.Len())
}

func TestReferencesToFile(t *testing.T) {
	s := tempStore(t)
	s.Add("RQ-UI-002", ref("ui.py", "update", 9))
	s.Add("RQ-UI-001", ref("ui.py", "render", 2))
	s.Add("RQ-MOTOR-001", ref("motor.py", "start", 3))

	assert.Equal(t, []string{"RQ-UI-001", "RQ-UI-002"}, s.ReferencesToFile("ui.py"))
	assert.Empty(t, s.ReferencesToFile("nothing.py"))
}

func TestRequirementsAndCounts(t *testing.T) {
	s := tempStore(t)
	s.Add("RQ-B-001", ref("b.py", "b", 2))
	s.Add("RQ-A-001", ref("a.py", "a", 2))
	s.Add("RQ-A-001", ref("a2.py", "a2", 3))

	assert.Equal(t, []string{"RQ-A-001", "RQ-B-001"}, s.Requirements())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.RefCount())
}

func TestPersist_UnwritablePathKeepsMemoryState(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "no", "such", "dir", "map.json"))
	s.Add("RQ-UI-001", ref("ui.py", "render", 2))

	// Save failed, but the in-memory index remains the source of truth
	assert.Len(t, s.Get("RQ-UI-001"), 1)
}
