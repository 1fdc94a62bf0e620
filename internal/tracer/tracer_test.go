package tracer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/marker"
	"github.com/reqtrace/reqtrace/internal/types"
)

func newTracer(t *testing.T, files map[string]string) *Tracer {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Scan.Workers = 2
	return New(cfg)
}

func TestScan_BuildsIndex(t *testing.T) {
	tr := newTracer(t, map[string]string{
		"ui.py":    "# Requirement: RQ-UI-001\ndef render(floor):\n    pass\n",
		"motor.py": "# Requirement: RQ-MOTOR-001\ndef start():\n    pass\n",
	})

	stats, err := tr.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.References)

	refs := tr.GetReferences("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, types.CodeReference{File: "ui.py", Line: 2, Symbol: "render", Kind: types.KindImplementation}, refs[0])

	assert.Equal(t, []string{"RQ-MOTOR-001", "RQ-UI-001"}, tr.Requirements())
	assert.Equal(t, []string{"RQ-UI-001"}, tr.GetRequirementsForFile("ui.py"))
}

func TestAddMarker_WriteThenFind(t *testing.T) {
	tr := newTracer(t, map[string]string{
		"ui.py": "def render(floor):\n    pass\n",
	})

	require.NoError(t, tr.AddMarker("RQ-UI-001", "ui.py", marker.Options{Symbol: "render"}))

	// Visible immediately, without a rescan
	refs := tr.GetReferences("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, "render", refs[0].Symbol)

	// And a full rescan reproduces exactly the same reference
	_, err := tr.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, refs, tr.GetReferences("RQ-UI-001"))
}

func TestAddMarker_RejectsMalformedID(t *testing.T) {
	tr := newTracer(t, map[string]string{
		"ui.py": "def render(floor):\n    pass\n",
	})

	for _, id := range []string{"", "UI-001", "RQ-", "rq-ui-001", "RQ-ui space"} {
		assert.Error(t, tr.AddMarker(id, "ui.py", marker.Options{Symbol: "render"}), id)
	}
	assert.Empty(t, tr.Requirements())
}

func TestNew_LoadsPersistedIndex(t *testing.T) {
	tr := newTracer(t, map[string]string{
		"ui.py": "# Requirement: RQ-UI-001\ndef render(floor):\n    pass\n",
	})
	_, err := tr.Scan(context.Background())
	require.NoError(t, err)

	// A second tracer over the same workspace sees the persisted index
	fresh := New(tr.Config())
	assert.Equal(t, []string{"RQ-UI-001"}, fresh.Requirements())
}

func TestStatus_ReportsMissingFiles(t *testing.T) {
	tr := newTracer(t, map[string]string{
		"ui.py":    "# Requirement: RQ-UI-001\ndef render(floor):\n    pass\n",
		"motor.py": "# Requirement: RQ-MOTOR-001\ndef start():\n    pass\n",
	})
	_, err := tr.Scan(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(tr.Config().Project.Root, "motor.py")))

	st := tr.Status()
	assert.Equal(t, 2, st.Requirements)
	assert.Equal(t, 2, st.References)
	assert.Equal(t, []string{"motor.py"}, st.MissingFiles)
}
