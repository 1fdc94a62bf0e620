package marker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/config"
	rterrors "github.com/reqtrace/reqtrace/internal/errors"
	"github.com/reqtrace/reqtrace/internal/index"
	"github.com/reqtrace/reqtrace/internal/types"
)

type fixture struct {
	root   string
	cfg    *config.Config
	store  *index.Store
	writer *Writer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}

	cfg := config.Default()
	cfg.Project.Root = root
	store := index.Load(filepath.Join(root, "requirements_map.json"))
	return &fixture{root: root, cfg: cfg, store: store, writer: NewWriter(cfg, store)}
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func markerCount(content, requirement string) int {
	return strings.Count(content, "Requirement: "+requirement)
}

func TestAddMarker_BySymbol(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "def render(floor):\n    pass\n\ndef update(state):\n    pass\n",
	})

	err := f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "update"})
	require.NoError(t, err)

	content := f.read(t, "ui.py")
	lines := strings.Split(content, "\n")
	assert.Equal(t, "# Requirement: RQ-UI-001", lines[3])
	assert.Equal(t, "def update(state):", lines[4])

	refs := f.store.Get("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, types.CodeReference{File: "ui.py", Line: 5, Symbol: "update", Kind: types.KindImplementation}, refs[0])
}

func TestAddMarker_ByLineHint(t *testing.T) {
	f := newFixture(t, map[string]string{
		"motor.cpp": "#include \"motor.h\"\n\nvoid MotorController::start(int speed) {\n}\n\nvoid MotorController::stop() {\n}\n",
	})

	err := f.writer.AddMarker("RQ-MOTOR-003", "motor.cpp", Options{Line: 6})
	require.NoError(t, err)

	content := f.read(t, "motor.cpp")
	lines := strings.Split(content, "\n")
	assert.Equal(t, "// Requirement: RQ-MOTOR-003", lines[5])
	assert.Equal(t, "void MotorController::stop() {", lines[6])

	refs := f.store.Get("RQ-MOTOR-003")
	require.Len(t, refs, 1)
	assert.Equal(t, "stop", refs[0].Symbol)
}

func TestAddMarker_InsertsAboveCommentBlock(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "# Renders the current floor.\n# Updates on every tick.\ndef render(floor):\n    pass\n",
	})

	err := f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "render"})
	require.NoError(t, err)

	lines := strings.Split(f.read(t, "ui.py"), "\n")
	assert.Equal(t, "# Requirement: RQ-UI-001", lines[0])
	assert.Equal(t, "# Renders the current floor.", lines[1])
	assert.Equal(t, "def render(floor):", lines[3])

	// Line still points at the definition, not the documentation
	refs := f.store.Get("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, 4, refs[0].Line)
}

func TestAddMarker_RelocatesStaleMarker(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "# Requirement: RQ-UI-001\ndef render(floor):\n    pass\n\ndef update(state):\n    pass\n",
	})
	f.store.Add("RQ-UI-001", types.CodeReference{File: "ui.py", Line: 2, Symbol: "render", Kind: types.KindImplementation})

	err := f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "update"})
	require.NoError(t, err)

	content := f.read(t, "ui.py")
	assert.Equal(t, 1, markerCount(content, "RQ-UI-001"))

	lines := strings.Split(content, "\n")
	assert.Equal(t, "def render(floor):", lines[0])
	assert.Equal(t, "# Requirement: RQ-UI-001", lines[3])
	assert.Equal(t, "def update(state):", lines[4])

	refs := f.store.Get("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, "update", refs[0].Symbol)
	assert.Equal(t, 5, refs[0].Line)
}

func TestAddMarker_Idempotent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "def render(floor):\n    pass\n",
	})

	require.NoError(t, f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "render"}))
	first := f.read(t, "ui.py")
	require.NoError(t, f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "render"}))
	second := f.read(t, "ui.py")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, markerCount(second, "RQ-UI-001"))
	assert.Len(t, f.store.Get("RQ-UI-001"), 1)
}

func TestAddMarker_IndentedMethod(t *testing.T) {
	f := newFixture(t, map[string]string{
		"panel.py": "class Panel:\n    def draw(self):\n        pass\n",
	})

	err := f.writer.AddMarker("RQ-UI-002", "panel.py", Options{Symbol: "draw"})
	require.NoError(t, err)

	lines := strings.Split(f.read(t, "panel.py"), "\n")
	assert.Equal(t, "    # Requirement: RQ-UI-002", lines[1])
	assert.Equal(t, "    def draw(self):", lines[2])
}

func TestAddMarker_FuzzyDriftedSymbol(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "def render_floor_displays(floor):\n    pass\n",
	})

	// The caller knows the old name; the definition has since been renamed
	err := f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "render_floor_display"})
	require.NoError(t, err)

	refs := f.store.Get("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, "render_floor_displays", refs[0].Symbol)
}

func TestAddMarker_UnresolvableSymbolFails(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "def render(floor):\n    pass\n",
	})

	err := f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "completely_unrelated"})
	require.Error(t, err)

	var werr *rterrors.WriteError
	require.ErrorAs(t, err, &werr)
	assert.True(t, werr.IsUnresolved())

	// No state changed
	assert.NotContains(t, f.read(t, "ui.py"), "Requirement:")
	assert.Zero(t, f.store.Len())
}

func TestAddMarker_LineHintNoDefinitionsSkipsSilently(t *testing.T) {
	f := newFixture(t, map[string]string{
		"empty.py": "x = 1\ny = 2\n",
	})

	err := f.writer.AddMarker("RQ-UI-001", "empty.py", Options{Line: 1})
	assert.NoError(t, err)
	assert.NotContains(t, f.read(t, "empty.py"), "Requirement:")
	assert.Zero(t, f.store.Len())
}

func TestAddMarker_MissingFileFails(t *testing.T) {
	f := newFixture(t, nil)

	err := f.writer.AddMarker("RQ-UI-001", "missing.py", Options{Symbol: "render"})
	assert.Error(t, err)
	assert.Zero(t, f.store.Len())
}

func TestAddMarker_TestFileKind(t *testing.T) {
	f := newFixture(t, map[string]string{
		"tests/test_ui.py": "def test_render():\n    pass\n",
	})

	err := f.writer.AddMarker("RQ-UI-001", "tests/test_ui.py", Options{Symbol: "test_render"})
	require.NoError(t, err)

	refs := f.store.Get("RQ-UI-001")
	require.Len(t, refs, 1)
	assert.Equal(t, types.KindTest, refs[0].Kind)
}

func TestAddMarker_PreservesTrailingNewline(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ui.py": "def render(floor):\n    pass\n",
	})

	require.NoError(t, f.writer.AddMarker("RQ-UI-001", "ui.py", Options{Symbol: "render"}))
	content := f.read(t, "ui.py")
	assert.True(t, strings.HasSuffix(content, "\n"))
	assert.Equal(t, "# Requirement: RQ-UI-001\ndef render(floor):\n    pass\n", content)
}
