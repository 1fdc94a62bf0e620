// Package tracer is the top-level facade tying the scanner, the index store
// and the marker writer together behind one API. Commands and embedders talk
// to a Tracer; they never compose the lower layers themselves.
package tracer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/debug"
	rterrors "github.com/reqtrace/reqtrace/internal/errors"
	"github.com/reqtrace/reqtrace/internal/index"
	"github.com/reqtrace/reqtrace/internal/marker"
	"github.com/reqtrace/reqtrace/internal/patterns"
	"github.com/reqtrace/reqtrace/internal/scanner"
	"github.com/reqtrace/reqtrace/internal/types"
)

var validID = regexp.MustCompile(`^` + patterns.ReqID.String() + `$`)

// Tracer owns the requirement index for one workspace.
type Tracer struct {
	cfg    *config.Config
	store  *index.Store
	tree   *scanner.TreeScanner
	writer *marker.Writer
}

// New builds a tracer for the given configuration and loads any previously
// persisted index, so lookups work without a fresh scan.
func New(cfg *config.Config) *Tracer {
	store := index.Load(cfg.IndexPath())
	return &Tracer{
		cfg:    cfg,
		store:  store,
		tree:   scanner.NewTreeScanner(cfg),
		writer: marker.NewWriter(cfg, store),
	}
}

// Config returns the configuration the tracer was built with.
func (t *Tracer) Config() *config.Config {
	return t.cfg
}

// Scan walks the workspace, rebuilds the index from what it finds, and
// persists the result. The previous index content is fully replaced.
func (t *Tracer) Scan(ctx context.Context) (scanner.Stats, error) {
	refs, stats, err := t.tree.Scan(ctx)
	if err != nil {
		return stats, err
	}
	t.store.Rebuild(refs)
	debug.LogScan("rebuilt index: %d requirements, %d references\n",
		t.store.Len(), t.store.RefCount())
	return stats, nil
}

// AddMarker writes a requirement marker into a file and records the resulting
// reference, without rescanning the rest of the workspace.
func (t *Tracer) AddMarker(requirement, file string, opts marker.Options) error {
	if !validID.MatchString(requirement) {
		return rterrors.NewWriteError(requirement, file,
			fmt.Errorf("malformed requirement identifier"))
	}
	return t.writer.AddMarker(requirement, file, opts)
}

// GetReferences returns every code reference recorded for a requirement, in
// index order. Unknown requirements yield an empty slice.
func (t *Tracer) GetReferences(requirement string) []types.CodeReference {
	return t.store.Get(requirement)
}

// GetRequirementsForFile is the reverse lookup: the sorted requirement
// identifiers with at least one reference into the given file.
func (t *Tracer) GetRequirementsForFile(file string) []string {
	return t.store.ReferencesToFile(filepath.ToSlash(file))
}

// Requirements returns all indexed requirement identifiers, sorted.
func (t *Tracer) Requirements() []string {
	return t.store.Requirements()
}

// Status summarizes the persisted index against the workspace on disk.
type Status struct {
	IndexPath    string   `json:"index_path"`
	Requirements int      `json:"requirements"`
	References   int      `json:"references"`
	MissingFiles []string `json:"missing_files,omitempty"`
}

// Status reports index size and any referenced files that no longer exist.
// Missing files mean the index is stale and a rescan is due.
func (t *Tracer) Status() Status {
	st := Status{
		IndexPath:    t.cfg.IndexPath(),
		Requirements: t.store.Len(),
		References:   t.store.RefCount(),
	}

	checked := make(map[string]bool)
	for _, requirement := range t.store.Requirements() {
		for _, ref := range t.store.Get(requirement) {
			missing, seen := checked[ref.File]
			if !seen {
				full := filepath.Join(t.cfg.Project.Root, filepath.FromSlash(ref.File))
				_, err := os.Stat(full)
				missing = os.IsNotExist(err)
				checked[ref.File] = missing
				if missing {
					st.MissingFiles = append(st.MissingFiles, ref.File)
				}
			}
		}
	}
	return st
}
