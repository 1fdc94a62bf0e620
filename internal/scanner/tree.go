package scanner

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/debug"
	rterrors "github.com/reqtrace/reqtrace/internal/errors"
	"github.com/reqtrace/reqtrace/internal/types"
)

// TreeScanner walks the configured source root and delegates each surviving
// file to the file scanner. Files are scanned concurrently up to a bounded
// worker count; results are merged in traversal order so two scans of an
// unchanged tree produce identical output.
type TreeScanner struct {
	cfg    *config.Config
	binary *BinaryDetector
}

// NewTreeScanner creates a tree scanner for the given configuration.
func NewTreeScanner(cfg *config.Config) *TreeScanner {
	return &TreeScanner{
		cfg:    cfg,
		binary: NewBinaryDetector(),
	}
}

// Stats summarizes one full tree scan.
type Stats struct {
	FilesWalked  int           `json:"files_walked"`
	FilesScanned int           `json:"files_scanned"`
	FilesSkipped int           `json:"files_skipped"`
	References   int           `json:"references"`
	Duration     time.Duration `json:"duration_ns"`
}

// Scan walks the tree and returns every discovered association in traversal
// order. Per-file failures are logged and skipped; they never abort the scan.
// Cancelling the context stops submission of further files; already
// dispatched file scans run to completion.
func (ts *TreeScanner) Scan(ctx context.Context) ([]types.RequirementRef, Stats, error) {
	start := time.Now()
	var stats Stats

	scanRoot := ts.cfg.ScanRoot()
	if _, err := os.Stat(scanRoot); err != nil {
		debug.Warnf("scan root %s not accessible: %v\n", scanRoot, err)
		stats.Duration = time.Since(start)
		return nil, stats, nil
	}

	files := ts.collectFiles(scanRoot)
	stats.FilesWalked = len(files)

	// Per-file scans are independent; only the merge below is serialized.
	results := make([][]types.RequirementRef, len(files))
	scanned := make([]bool, len(files))

	workers := ts.cfg.Scan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, rel := range files {
		if ctx.Err() != nil {
			break
		}
		i, rel := i, rel
		g.Go(func() error {
			results[i], scanned[i] = ts.scanOne(scanRoot, rel)
			return nil
		})
	}
	_ = g.Wait()

	var refs []types.RequirementRef
	for i := range results {
		if scanned[i] {
			stats.FilesScanned++
		} else {
			stats.FilesSkipped++
		}
		refs = append(refs, results[i]...)
	}

	stats.References = len(refs)
	stats.Duration = time.Since(start)
	debug.LogScan("scanned %d/%d files, %d references in %s\n",
		stats.FilesScanned, stats.FilesWalked, stats.References, stats.Duration)
	return refs, stats, nil
}

// ScanSingleFile re-scans one file by its root-relative path. Used for
// incremental re-validation after a marker write.
func (ts *TreeScanner) ScanSingleFile(rel string) ([]types.RequirementRef, error) {
	full := filepath.Join(ts.cfg.Project.Root, filepath.FromSlash(rel))
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, rterrors.NewFileError("read", rel, err)
	}
	return ScanFile(filepath.ToSlash(rel), content)
}

// collectFiles yields candidate files in directory-traversal order.
// Exclude patterns are tested first; any match disqualifies the file. Then
// include patterns; none matching disqualifies it. Both lists use the same
// recursive-glob semantics against the slash-normalized scan-root-relative
// path.
func (ts *TreeScanner) collectFiles(scanRoot string) []string {
	var files []string

	_ = filepath.WalkDir(scanRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			debug.Warnf("walk error at %s: %v\n", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, rerr := filepath.Rel(scanRoot, p)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && ts.shouldSkipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !ts.cfg.Scan.FollowSymlinks {
				return nil
			}
			info, serr := os.Stat(p)
			if serr != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if ts.excluded(rel) {
			return nil
		}
		if !ts.included(rel) {
			return nil
		}
		if ts.binary.IsBinaryByExtension(rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})

	return files
}

// scanOne reads and scans a single file. The bool result reports whether the
// file was actually scanned (false = skipped).
func (ts *TreeScanner) scanOne(scanRoot, rel string) ([]types.RequirementRef, bool) {
	full := filepath.Join(scanRoot, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		debug.Warnf("skipping %s: %v\n", rel, err)
		return nil, false
	}
	if info.Size() > ts.cfg.Scan.MaxFileSize {
		debug.Warnf("skipping %s: %d bytes exceeds limit\n", rel, info.Size())
		return nil, false
	}

	content, err := os.ReadFile(full)
	if err != nil {
		debug.Warnf("skipping %s: %v\n", rel, err)
		return nil, false
	}

	head := content
	if len(head) > types.BinarySniffBytes {
		head = head[:types.BinarySniffBytes]
	}
	if ts.binary.IsBinaryContent(head) {
		debug.LogScan("skipping binary content: %s\n", rel)
		return nil, false
	}

	// Reference paths are relative to the project root, not the scan root,
	// so they stay valid identity keys when the source subdir changes.
	refPath := rel
	if ts.cfg.Scan.Source != "" {
		refPath = path.Join(filepath.ToSlash(ts.cfg.Scan.Source), rel)
	}

	refs, err := ScanFile(refPath, content)
	if err != nil {
		// Partial results for the file are kept
		debug.Warnf("aborted scan of %s: %v\n", rel, err)
	}
	return refs, true
}

func (ts *TreeScanner) excluded(rel string) bool {
	for _, pattern := range ts.cfg.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (ts *TreeScanner) included(rel string) bool {
	if len(ts.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range ts.cfg.Include {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// shouldSkipDir prunes directories whose contents an exclude pattern would
// reject wholesale, e.g. "**/node_modules/**" prunes node_modules.
func (ts *TreeScanner) shouldSkipDir(rel string) bool {
	for _, pattern := range ts.cfg.Exclude {
		if !strings.HasSuffix(pattern, "/**") {
			continue
		}
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, err := doublestar.Match(dirPattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}
