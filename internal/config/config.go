package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/reqtrace/reqtrace/internal/debug"
	"github.com/reqtrace/reqtrace/internal/types"
)

// DefaultIndexFile is the persisted index location relative to the workspace root
const DefaultIndexFile = "requirements_map.json"

type Config struct {
	Version int
	Project Project
	Scan    Scan
	Include []string
	Exclude []string
}

type Project struct {
	Root string
	Name string
}

type Scan struct {
	Source         string // subdirectory of the root to scan; "" scans the whole root
	MaxFileSize    int64
	Workers        int // 0 = auto-detect (NumCPU)
	FollowSymlinks bool
	IndexFile      string // persisted index path, relative to the workspace root
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads configuration the same way the index expects it at
// runtime: a global ~/.reqtrace.kdl as base, overridden by the project's
// .reqtrace.kdl, falling back to built-in defaults when neither exists.
// Configuration problems never abort; the caller always gets a usable config.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Global base config from ~/.reqtrace.kdl (if exists)
	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Project-specific config: an explicit file path wins over the
	// conventional .reqtrace.kdl in the search directory
	var projectConfig *Config
	var err error
	if path != "" && path != ".reqtrace.kdl" {
		projectConfig, err = LoadKDLFile(path)
	} else {
		projectConfig, err = LoadKDL(searchDir)
	}
	if err != nil {
		// A broken config file never blocks a scan
		debug.Warnf("unusable config, falling back to defaults: %v\n", err)
		projectConfig = nil
	}

	if baseConfig != nil && projectConfig != nil {
		return mergeConfigs(baseConfig, projectConfig), nil
	} else if projectConfig != nil {
		return projectConfig, nil
	} else if baseConfig != nil {
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if rootDir != "" {
		if abs, err := filepath.Abs(rootDir); err == nil {
			cwd = abs
		} else {
			cwd = rootDir
		}
	}

	cfg := Default()
	cfg.Project.Root = cwd
	cfg.EnrichExcludesFromManifests()
	return cfg, nil
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Version: 1,
		Scan: Scan{
			Source:         "",
			MaxFileSize:    types.DefaultMaxFileSize,
			Workers:        runtime.NumCPU(),
			FollowSymlinks: false,
			IndexFile:      DefaultIndexFile,
		},
		// Every extension the pattern library understands. Test files stay
		// included: test references are indexed with their own kind.
		Include: []string{
			"**/*.py",
			"**/*.c", "**/*.cc", "**/*.cpp", "**/*.cxx",
			"**/*.h", "**/*.hh", "**/*.hpp",
			"**/*.go",
			"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
			"**/*.cs", "**/*.java", "**/*.kt",
			"**/*.rb", "**/*.sh",
		},
		Exclude: []string{
			// Git metadata and hidden directories
			"**/.git/**",
			"**/.*/**",

			// Package managers & dependencies
			"**/node_modules/**",
			"**/vendor/**",

			// Build artifacts & output
			"**/dist/**",
			"**/build/**",
			"**/out/**",
			"**/target/**",
			"**/bin/**",
			"**/obj/**",
			"**/*.min.js",

			// Python compiled files
			"**/__pycache__/**",
			"**/*.pyc",

			// Editor temp files
			"**/*.swp",
			"**/*.swo",
			"**/*~",

			// Logs
			"**/logs/**",
			"**/*.log",
		},
	}
}

// mergeConfigs merges a base config with a project config.
// Project config takes precedence, but base exclusions are preserved.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		merged.Exclude = DeduplicatePatterns(append(append([]string{}, base.Exclude...), project.Exclude...))
	}

	// Inclusions: project overrides base completely if specified
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// ScanRoot returns the directory the tree scanner walks.
func (c *Config) ScanRoot() string {
	if c.Scan.Source == "" {
		return c.Project.Root
	}
	return filepath.Join(c.Project.Root, c.Scan.Source)
}

// IndexPath returns the absolute location of the persisted index file.
func (c *Config) IndexPath() string {
	f := c.Scan.IndexFile
	if f == "" {
		f = DefaultIndexFile
	}
	if filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(c.Project.Root, f)
}

// EnrichExcludesFromManifests detects build output directories declared in
// project manifests and adds them to the exclusion list.
func (c *Config) EnrichExcludesFromManifests() {
	if c.Project.Root == "" {
		return
	}

	detector := NewManifestDetector(c.Project.Root)
	detected := detector.DetectOutputDirectories()

	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}
