// Build artifact detection from language-specific manifest files.
// Markers never live in build output, so anything a manifest declares as an
// output directory is excluded from scanning up front.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestDetector finds build output directories declared by project manifests
type ManifestDetector struct {
	projectRoot string
}

// NewManifestDetector creates a new manifest detector
func NewManifestDetector(projectRoot string) *ManifestDetector {
	return &ManifestDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories scans for build configuration files and extracts
// output directories as exclude glob patterns (e.g. "**/dist/**").
func (md *ManifestDetector) DetectOutputDirectories() []string {
	var patterns []string

	patterns = append(patterns, md.detectJavaScriptOutputs()...)
	patterns = append(patterns, md.detectRustOutputs()...)
	patterns = append(patterns, md.detectPythonOutputs()...)

	return patterns
}

func (md *ManifestDetector) detectJavaScriptOutputs() []string {
	var patterns []string

	// tsconfig.json: compilerOptions.outDir
	tsconfigJSON := filepath.Join(md.projectRoot, "tsconfig.json")
	if data, err := os.ReadFile(tsconfigJSON); err == nil {
		var tsconfig map[string]interface{}
		if json.Unmarshal(data, &tsconfig) == nil {
			if compilerOptions, ok := tsconfig["compilerOptions"].(map[string]interface{}); ok {
				if outDir, ok := compilerOptions["outDir"].(string); ok {
					patterns = append(patterns, globForDir(outDir))
				}
			}
		}
	}

	// package.json: explicit build.outDir
	packageJSON := filepath.Join(md.projectRoot, "package.json")
	if data, err := os.ReadFile(packageJSON); err == nil {
		var pkg map[string]interface{}
		if json.Unmarshal(data, &pkg) == nil {
			if buildConfig, ok := pkg["build"].(map[string]interface{}); ok {
				if outDir, ok := buildConfig["outDir"].(string); ok {
					patterns = append(patterns, globForDir(outDir))
				}
			}
		}
	}

	return patterns
}

func (md *ManifestDetector) detectRustOutputs() []string {
	var patterns []string

	cargoTOML := filepath.Join(md.projectRoot, "Cargo.toml")
	if data, err := os.ReadFile(cargoTOML); err == nil {
		var cargo map[string]interface{}
		if toml.Unmarshal(data, &cargo) == nil {
			// target/ is the default; a custom target-dir may be declared per profile
			patterns = append(patterns, "**/target/**")
			if profile, ok := cargo["profile"].(map[string]interface{}); ok {
				if release, ok := profile["release"].(map[string]interface{}); ok {
					if targetDir, ok := release["target-dir"].(string); ok {
						patterns = append(patterns, globForDir(targetDir))
					}
				}
			}
		}
	}

	return patterns
}

func (md *ManifestDetector) detectPythonOutputs() []string {
	var patterns []string

	pyprojectTOML := filepath.Join(md.projectRoot, "pyproject.toml")
	if data, err := os.ReadFile(pyprojectTOML); err == nil {
		var pyproject map[string]interface{}
		if toml.Unmarshal(data, &pyproject) == nil {
			patterns = append(patterns, "**/*.egg-info/**")
			if tool, ok := pyproject["tool"].(map[string]interface{}); ok {
				if poetry, ok := tool["poetry"].(map[string]interface{}); ok {
					if build, ok := poetry["build"].(map[string]interface{}); ok {
						if targetDir, ok := build["target-dir"].(string); ok {
							patterns = append(patterns, globForDir(targetDir))
						}
					}
				}
			}
		}
	}

	return patterns
}

func globForDir(dir string) string {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	return "**/" + dir + "/**"
}

// DeduplicatePatterns removes duplicate glob patterns, preserving order
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
