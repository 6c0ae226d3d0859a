// Package discovery resolves an ambiguous starting path to the database
// directory to use, per spec.md §4.7, and maintains the global registry
// of known project databases under the user's config directory.
package discovery

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/flupkede/codesearch/internal/config"
	semerrors "github.com/flupkede/codesearch/internal/errors"
)

// DBDirName is the on-disk name of a database directory, relative to
// whatever path it is found under.
const DBDirName = ".semcode"

// maxAncestors bounds how far Discovery walks up from the starting path
// (spec.md §4.7 step 3: "walk up to five ancestors").
const maxAncestors = 5

// skipDirNames are well-known non-project directories Discovery never
// descends into when looking for a child database (spec.md §4.7 step 2),
// generalized from internal/config's path-glob exclude list to bare
// directory basenames for this ancestor/child walk.
var skipDirNames = map[string]bool{
	"node_modules":   true,
	"vendor":         true,
	"dist":           true,
	"build":          true,
	"__pycache__":    true,
	".git":           true,
	"target":         true,
	".venv":          true,
	"venv":           true,
}

// requiredComponents are the files/directories that must all be present
// for a database directory to be considered valid (spec.md §3's "Database
// identity").
var requiredComponents = []string{"metadata.json", "data.mdb", "fts", "file_meta.json"}

// IsValidDatabase reports whether dir contains all four required
// components of a database directory.
func IsValidDatabase(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, name := range requiredComponents {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// exists reports whether dir exists as a directory at all, valid or not —
// used to distinguish "absent" from "present but invalid" for the
// structured-warning requirement.
func exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func warnInvalid(dir string) {
	slog.Warn("discovery: skipping invalid database directory",
		slog.String("path", dir),
		slog.String("reason", "missing one or more required components"))
}

// Find resolves startPath to a database directory following spec.md
// §4.7's four-step order. It returns semerrors.NotFound if no valid
// database can be located anywhere in the resolution chain.
func Find(startPath string) (string, error) {
	abs, err := filepath.Abs(startPath)
	if err != nil {
		return "", semerrors.Invalid("failed to resolve absolute path", err)
	}

	// Step 1: <path>/<db_dir>
	if dir, ok := checkCandidate(abs); ok {
		return dir, nil
	}

	// Step 2: direct children <path>/<name>/<db_dir>
	if dir, ok := findInChildren(abs); ok {
		return dir, nil
	}

	// Step 3: walk up to five ancestors
	current := abs
	for i := 0; i < maxAncestors; i++ {
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		if dir, ok := checkCandidate(parent); ok {
			return dir, nil
		}
		current = parent
	}

	// Step 4: globally registered database
	if dir, ok := findRegistered(abs); ok {
		return dir, nil
	}

	return "", semerrors.NotFound("no database found for "+abs, nil)
}

// checkCandidate returns (path/DBDirName, true) if that directory is a
// valid database; if it exists but is invalid it logs a warning and
// reports not-found for this candidate.
func checkCandidate(path string) (string, bool) {
	candidate := filepath.Join(path, DBDirName)
	if IsValidDatabase(candidate) {
		return candidate, true
	}
	if exists(candidate) {
		warnInvalid(candidate)
	}
	return "", false
}

func findInChildren(path string) (string, bool) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || skipDirNames[name] {
			continue
		}
		if dir, ok := checkCandidate(filepath.Join(path, name)); ok {
			return dir, true
		}
	}
	return "", false
}

func findRegistered(path string) (string, bool) {
	registry, err := LoadRegistry()
	if err != nil {
		return "", false
	}
	entry, ok := registry.Repos[path]
	if !ok {
		return "", false
	}
	candidate := filepath.Join(path, DBDirName)
	if IsValidDatabase(candidate) {
		_ = entry
		return candidate, true
	}
	warnInvalid(candidate)
	return "", false
}

// registryPath returns <config_dir>/repos.json.
func registryPath() string {
	return filepath.Join(config.GetUserConfigDir(), "repos.json")
}
