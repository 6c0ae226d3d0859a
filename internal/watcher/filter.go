package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flupkede/codesearch/internal/chunk"
)

// excludedDirNames are well-known non-project directories the watcher
// never descends into, grounded on internal/config's defaultExcludePatterns
// basenames (generalized from globs to bare names, same reasoning as
// internal/discovery's skip list).
var excludedDirNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".semcode":     true,
}

// excludedSuffixes are compound suffixes dropped regardless of language
// registration: lock files, minified bundles, map files, type-declaration
// files, generated protobuf, snapshots.
var excludedSuffixes = []string{
	".min.js",
	".min.css",
	".map",
	".d.ts",
	".pb.go",
	".snap",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
}

// filter decides whether raw filesystem events should be surfaced,
// applying spec.md §4.8's filter rules.
type filter struct {
	languages  *chunk.LanguageRegistry
	extraDirs  map[string]bool
}

func newFilter(extraExcludeDirs []string) *filter {
	extra := make(map[string]bool, len(extraExcludeDirs))
	for _, d := range extraExcludeDirs {
		extra[d] = true
	}
	return &filter{
		languages: chunk.NewLanguageRegistry(),
		extraDirs: extra,
	}
}

// isExcludedDir reports whether a directory (by basename) should never be
// descended into.
func (f *filter) isExcludedDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return excludedDirNames[name] || f.extraDirs[name]
}

// pathWithinExcludedDir reports whether any path component of relPath
// names an excluded directory.
func (f *filter) pathWithinExcludedDir(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == "" || part == "." {
			continue
		}
		if f.isExcludedDir(part) {
			return true
		}
	}
	return false
}

func hasExcludedSuffix(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// markdownExtensions are indexable even though they carry no tree-sitter
// grammar in chunk.LanguageRegistry — the Synchroniser routes them to
// chunk.MarkdownChunker instead of chunk.CodeChunker.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
}

func (f *filter) isIndexableLanguage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if markdownExtensions[ext] {
		return true
	}
	_, ok := f.languages.GetByExtension(ext)
	return ok
}

// allowCreateOrModify applies the full filter rule set for create/modify
// events: excluded directory, excluded extension/suffix, empty file, and
// indexable-language checks.
func (f *filter) allowCreateOrModify(absPath, relPath string) bool {
	if f.pathWithinExcludedDir(relPath) {
		return false
	}
	if hasExcludedSuffix(relPath) {
		return false
	}
	if !f.isIndexableLanguage(relPath) {
		return false
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		return false
	}
	if info.Size() == 0 {
		return false
	}
	return true
}

// allowRemove applies the relaxed filter for remove events: only the
// excluded-directory check, never the extension filter (spec.md §4.8 —
// some platforms report a directory removal as a single event on the
// directory path without listing the files inside).
func (f *filter) allowRemove(relPath string) bool {
	return !f.pathWithinExcludedDir(relPath)
}
