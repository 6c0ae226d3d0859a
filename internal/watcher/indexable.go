package watcher

import (
	"path/filepath"
	"strings"
)

// IsMarkdownPath reports whether relPath is one of the markdown
// extensions the Synchroniser routes to chunk.MarkdownChunker rather
// than chunk.CodeChunker.
func IsMarkdownPath(relPath string) bool {
	return markdownExtensions[strings.ToLower(filepath.Ext(relPath))]
}

// IsIndexablePath reports whether relPath would survive the watcher's
// create/modify filter rules (excluded directory, excluded suffix,
// indexable language), aside from the filesystem stat checks the live
// watcher applies to actual events. The Synchroniser's tree walk uses this
// so "indexable" means the same thing whether a file arrives via a watch
// event or a startup/branch-refresh scan (spec.md §4.8 calls this "the
// shared excluded-directory list").
func IsIndexablePath(relPath string) bool {
	f := newFilter(nil)
	if f.pathWithinExcludedDir(relPath) {
		return false
	}
	if hasExcludedSuffix(relPath) {
		return false
	}
	return f.isIndexableLanguage(relPath)
}

// IsExcludedDirPath reports whether relPath has any path component naming
// an excluded directory.
func IsExcludedDirPath(relPath string) bool {
	return newFilter(nil).pathWithinExcludedDir(relPath)
}
