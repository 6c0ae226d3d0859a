// Package pathutil implements the path normalisation rule that must hold
// identically everywhere paths are stored or compared (spec.md §6): made
// absolute, UNC/long-path prefixes stripped, backslashes converted to
// forward slashes, no trailing slash.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize converts path to its canonical on-disk representation. base is
// used to resolve relative paths; pass "" to resolve against the process's
// working directory.
func Normalize(base, path string) string {
	abs := path
	if !filepath.IsAbs(abs) {
		if base != "" {
			abs = filepath.Join(base, abs)
		}
	}
	abs, err := filepath.Abs(abs)
	if err != nil {
		abs = path
	}

	abs = stripUNCPrefix(abs)
	abs = strings.ReplaceAll(abs, "\\", "/")
	for len(abs) > 1 && strings.HasSuffix(abs, "/") {
		abs = abs[:len(abs)-1]
	}
	return abs
}

// stripUNCPrefix removes Windows long-path (\\?\) and UNC (\\?\UNC\) prefixes.
func stripUNCPrefix(p string) string {
	const longPathPrefix = `\\?\`
	const uncLongPathPrefix = `\\?\UNC\`
	if strings.HasPrefix(p, uncLongPathPrefix) {
		return `\\` + p[len(uncLongPathPrefix):]
	}
	if strings.HasPrefix(p, longPathPrefix) {
		return p[len(longPathPrefix):]
	}
	return p
}
