package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	semerrors "github.com/flupkede/codesearch/internal/errors"
	"github.com/flupkede/codesearch/internal/pathutil"
	"github.com/flupkede/codesearch/internal/watcher"
)

// diskFile is one indexable file found by walkProject, identified by its
// normalised path (spec.md §6).
type diskFile struct {
	NormPath string
	Size     int64
	ModTime  time.Time
}

// walkProject produces the disk file set D from spec.md §4.10.1 step 2:
// every indexable, non-empty, non-symlink, non-oversized file under
// root, skipping excluded directories. Grounded on the teacher's
// scanner.go walk shape, generalized to use the shared
// watcher.IsExcludedDirPath/IsIndexablePath filter instead of gitignore
// matching.
func walkProject(root string, maxFileSize int64) ([]diskFile, error) {
	var files []diskFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if rel != "." && watcher.IsExcludedDirPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// d.Type() reports the on-disk entry type without following a
		// symlink, matching the teacher's os.Lstat-based symlink skip.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !watcher.IsIndexablePath(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || info.Size() > maxFileSize {
			return nil
		}

		files = append(files, diskFile{
			NormPath: pathutil.Normalize(root, rel),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, semerrors.IOError("failed to walk project tree", err)
	}
	return files, nil
}

// hashFile returns the hex-encoded SHA-256 of a file's content, the
// change-detection key spec.md §4.10.1's check_file step compares
// against the File-Meta Store.
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return sha256Hex(data), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isBinaryContent reports whether content looks binary, by the
// teacher's null-byte heuristic.
func isBinaryContent(content []byte) bool {
	probe := content
	if len(probe) > 512 {
		probe = probe[:512]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
