// Package headwatcher implements spec.md §4.9's Head Watcher: a
// cheap-to-poll detector for HEAD changes (checkouts, branch switches,
// commits moving the current branch tip).
package headwatcher

import (
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

// HeadChange is returned by Check when the HEAD file's content has
// changed since the previous call.
type HeadChange struct {
	Old string
	New string
}

// Watcher resolves the repository's HEAD file once at construction
// (following worktree gitdir redirection via go-git) and thereafter
// checks it with a raw file read, never re-invoking go-git's ref
// resolution. This keeps the steady-state cost at "one small file read",
// safe for the ~10 Hz polling spec.md §4.9 calls for.
type Watcher struct {
	headPath string
	lastSeen string
	primed   bool
}

// New resolves the HEAD file under projectPath, handling both a plain
// `.git` directory and a worktree's `gitdir:` redirection file, via
// go-git's DetectDotGit option.
func New(projectPath string) (*Watcher, error) {
	repo, err := git.PlainOpenWithOptions(projectPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, semerrors.NotFound("no git repository found at or above "+projectPath, err)
	}

	storer, ok := repo.Storer.(*filesystem.Storage)
	if !ok {
		return nil, semerrors.Invalid("git repository storage is not filesystem-backed", nil)
	}

	fs := storer.Filesystem()
	headPath := fs.Join(fs.Root(), "HEAD")

	if _, err := os.Stat(headPath); err != nil {
		return nil, semerrors.NotFound("HEAD file not found at "+headPath, err)
	}

	return &Watcher{headPath: headPath}, nil
}

// Check reads the HEAD file and compares it to the last observed
// content. The first call primes the cache and always returns (nil, nil)
// — "no change" — regardless of content. Subsequent calls return a
// HeadChange when the content differs.
func (w *Watcher) Check() (*HeadChange, error) {
	content, err := os.ReadFile(w.headPath)
	if err != nil {
		return nil, semerrors.IOError("failed to read HEAD file", err)
	}
	current := string(content)

	if !w.primed {
		w.primed = true
		w.lastSeen = current
		return nil, nil
	}

	if current == w.lastSeen {
		return nil, nil
	}

	change := &HeadChange{Old: w.lastSeen, New: current}
	w.lastSeen = current
	return change, nil
}

// HeadPath returns the resolved absolute path of the HEAD file being
// watched.
func (w *Watcher) HeadPath() string {
	return w.headPath
}
