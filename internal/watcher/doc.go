// Package watcher provides a debounced, recursive file system watcher
// (spec.md §4.8).
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: polling, for environments where fsnotify fails (network
//     mounts, some container filesystems)
//
// Rapid raw events are debounced and coalesced per path before being
// surfaced as Modified or Deleted; FSWatcher reports a rename as Deleted
// at the old path and Modified at the new one, and never emits the
// Renamed kind of the FileEvent type. Events
// are filtered against a built-in excluded-directory list and an
// excluded-extension/suffix list; create/modify events additionally
// require a non-empty file mapping to an indexable language, while
// remove events skip the extension filter entirely (a removed directory
// may be reported as one event on the directory path).
//
// Usage:
//
//	w, err := watcher.New("/path/to/project", watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx)
//
//	for {
//	    for _, event := range w.PollEvents() {
//	        switch event.Kind {
//	        case watcher.Modified:
//	            // re-chunk and re-embed event.Path
//	        case watcher.Deleted:
//	            // remove event.Path's owned chunks
//	        case watcher.Renamed:
//	            // treat as Deleted(event.OldPath) + Modified(event.Path)
//	        }
//	    }
//	    time.Sleep(pollInterval)
//	}
package watcher
