package sync

import "context"

// BranchRefresh implements spec.md §4.10.3: identical in shape to
// StartupRefresh but with two twists. It assumes the database already
// exists (the caller has it open), so it skips the metadata.json
// precondition, and it is safe to run concurrently with ongoing
// queries because all writes go through the Shared Store Facade's
// write side while readers keep using their own Reader handles. The
// File Watcher is expected to already be running before this is
// called, so events that land mid-refresh are simply buffered by the
// event loop and flushed afterward.
func (c *Coordinator) BranchRefresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, err := c.cfg.Facade.AcquireWriter()
	if err != nil {
		return err
	}
	defer func() { _ = w.Release() }()

	return c.refreshLocked(ctx, w)
}
