package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchRefresh_ReconvergesAfterCheckoutSwitch(t *testing.T) {
	coord, facade, root := setupTestCoordinator(t)
	writeMetadata(t, facade, coord.cfg.ModelName)

	alpha := filepath.Join(root, "alpha.go")
	require.NoError(t, os.WriteFile(alpha, []byte("package root\nfunc Alpha(){}\n"), 0o644))
	require.NoError(t, coord.StartupRefresh(context.Background()))

	// Simulate a checkout swap: alpha.go disappears, beta.go appears,
	// as if `git checkout` had rewritten the working tree.
	require.NoError(t, os.Remove(alpha))
	beta := filepath.Join(root, "beta.go")
	require.NoError(t, os.WriteFile(beta, []byte("package root\nfunc Beta(){}\n"), 0o644))

	require.NoError(t, coord.BranchRefresh(context.Background()))

	reader := facade.NewReader()
	_, ok := reader.FileMeta().Get(alpha)
	assert.False(t, ok)

	entry, ok := reader.FileMeta().Get(beta)
	require.True(t, ok)
	assert.NotEmpty(t, entry.ChunkIDs)
}
