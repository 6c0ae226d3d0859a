package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flupkede/codesearch/internal/discovery"
)

func TestIndexCmd_BootstrapsNewDatabase(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"),
		[]byte("package main\n\nfunc main() {}\n"), 0o644))
	chdir(t, project)

	root := NewRootCmd()
	root.SetArgs([]string{"index"})
	require.NoError(t, root.Execute())

	dbDir := filepath.Join(project, discovery.DBDirName)
	assert.True(t, discovery.IsValidDatabase(dbDir))
}

func TestIndexCmd_ForceRefusesExistingDatabase(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"),
		[]byte("package main\n\nfunc main() {}\n"), 0o644))
	chdir(t, project)

	first := NewRootCmd()
	first.SetArgs([]string{"index"})
	require.NoError(t, first.Execute())

	second := NewRootCmd()
	second.SetArgs([]string{"index", "--force"})
	err := second.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestIndexCmd_IncrementalRunSucceedsWithoutForce(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"),
		[]byte("package main\n\nfunc main() {}\n"), 0o644))
	chdir(t, project)

	first := NewRootCmd()
	first.SetArgs([]string{"index"})
	require.NoError(t, first.Execute())

	second := NewRootCmd()
	second.SetArgs([]string{"index"})
	require.NoError(t, second.Execute())
}
