package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestSearchCmd_RequiresIndex(t *testing.T) {
	chdir(t, t.TempDir())

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"search", "test query"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"search"})

	require.Error(t, root.Execute())
}

func TestIndexThenSearchCmd_FindsIndexedFunction(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"),
		[]byte("package main\n\nfunc handleRequest() {\n\tprintln(\"ok\")\n}\n"), 0o644))
	chdir(t, project)

	indexBuf := &bytes.Buffer{}
	indexCmd := NewRootCmd()
	indexCmd.SetOut(indexBuf)
	indexCmd.SetErr(indexBuf)
	indexCmd.SetArgs([]string{"index"})
	require.NoError(t, indexCmd.Execute())

	searchBuf := &bytes.Buffer{}
	searchCmd := NewRootCmd()
	searchCmd.SetOut(searchBuf)
	searchCmd.SetErr(searchBuf)
	searchCmd.SetArgs([]string{"search", "handleRequest", "--format", "json"})
	require.NoError(t, searchCmd.Execute())

	assert.Contains(t, searchBuf.String(), "handleRequest")
}
