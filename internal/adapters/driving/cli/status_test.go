package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, seedDocument("doc-1", "Status check content."))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Documents:      1")
	assert.Contains(t, out, "Chunks:         1")
	assert.Contains(t, out, "Vector backend: hnsw")
	assert.Contains(t, out, "stub-embed")
	assert.Contains(t, out, "Embedding API:  ok")
}

func TestStatusCmd_NoStore(t *testing.T) {
	cleanup := setupTestServices()
	cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
}
