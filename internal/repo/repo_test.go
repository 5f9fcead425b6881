package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	r, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@test.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestOpen_NotARepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNoGit)
}

func TestTreeAndBlob_HEAD(t *testing.T) {
	dir := initRepoWithFiles(t, map[string]string{"a.go": "package main\n"})
	r, err := Open(dir)
	require.NoError(t, err)

	tree, err := r.Tree("")
	require.NoError(t, err)

	files, err := Files(tree)
	require.NoError(t, err)
	assert.Contains(t, files, "a.go")

	data, err := Blob(tree, "a.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
}

func TestBlob_BinaryReturnsError(t *testing.T) {
	dir := initRepoWithFiles(t, map[string]string{"bin.dat": "ab\x00cd"})
	r, err := Open(dir)
	require.NoError(t, err)
	tree, err := r.Tree("")
	require.NoError(t, err)

	_, err = Blob(tree, "bin.dat")
	assert.ErrorIs(t, err, ErrBinaryOrNonUTF8)
}

func TestIsBinaryOrNonUTF8(t *testing.T) {
	assert.False(t, IsBinaryOrNonUTF8([]byte("hello world")))
	assert.True(t, IsBinaryOrNonUTF8([]byte{0x00, 0x01}))
	assert.True(t, IsBinaryOrNonUTF8([]byte{0xff, 0xfe, 0xfd}))
}
