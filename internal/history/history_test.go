package history

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, dir, name, content, msg, author string) {
	t.Helper()
	r, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	_, err = wt.Add(name)
	require.NoError(t, err)

	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: author, Email: author + "@test.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func TestWalk_CollectsFilesAndCommits(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.py", "def foo(): pass\n", "add foo", "alice")
	commitFile(t, dir, "b.py", "def bar(): pass\n", "add bar (refs #42)", "bob")

	g, err := Walk(Config{RepoPath: dir})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.py", "b.py"}, g.Files())
	assert.Len(t, g.Commits(), 2)
	assert.Equal(t, 2, g.Size())
}

func TestWalk_FileRelatedCommitsAndIssues(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.py", "x = 1\n", "init", "alice")
	commitFile(t, dir, "a.py", "x = 2\n", "fix bug (refs #7)", "alice")

	g, err := Walk(Config{RepoPath: dir, IssueRegex: regexp.MustCompile(`#\d+`)})
	require.NoError(t, err)

	require.Len(t, g.FileRelatedCommits("a.py"), 2)
	assert.Contains(t, g.FileRelatedIssues("a.py"), "#7")
}

func TestWalk_AuthorExcludeRegexDropsCommit(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.py", "x = 1\n", "init", "alice")
	commitFile(t, dir, "bot.py", "x = 2\n", "automated update", "ci-bot")

	g, err := Walk(Config{RepoPath: dir, AuthorExcludeRegex: regexp.MustCompile(`^ci-bot$`)})
	require.NoError(t, err)

	assert.NotContains(t, g.Files(), "bot.py")
	assert.Len(t, g.Commits(), 1)
}

func TestWalk_CommitExcludeRegexDropsCommit(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.py", "x = 1\n", "init", "alice")
	commitFile(t, dir, "merge.py", "x = 2\n", "Merge branch 'main'", "alice")

	g, err := Walk(Config{RepoPath: dir, CommitExcludeRegex: regexp.MustCompile(`^Merge`)})
	require.NoError(t, err)

	assert.NotContains(t, g.Files(), "merge.py")
}

func TestWalk_DepthLimitsCommitCount(t *testing.T) {
	dir := initRepo(t)
	commitFile(t, dir, "a.py", "1\n", "c1", "alice")
	commitFile(t, dir, "b.py", "2\n", "c2", "alice")
	commitFile(t, dir, "c.py", "3\n", "c3", "alice")

	g, err := Walk(Config{RepoPath: dir, Depth: 2})
	require.NoError(t, err)
	assert.Len(t, g.Commits(), 2)
}

func TestWalk_NotARepoReturnsError(t *testing.T) {
	_, err := Walk(Config{RepoPath: t.TempDir()})
	assert.Error(t, err)
}
