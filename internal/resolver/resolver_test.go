package resolver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/73ai/gossiphs/internal/config"
	"github.com/73ai/gossiphs/internal/extractor"
	"github.com/73ai/gossiphs/internal/rule"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func commitFiles(t *testing.T, dir string, files map[string]string, msg string) {
	t.Helper()
	r, err := gogit.PlainOpen(dir)
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

	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@test.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func newBuilder(t *testing.T, projectPath string) *Builder {
	t.Helper()
	reg, err := rule.NewRegistry()
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.ProjectPath = projectPath

	b, err := NewBuilder(cfg, reg, nil, zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestBuild_PythonCoEditProducesSymbolEdges(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, map[string]string{
		"a.py": "def foo():\n    pass\n",
		"b.py": "foo()\n",
	}, "wire a and b")

	b := newBuilder(t, dir)
	g, _, err := b.Build()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.py", "b.py"}, g.Files())

	defs := g.ListDefinitions("a.py")
	require.Len(t, defs, 1)
	assert.Equal(t, "foo", defs[0].Name)

	refs := g.ListReferences("b.py")
	require.Len(t, refs, 1)

	neighbors := g.ListReferencesByDefinition(defs[0].ID)
	require.Contains(t, neighbors, refs[0])
}

func TestBuild_InvalidUTF8FileIsSkipped(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, map[string]string{
		"good.py": "def foo():\n    pass\n",
		"bad.py":  string([]byte{0xff, 0xfe, 0x00, 0x01}),
	}, "add good and bad")

	b := newBuilder(t, dir)
	g, _, err := b.Build()
	require.NoError(t, err)

	assert.Contains(t, g.Files(), "good.py")
	assert.NotContains(t, g.Files(), "bad.py")
}

func TestBuild_UnknownExtensionIsSkipped(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, map[string]string{
		"notes.txt": "hello world\n",
		"main.go":   "package main\n\nfunc main() {}\n",
	}, "add notes and main")

	b := newBuilder(t, dir)
	g, _, err := b.Build()
	require.NoError(t, err)

	assert.NotContains(t, g.Files(), "notes.txt")
	assert.Contains(t, g.Files(), "main.go")
}

func TestBuild_IsDeterministicAcrossRuns(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, map[string]string{
		"a.py": "def foo():\n    pass\n",
		"b.py": "foo()\n",
		"c.py": "foo()\n",
	}, "wire three files")

	b := newBuilder(t, dir)
	g1, _, err := b.Build()
	require.NoError(t, err)
	g2, _, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, g1.Files(), g2.Files())

	defs1 := g1.ListDefinitions("a.py")
	defs2 := g2.ListDefinitions("a.py")
	require.Len(t, defs1, 1)
	require.Len(t, defs2, 1)
	assert.Equal(t, defs1[0].ID, defs2[0].ID)

	n1 := g1.ListReferencesByDefinition(defs1[0].ID)
	n2 := g2.ListReferencesByDefinition(defs2[0].ID)
	assert.Equal(t, n1, n2)
}

// TestBuild_NestedReferenceResolvesAcrossScopeAmbiguity reproduces spec.md
// §8 scenario 2: a call to validate nested inside AuthService.login gets
// FQN "AuthService.login.validate", which must resolve to the def
// "AuthService.validate" in the same file rather than the unrelated
// "DataService.validate" def in data.py that happens to share its simple
// name. The two files are committed separately so each commit touches fewer
// files than the repository holds and counts as valid co-edit evidence.
func TestBuild_NestedReferenceResolvesAcrossScopeAmbiguity(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, map[string]string{
		"auth.py": "class AuthService:\n" +
			"    def login(self):\n" +
			"        self.validate()\n" +
			"    def validate(self):\n" +
			"        pass\n",
	}, "add auth service")
	commitFiles(t, dir, map[string]string{
		"data.py": "class DataService:\n" +
			"    def validate(self):\n" +
			"        pass\n",
	}, "add data service")

	b := newBuilder(t, dir)
	g, _, err := b.Build()
	require.NoError(t, err)

	var authValidate extractor.Symbol
	for _, d := range g.ListDefinitions("auth.py") {
		if d.Name == "AuthService.validate" {
			authValidate = d
		}
	}
	require.NotEmpty(t, authValidate.ID, "AuthService.validate def should survive extraction")

	var dataValidate extractor.Symbol
	for _, d := range g.ListDefinitions("data.py") {
		if d.Name == "DataService.validate" {
			dataValidate = d
		}
	}
	require.NotEmpty(t, dataValidate.ID, "DataService.validate def should survive extraction")

	authNeighbors := g.ListReferencesByDefinition(authValidate.ID)
	assert.NotEmpty(t, authNeighbors, "nested reference should resolve to the same-scope definition")

	dataNeighbors := g.ListReferencesByDefinition(dataValidate.ID)
	assert.Empty(t, dataNeighbors, "nested reference must not resolve to an unrelated same-name definition")
}

func TestBuild_ExcludeFileRegexDropsFiles(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, map[string]string{
		"a.py":      "def foo():\n    pass\n",
		"a_test.py": "def test_foo():\n    pass\n",
	}, "add source and test")

	reg, err := rule.NewRegistry()
	require.NoError(t, err)
	cfg := config.Defaults()
	cfg.ProjectPath = dir
	cfg.ExcludeFileRegex = `_test\.py$`

	b, err := NewBuilder(cfg, reg, nil, zerolog.Nop())
	require.NoError(t, err)

	g, _, err := b.Build()
	require.NoError(t, err)

	assert.Contains(t, g.Files(), "a.py")
	assert.NotContains(t, g.Files(), "a_test.py")
}
