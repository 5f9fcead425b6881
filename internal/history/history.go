// Package history implements the Git history collector collaborator of
// spec.md §6: walk(config) -> RelationGraph exposing files, commits, and
// file<->commit<->issue mappings over a bounded commit window.
//
// Adapted from the teacher's internal/git package (petar-djukic-go-coder),
// which opens a go-git repository and walks its commit log for auto-commit
// bookkeeping; this package reuses the same go-git wrapping style but walks
// history read-only to build a RelationGraph instead of writing commits.
package history

import (
	"fmt"
	"regexp"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Config configures one history walk. Mirrors spec.md §6's History
// collector config fields.
type Config struct {
	RepoPath           string
	Depth              int
	AuthorExcludeRegex *regexp.Regexp
	CommitExcludeRegex *regexp.Regexp
	IssueRegex         *regexp.Regexp
}

// RelationGraph is the external Git-derived graph of files<->commits<->
// issues the resolver consumes but never mutates.
type RelationGraph struct {
	files           []string
	commits         []string
	fileCommits     map[string][]string
	commitFiles     map[string][]string
	fileIssues      map[string][]string
	commitFileCount map[string]int
}

// Files returns every file path touched by a commit in the walked window,
// sorted lexicographically.
func (g *RelationGraph) Files() []string { return g.files }

// Commits returns every commit SHA in the walked window.
func (g *RelationGraph) Commits() []string { return g.commits }

// FileRelatedCommits returns the commit SHAs that touched f.
func (g *RelationGraph) FileRelatedCommits(f string) []string {
	return g.fileCommits[f]
}

// CommitRelatedFiles returns the file paths touched by commit c.
func (g *RelationGraph) CommitRelatedFiles(c string) []string {
	return g.commitFiles[c]
}

// FileRelatedIssues returns the issue references found in commit messages
// that touched f.
func (g *RelationGraph) FileRelatedIssues(f string) []string {
	return g.fileIssues[f]
}

// CommitFileCount returns how many files commit c touched, used by the
// resolver's commit_size_limit_ratio filter.
func (g *RelationGraph) CommitFileCount(c string) int {
	return g.commitFileCount[c]
}

// Size returns the number of commits in the graph.
func (g *RelationGraph) Size() int { return len(g.commits) }

// Walk opens cfg.RepoPath and walks up to cfg.Depth commits from HEAD,
// applying the author/commit exclude regexes and collecting issue
// references per cfg.IssueRegex. Any failure here is a HistoryError and
// fatal to the caller's build, per spec.md §7.
func Walk(cfg Config) (*RelationGraph, error) {
	repo, err := gogit.PlainOpen(cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	iter, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("walking commit log: %w", err)
	}

	g := &RelationGraph{
		fileCommits:     make(map[string][]string),
		commitFiles:     make(map[string][]string),
		fileIssues:      make(map[string][]string),
		commitFileCount: make(map[string]int),
	}
	fileSet := make(map[string]struct{})

	depth := cfg.Depth
	if depth <= 0 {
		depth = 10240
	}

	count := 0
	walkErr := iter.ForEach(func(c *object.Commit) error {
		if count >= depth {
			return storer.ErrStop
		}
		count++

		if cfg.AuthorExcludeRegex != nil && cfg.AuthorExcludeRegex.MatchString(c.Author.Name) {
			return nil
		}
		if cfg.CommitExcludeRegex != nil && cfg.CommitExcludeRegex.MatchString(c.Message) {
			return nil
		}

		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("reading stats for %s: %w", c.Hash.String(), err)
		}

		sha := c.Hash.String()
		g.commits = append(g.commits, sha)
		g.commitFileCount[sha] = len(stats)

		var issues []string
		if cfg.IssueRegex != nil {
			issues = cfg.IssueRegex.FindAllString(c.Message, -1)
		}

		for _, stat := range stats {
			fileSet[stat.Name] = struct{}{}
			g.commitFiles[sha] = append(g.commitFiles[sha], stat.Name)
			g.fileCommits[stat.Name] = append(g.fileCommits[stat.Name], sha)
			if len(issues) > 0 {
				g.fileIssues[stat.Name] = append(g.fileIssues[stat.Name], issues...)
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != storer.ErrStop {
		return nil, fmt.Errorf("walking commit log: %w", walkErr)
	}

	g.files = make([]string, 0, len(fileSet))
	for f := range fileSet {
		g.files = append(g.files, f)
	}
	sort.Strings(g.files)

	return g, nil
}
