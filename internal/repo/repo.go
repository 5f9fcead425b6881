// Package repo resolves a tree at a commit SHA (or HEAD) and fetches blob
// bytes for a path, classifying each blob as UTF-8 text or binary before
// handing it to the extractor.
//
// Adapted from the teacher's internal/git package (petar-djukic-go-coder),
// which wraps go-git/v5 for auto-commit and undo; this package keeps the
// same go-git wrapping style but narrows it to read-only tree/blob access.
package repo

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoGit is returned when path is not a git repository.
var ErrNoGit = errors.New("not a git repository")

// ErrBinaryOrNonUTF8 is returned by Blob when the resolved content is not
// valid UTF-8 text.
var ErrBinaryOrNonUTF8 = errors.New("binary or non-utf8 content")

// Repo wraps a go-git repository for read-only tree and blob access.
type Repo struct {
	repo *gogit.Repository
}

// Open opens the git repository at path.
func Open(path string) (*Repo, error) {
	r, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	return &Repo{repo: r}, nil
}

// Tree resolves the tree for commitID, or HEAD's tree if commitID is empty.
func (r *Repo) Tree(commitID string) (*object.Tree, error) {
	var hash plumbing.Hash
	if commitID == "" {
		head, err := r.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD: %w", err)
		}
		hash = head.Hash()
	} else {
		hash = plumbing.NewHash(commitID)
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", commitID, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolving tree for %s: %w", commitID, err)
	}
	return tree, nil
}

// Files returns every regular file path tracked by tree.
func Files(tree *object.Tree) ([]string, error) {
	var paths []string
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walking tree: %w", err)
		}
		if !entry.Mode.IsFile() {
			continue
		}
		paths = append(paths, name)
	}
	return paths, nil
}

// BlobID returns the blob hash of path within tree, used as the cache's
// content-address key.
func BlobID(tree *object.Tree, path string) (string, error) {
	entry, err := tree.FindEntry(path)
	if err != nil {
		return "", fmt.Errorf("resolving entry %s: %w", path, err)
	}
	return entry.Hash.String(), nil
}

// Blob returns the UTF-8 text content of path within tree. It returns
// ErrBinaryOrNonUTF8 (never a panic) when the content contains a NUL byte
// or is not valid UTF-8, matching the file-level, non-fatal classification
// spec.md §7 assigns to unreadable source files.
func Blob(tree *object.Tree, path string) ([]byte, error) {
	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if IsBinaryOrNonUTF8(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrBinaryOrNonUTF8)
	}
	return data, nil
}

// IsBinaryOrNonUTF8 reports whether data should be treated as non-text:
// either it contains a NUL byte, or it fails UTF-8 validation.
func IsBinaryOrNonUTF8(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(data)
}
