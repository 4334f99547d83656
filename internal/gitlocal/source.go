// internal/gitlocal/source.go
package gitlocal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"knowtree/internal/history"
)

// Source serves commit history from local clones, so syncs and diff
// formatting work without the GitHub API. It implements history.Source:
// repoIDs are paths resolved against the base directory (or used as-is when
// the base directory is empty).
type Source struct {
	baseDir string

	mu    sync.Mutex
	repos map[string]*git.Repository
}

// NewSource creates a Source resolving repoIDs under baseDir.
func NewSource(baseDir string) *Source {
	return &Source{
		baseDir: baseDir,
		repos:   make(map[string]*git.Repository),
	}
}

// FromRepository creates a Source pre-seeded with an open repository under
// the given id. Used for repositories not backed by the filesystem.
func FromRepository(repoID string, repo *git.Repository) *Source {
	return &Source{
		repos: map[string]*git.Repository{repoID: repo},
	}
}

func (s *Source) repository(repoID string) (*git.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if repo, ok := s.repos[repoID]; ok {
		return repo, nil
	}

	path := repoID
	if s.baseDir != "" {
		path = filepath.Join(s.baseDir, repoID)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", path, err)
	}
	s.repos[repoID] = repo
	return repo, nil
}

// Commit returns the full detail for a single commit.
func (s *Source) Commit(_ context.Context, repoID, sha string) (*history.Detail, error) {
	repo, err := s.repository(repoID)
	if err != nil {
		return nil, err
	}

	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", sha, err)
	}

	detail := &history.Detail{
		SHA:     commit.Hash.String(),
		Message: strings.TrimRight(commit.Message, "\n"),
		Author: history.Signature{
			Name:  commit.Author.Name,
			Email: commit.Author.Email,
		},
		Date:       commit.Author.When.UTC(),
		CommitDate: commit.Committer.When.UTC(),
	}

	files, stats, err := fileChanges(commit)
	if err != nil {
		return nil, err
	}
	detail.Files = files
	detail.Stats = stats

	return detail, nil
}

// List returns one page of commits, newest first, starting from the branch
// tip.
func (s *Source) List(_ context.Context, repoID string, opts history.ListOptions) ([]history.Commit, error) {
	repo, err := s.repository(repoID)
	if err != nil {
		return nil, err
	}

	from, err := resolveBranch(repo, opts.Branch)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}
	defer iter.Close()

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 30
	}
	skip := (page - 1) * perPage

	var commits []history.Commit
	matched := 0
	err = iter.ForEach(func(c *object.Commit) error {
		if !opts.Since.IsZero() && c.Committer.When.Before(opts.Since) {
			// Log walks newest to oldest; everything from here on is older.
			return storerStop
		}
		matched++
		if matched <= skip {
			return nil
		}
		commits = append(commits, history.Commit{
			SHA:     c.Hash.String(),
			Message: strings.TrimRight(c.Message, "\n"),
			Date:    c.Committer.When.UTC(),
		})
		if len(commits) >= perPage {
			return storerStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storerStop) {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}

	return commits, nil
}

// storerStop ends a commit walk early.
var storerStop = errors.New("stop iteration")

// resolveBranch returns the hash the walk starts from: the named branch, or
// HEAD when no branch is given.
func resolveBranch(repo *git.Repository, branch string) (plumbing.Hash, error) {
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		return head.Hash(), nil
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		// Allow arbitrary revisions (tags, shas) as branch argument.
		hash, revErr := repo.ResolveRevision(plumbing.Revision(branch))
		if revErr != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to resolve branch %s: %w", branch, err)
		}
		return *hash, nil
	}
	return ref.Hash(), nil
}

// fileChanges diffs a commit against its first parent (or the empty tree for
// a root commit) and maps the result to history file changes.
func fileChanges(commit *object.Commit) ([]history.FileChange, *history.Stats, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tree: %w", err)
	}

	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load parent: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load parent tree: %w", err)
		}
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	var files []history.FileChange
	total := &history.Stats{}
	for _, change := range changes {
		patch, err := change.Patch()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build patch: %w", err)
		}

		fc := history.FileChange{
			Path:   changePath(change),
			Status: changeStatus(change),
			Patch:  strings.TrimRight(patch.String(), "\n"),
		}
		for _, stat := range patch.Stats() {
			fc.Additions += stat.Addition
			fc.Deletions += stat.Deletion
		}
		total.Additions += fc.Additions
		total.Deletions += fc.Deletions
		files = append(files, fc)
	}

	return files, total, nil
}

func changePath(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}

func changeStatus(change *object.Change) string {
	switch {
	case change.From.Name == "":
		return "added"
	case change.To.Name == "":
		return "removed"
	case change.From.Name != change.To.Name:
		return "renamed"
	default:
		return "modified"
	}
}
