// internal/sync/engine.go
package sync

import (
	"context"
	"errors"
	"fmt"

	"knowtree/internal/history"
)

// ErrReferenceNotFound is returned when the checkpoint commit cannot be
// resolved. The checkpoint is likely stale or invalid; callers must not retry
// blindly.
var ErrReferenceNotFound = errors.New("reference commit not found")

// ErrSourceUnavailable is returned when a listing request fails after the
// reference commit was resolved. The engine never retries; retry policy
// belongs to the caller.
var ErrSourceUnavailable = errors.New("history source unavailable")

// CommitRef is the reduced form of a synced commit: its identifier and the
// first line of its message.
type CommitRef struct {
	ID      string `json:"commit_id"`
	Summary string `json:"description"`
}

// Engine collects commits that appeared after a recorded checkpoint. It only
// reads; committing the checkpoint afterwards is the caller's decision.
type Engine struct {
	source history.Source
}

// NewEngine creates an Engine backed by the given history source.
func NewEngine(source history.Source) *Engine {
	return &Engine{source: source}
}

// CommitsSince returns up to maxCommits commits newer than sinceSHA on the
// given branch, newest first, in source order. The reference commit itself is
// never included, even when the source returns it at the time boundary.
func (e *Engine) CommitsSince(ctx context.Context, repoID, sinceSHA, branch string, maxCommits int) ([]CommitRef, error) {
	ref, err := e.source.Commit(ctx, repoID, sinceSHA)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReferenceNotFound, sinceSHA, err)
	}

	// The boundary must be the committer date: listings filter on it, and for
	// a rebased checkpoint the author date can lie arbitrarily far back,
	// resurfacing commits that were already synced.
	since := ref.CommitDate
	if since.IsZero() {
		since = ref.Date
	}

	perPage := maxCommits
	if perPage > 100 {
		perPage = 100
	}

	var refs []CommitRef
	for page := 1; len(refs) < maxCommits; page++ {
		commits, err := e.source.List(ctx, repoID, history.ListOptions{
			Branch:  branch,
			Since:   since,
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrSourceUnavailable, page, err)
		}

		if len(commits) == 0 {
			break
		}

		for _, commit := range commits {
			// The since filter is timestamp-based and inclusive, so the
			// reference commit can come back at the boundary.
			if commit.SHA == sinceSHA {
				continue
			}
			refs = append(refs, CommitRef{ID: commit.SHA, Summary: commit.Summary()})
			if len(refs) >= maxCommits {
				break
			}
		}

		// A short page means the source ran out of data.
		if len(commits) < perPage {
			break
		}
	}

	return refs, nil
}

// LatestCommits returns a single page of the most recent commits on the given
// branch, without a time filter. This is the first-sync path: a quick
// snapshot, deliberately not a full backfill, so it never pages further.
func (e *Engine) LatestCommits(ctx context.Context, repoID, branch string, maxCommits int) ([]CommitRef, error) {
	perPage := maxCommits
	if perPage > 10 {
		perPage = 10
	}

	commits, err := e.source.List(ctx, repoID, history.ListOptions{
		Branch:  branch,
		Page:    1,
		PerPage: perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	refs := make([]CommitRef, 0, len(commits))
	for _, commit := range commits {
		refs = append(refs, CommitRef{ID: commit.SHA, Summary: commit.Summary()})
	}
	return refs, nil
}
