// internal/history/history.go
package history

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Source implementations when a commit does not
// exist in the repository.
var ErrNotFound = errors.New("commit not found")

// Commit is a single entry of a commit listing, newest first.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// Summary returns the first line of the commit message.
func (c Commit) Summary() string {
	summary, _, _ := strings.Cut(c.Message, "\n")
	return summary
}

// Signature identifies a commit author.
type Signature struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Stats holds aggregate line counts for a commit.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// FileChange describes one file touched by a commit.
type FileChange struct {
	Path      string `json:"path"`
	Status    string `json:"status"` // "added", "removed", "modified", "renamed"
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// Detail is the full payload for a single commit. Date is the author date,
// shown in formatted output; CommitDate is the committer date, which is what
// listings filter on. The two differ for rebased or cherry-picked commits.
type Detail struct {
	SHA        string       `json:"sha"`
	Message    string       `json:"message"`
	Author     Signature    `json:"author"`
	Date       time.Time    `json:"date"`
	CommitDate time.Time    `json:"commit_date"`
	Stats      *Stats       `json:"stats,omitempty"`
	Files      []FileChange `json:"files"`
}

// ListOptions filters a commit listing.
type ListOptions struct {
	Branch  string
	Since   time.Time // zero value means no lower bound
	Page    int       // 1-based
	PerPage int
}

// Source provides paginated read access to a repository's commit history.
// Listings are ordered newest first; a page shorter than PerPage (or empty)
// signals end of data.
type Source interface {
	// Commit returns the full detail for a single commit, or ErrNotFound.
	Commit(ctx context.Context, repoID, sha string) (*Detail, error)

	// List returns one page of commit summaries matching opts.
	List(ctx context.Context, repoID string, opts ListOptions) ([]Commit, error)
}
