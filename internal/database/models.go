// internal/database/models.go
package database

import "time"

// Topic is one node of the knowledge tree.
type Topic struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	GithubLink  string    `json:"github_link,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SyncState is the per-repository checkpoint: the last commit known to have
// been synced, used as the exclusive lower bound of the next sync.
type SyncState struct {
	RepoID        string    `json:"repo_id"`
	LastCommitSHA string    `json:"last_commit_hash"`
	LastSyncedAt  time.Time `json:"last_synced_at"`
}
