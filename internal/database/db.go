// internal/database/db.go
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"knowtree/internal/tree"
)

// Database wraps the SQLite database connection
type Database struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// init creates the database schema
func (d *Database) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		github_link TEXT,
		parent_id TEXT REFERENCES topics(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_topics_parent ON topics(parent_id);
	CREATE INDEX IF NOT EXISTS idx_topics_name ON topics(name);

	CREATE TABLE IF NOT EXISTS repo_sync_state (
		repo_id TEXT PRIMARY KEY,
		last_commit_sha TEXT NOT NULL,
		last_synced_at DATETIME NOT NULL
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// SaveTopic inserts a new topic. A missing ID is filled with a fresh UUID;
// the stored record is returned.
func (d *Database) SaveTopic(topic *Topic) (*Topic, error) {
	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.Exec(`
		INSERT INTO topics (id, name, description, github_link, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		topic.ID, topic.Name, topic.Description, nullableString(topic.GithubLink),
		nullableString(topic.ParentID), topic.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return topic, nil
}

// GetTopicByName retrieves a topic by name, or nil when none exists. When
// several topics share a name the oldest one wins.
func (d *Database) GetTopicByName(name string) (*Topic, error) {
	row := d.db.QueryRow(`
		SELECT id, name, description, github_link, parent_id, created_at
		FROM topics WHERE name = ? ORDER BY created_at LIMIT 1`, name)

	topic := &Topic{}
	var githubLink, parentID sql.NullString
	err := row.Scan(&topic.ID, &topic.Name, &topic.Description, &githubLink, &parentID, &topic.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	topic.GithubLink = githubLink.String
	topic.ParentID = parentID.String
	return topic, nil
}

// TopicTree returns the subtree rooted at the named topic as a pre-order
// depth-first listing: parents before children, siblings contiguous and
// name-ordered. The listing is the renderer's input format.
func (d *Database) TopicTree(rootName string) ([]tree.Row, error) {
	// The path column keeps the walk in pre-order; char(1) sorts below every
	// printable rune so a sibling name can never split another node's subtree.
	// Each segment is name plus id: two siblings may share a name, and a
	// name-only path would give them equal keys and interleave their children.
	rows, err := d.db.Query(`
		WITH RECURSIVE walk(id, name, depth, path) AS (
			SELECT id, name, 0, name || char(1) || id FROM topics WHERE name = ?
			UNION ALL
			SELECT t.id, t.name, w.depth + 1, w.path || char(1) || t.name || char(1) || t.id
			FROM topics t JOIN walk w ON t.parent_id = w.id
		)
		SELECT id, name, depth FROM walk ORDER BY path`, rootName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listing []tree.Row
	for rows.Next() {
		var row tree.Row
		if err := rows.Scan(&row.ID, &row.Name, &row.Depth); err != nil {
			return nil, err
		}
		listing = append(listing, row)
	}
	return listing, rows.Err()
}

// GetSyncState retrieves the checkpoint for a repository, or nil when the
// repository has never been synced.
func (d *Database) GetSyncState(repoID string) (*SyncState, error) {
	row := d.db.QueryRow(`
		SELECT repo_id, last_commit_sha, last_synced_at
		FROM repo_sync_state WHERE repo_id = ?`, repoID)

	state := &SyncState{}
	err := row.Scan(&state.RepoID, &state.LastCommitSHA, &state.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UpsertSyncState creates or updates the checkpoint for a repository. One row
// per repository; calling it again with the same sha is a no-op apart from the
// refreshed timestamp. The read-modify-write cycle around this call is not
// atomic: two concurrent syncs of the same repository race and the last write
// wins.
func (d *Database) UpsertSyncState(repoID, lastCommitSHA string) (*SyncState, error) {
	now := time.Now().UTC()
	_, err := d.db.Exec(`
		INSERT INTO repo_sync_state (repo_id, last_commit_sha, last_synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET
			last_commit_sha = excluded.last_commit_sha,
			last_synced_at = excluded.last_synced_at`,
		repoID, lastCommitSHA, now)
	if err != nil {
		return nil, fmt.Errorf("upsert sync state: %w", err)
	}

	return d.GetSyncState(repoID)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
