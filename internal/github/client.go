// internal/github/client.go
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"knowtree/internal/history"
)

// DefaultBaseURL is the public GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// Options configures a Client. Both fields are optional: without a token the
// client runs against GitHub's unauthenticated rate limit (60 req/hr instead
// of 5000), and BaseURL defaults to the public API.
type Options struct {
	AuthToken string
	BaseURL   string
}

// Client is a minimal GitHub REST v3 client covering commit listing and
// single-commit lookup. It implements history.Source.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		authToken: opts.AuthToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// commitEnvelope matches the GitHub commit resource (list entry and detail
// share the outer shape; stats and files only appear on the detail).
type commitEnvelope struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
	Stats *struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
	} `json:"stats"`
	Files []struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
		Patch     string `json:"patch"`
	} `json:"files"`
}

// Commit returns the full detail for a single commit.
func (c *Client) Commit(ctx context.Context, repoID, sha string) (*history.Detail, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/commits/%s", c.baseURL, repoID, url.PathEscape(sha))

	var envelope commitEnvelope
	if err := c.getJSON(ctx, endpoint, nil, &envelope); err != nil {
		return nil, err
	}

	detail := &history.Detail{
		SHA:     envelope.SHA,
		Message: envelope.Commit.Message,
		Author: history.Signature{
			Name:  envelope.Commit.Author.Name,
			Email: envelope.Commit.Author.Email,
		},
		Date:       envelope.Commit.Author.Date,
		CommitDate: envelope.Commit.Committer.Date,
	}
	if envelope.Stats != nil {
		detail.Stats = &history.Stats{
			Additions: envelope.Stats.Additions,
			Deletions: envelope.Stats.Deletions,
		}
	}
	for _, file := range envelope.Files {
		detail.Files = append(detail.Files, history.FileChange{
			Path:      file.Filename,
			Status:    file.Status,
			Additions: file.Additions,
			Deletions: file.Deletions,
			Patch:     file.Patch,
		})
	}

	return detail, nil
}

// List returns one page of commits, newest first.
func (c *Client) List(ctx context.Context, repoID string, opts history.ListOptions) ([]history.Commit, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/commits", c.baseURL, repoID)

	params := url.Values{}
	if opts.Branch != "" {
		params.Set("sha", opts.Branch)
	}
	if !opts.Since.IsZero() {
		params.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if opts.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}

	var envelopes []commitEnvelope
	if err := c.getJSON(ctx, endpoint, params, &envelopes); err != nil {
		return nil, err
	}

	commits := make([]history.Commit, 0, len(envelopes))
	for _, envelope := range envelopes {
		commits = append(commits, history.Commit{
			SHA:     envelope.SHA,
			Message: envelope.Commit.Message,
			Date:    envelope.Commit.Committer.Date,
		})
	}
	return commits, nil
}

// getJSON performs a GET against the GitHub API and decodes the response.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "knowtree")
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "token "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return history.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
