// internal/server/handlers.go
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowtree/internal/diff"
	"knowtree/internal/knowledge"
	"knowtree/internal/sync"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "API is working"})
}

func (s *Server) handleKnowledgeBase(c *gin.Context) {
	root := c.Param("root")

	rendered, rows, err := s.knowledge.Tree(root)
	if err != nil {
		s.log.Error("failed to load knowledge base", "root", root, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load knowledge base"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no knowledge base found for " + root})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"root":  root,
		"tree":  rendered,
		"nodes": rows,
	})
}

type analyzeCommitsRequest struct {
	RepoID         string `json:"repo_id"`
	Branch         string `json:"branch"`
	MaxCommits     int    `json:"max_commits"`
	UpdateLastSync bool   `json:"update_last_sync"`
}

func (s *Server) handleAnalyzeCommits(c *gin.Context) {
	var req analyzeCommitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RepoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo_id is required"})
		return
	}
	if req.MaxCommits <= 0 {
		req.MaxCommits = 20
	}

	state, err := s.checkpoints.GetSyncState(req.RepoID)
	if err != nil {
		s.log.Error("failed to read sync state", "repo", req.RepoID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sync state"})
		return
	}

	var commits []sync.CommitRef
	isFirstSync := state == nil
	if isFirstSync {
		commits, err = s.engine.LatestCommits(c.Request.Context(), req.RepoID, req.Branch, req.MaxCommits)
	} else {
		commits, err = s.engine.CommitsSince(c.Request.Context(), req.RepoID, state.LastCommitSHA, req.Branch, req.MaxCommits)
	}
	if err != nil {
		s.syncError(c, err)
		return
	}

	lastSynced := ""
	if state != nil {
		lastSynced = state.LastCommitSHA
	}

	// The checkpoint moves only on request, and only when the sync actually
	// found commits; an empty sync must leave it untouched.
	if req.UpdateLastSync && len(commits) > 0 {
		updated, err := s.checkpoints.UpsertSyncState(req.RepoID, commits[0].ID)
		if err != nil {
			s.log.Error("failed to update sync state", "repo", req.RepoID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update sync state"})
			return
		}
		lastSynced = updated.LastCommitSHA
	}

	if commits == nil {
		commits = []sync.CommitRef{}
	}
	c.JSON(http.StatusOK, gin.H{
		"commits":            commits,
		"is_first_sync":      isFirstSync,
		"last_synced_commit": lastSynced,
	})
}

func (s *Server) syncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sync.ErrReferenceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sync.ErrSourceUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.log.Error("commit analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit analysis failed"})
	}
}

type commitDiffsRequest struct {
	RepoID       string   `json:"repo_id"`
	CommitIDs    []string `json:"commit_ids"`
	IncludePatch *bool    `json:"include_patch"`
}

func (s *Server) handleGetCommitDiffs(c *gin.Context) {
	var req commitDiffsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RepoID == "" || len(req.CommitIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo_id and commit_ids are required"})
		return
	}
	includePatch := req.IncludePatch == nil || *req.IncludePatch

	var diffs string
	if s.cache != nil {
		diffs = s.cache.FormatAll(c.Request.Context(), s.source, req.RepoID, req.CommitIDs, includePatch)
	} else {
		diffs = diff.FormatAll(c.Request.Context(), s.source, req.RepoID, req.CommitIDs, includePatch)
	}

	c.JSON(http.StatusOK, gin.H{
		"diffs":        diffs,
		"commit_count": len(req.CommitIDs),
	})
}

type generateTopicsRequest struct {
	RepoID           string   `json:"repo_id"`
	CommitIDs        []string `json:"commit_ids"`
	RootLanguage     string   `json:"root_language"`
	UserInstructions string   `json:"user_instructions"`
	FocusArea        string   `json:"focus_area"`
}

func (s *Server) handleGenerateTopics(c *gin.Context) {
	var req generateTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RepoID == "" || len(req.CommitIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo_id and commit_ids are required"})
		return
	}
	if req.RootLanguage == "" {
		req.RootLanguage = "Python"
	}

	topics, err := s.knowledge.GenerateTopics(c.Request.Context(), knowledge.GenerateRequest{
		RepoID:       req.RepoID,
		CommitIDs:    req.CommitIDs,
		RootName:     req.RootLanguage,
		Instructions: req.UserInstructions,
		FocusArea:    req.FocusArea,
	})
	if err != nil {
		s.log.Error("topic generation failed", "repo", req.RepoID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "topic generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

type saveLearningRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	GithubLink  string `json:"github_link"`
	ParentID    string `json:"parent_id"`
}

func (s *Server) handleSaveLearning(c *gin.Context) {
	var req saveLearningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	topic, err := s.knowledge.SaveTopic(req.Name, req.Description, req.GithubLink, req.ParentID)
	if err != nil {
		if errors.Is(err, knowledge.ErrInvalidTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("failed to save topic", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save topic"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"topic": topic})
}

type saveTopicsBatchRequest struct {
	Topics []knowledge.BatchTopic `json:"topics"`
}

func (s *Server) handleSaveTopicsBatch(c *gin.Context) {
	var req saveTopicsBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Topics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topics are required"})
		return
	}

	saved, err := s.knowledge.SaveTopicsBatch(req.Topics)
	if err != nil {
		if errors.Is(err, knowledge.ErrInvalidTopic) || errors.Is(err, knowledge.ErrUnresolvedParent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("failed to save topic batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save topic batch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": saved,
		"saved":  len(saved),
	})
}
