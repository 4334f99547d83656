// internal/server/server.go
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"knowtree/internal/database"
	"knowtree/internal/diff"
	"knowtree/internal/history"
	"knowtree/internal/knowledge"
	"knowtree/internal/llm"
	"knowtree/internal/sync"
	"knowtree/internal/tree"
)

// CheckpointStore is the per-repository sync checkpoint storage.
type CheckpointStore interface {
	GetSyncState(repoID string) (*database.SyncState, error)
	UpsertSyncState(repoID, lastCommitSHA string) (*database.SyncState, error)
}

// Syncer discovers commits relative to a checkpoint.
type Syncer interface {
	CommitsSince(ctx context.Context, repoID, sinceSHA, branch string, maxCommits int) ([]sync.CommitRef, error)
	LatestCommits(ctx context.Context, repoID, branch string, maxCommits int) ([]sync.CommitRef, error)
}

// Knowledge is the knowledge-tree service surface the handlers use.
type Knowledge interface {
	Tree(rootName string) (string, []tree.Row, error)
	SaveTopic(name, description, githubLink, parentID string) (*database.Topic, error)
	SaveTopicsBatch(topics []knowledge.BatchTopic) ([]*database.Topic, error)
	GenerateTopics(ctx context.Context, req knowledge.GenerateRequest) ([]llm.TopicSuggestion, error)
}

// Server owns the HTTP API.
type Server struct {
	log         *slog.Logger
	checkpoints CheckpointStore
	engine      Syncer
	knowledge   Knowledge
	source      history.Source
	cache       *diff.Cache
}

// New creates a Server. The diff cache may be nil, in which case diff batches
// are always formatted from the source.
func New(log *slog.Logger, checkpoints CheckpointStore, engine Syncer, svc Knowledge, source history.Source, cache *diff.Cache) *Server {
	return &Server{
		log:         log,
		checkpoints: checkpoints,
		engine:      engine,
		knowledge:   svc,
		source:      source,
		cache:       cache,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/test", s.handleTest)
		api.GET("/knowledge_base/:root", s.handleKnowledgeBase)
		api.POST("/analyze_commits", s.handleAnalyzeCommits)
		api.POST("/get_commit_diffs", s.handleGetCommitDiffs)
		api.POST("/generate_topics", s.handleGenerateTopics)
		api.POST("/save_learning", s.handleSaveLearning)
		api.POST("/save_topics_batch", s.handleSaveTopicsBatch)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond).String(),
		)
	}
}
