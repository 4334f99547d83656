// internal/knowledge/service.go
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"knowtree/internal/database"
	"knowtree/internal/diff"
	"knowtree/internal/history"
	"knowtree/internal/llm"
	"knowtree/internal/prompt"
	"knowtree/internal/tree"
)

// ErrInvalidTopic is returned when topic input fails validation.
var ErrInvalidTopic = errors.New("invalid topic")

// ErrUnresolvedParent is returned when a batch entry's parent temp id never
// resolves (missing from the batch, or part of a cycle).
var ErrUnresolvedParent = errors.New("unresolvable parent reference")

// Store is the topic storage the service needs.
type Store interface {
	SaveTopic(topic *database.Topic) (*database.Topic, error)
	GetTopicByName(name string) (*database.Topic, error)
	TopicTree(rootName string) ([]tree.Row, error)
}

// TopicGenerator proposes learning topics from prompts.
type TopicGenerator interface {
	GenerateTopics(ctx context.Context, systemPrompt, userPrompt string) ([]llm.TopicSuggestion, error)
}

// Service implements the knowledge-tree operations: rendering the tree,
// saving topics (individually and in dependency-ordered batches), and turning
// commit diffs into topic suggestions.
type Service struct {
	store     Store
	source    history.Source
	generator TopicGenerator
	prompts   *prompt.Template
}

// NewService creates a Service.
func NewService(store Store, source history.Source, generator TopicGenerator, prompts *prompt.Template) *Service {
	return &Service{
		store:     store,
		source:    source,
		generator: generator,
		prompts:   prompts,
	}
}

// Tree returns the subtree rooted at the named topic, both rendered for
// display and as the raw depth-annotated listing. An unknown root yields an
// empty tree, not an error.
func (s *Service) Tree(rootName string) (string, []tree.Row, error) {
	rows, err := s.store.TopicTree(rootName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load topic tree: %w", err)
	}
	if len(rows) == 0 {
		return "", nil, nil
	}

	rendered, err := tree.Render(rows)
	if err != nil {
		return "", nil, err
	}
	return rendered, rows, nil
}

// SaveTopic stores a single topic.
func (s *Service) SaveTopic(name, description, githubLink, parentID string) (*database.Topic, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTopic)
	}

	return s.store.SaveTopic(&database.Topic{
		Name:        name,
		Description: description,
		GithubLink:  githubLink,
		ParentID:    parentID,
	})
}

// BatchTopic is one entry of a batch save. TempID names the entry so later
// entries can reference it as parent before it has a real id.
type BatchTopic struct {
	TempID       string  `json:"temp_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	GithubLink   string  `json:"github_link"`
	ParentID     *string `json:"parent_id"`
	ParentTempID *string `json:"parent_temp_id"`
}

// SaveTopicsBatch stores a set of topics that may reference each other as
// parents through temp ids. Entries are saved parents-first; an entry whose
// parent temp id never resolves (missing or cyclic) fails the batch.
func (s *Service) SaveTopicsBatch(topics []BatchTopic) ([]*database.Topic, error) {
	saved := make([]*database.Topic, len(topics))
	resolved := make(map[string]string, len(topics))

	remaining := len(topics)
	for remaining > 0 {
		progressed := false
		for i, t := range topics {
			if saved[i] != nil {
				continue
			}

			parentID := ""
			if t.ParentID != nil {
				parentID = *t.ParentID
			} else if t.ParentTempID != nil {
				id, ok := resolved[*t.ParentTempID]
				if !ok {
					continue
				}
				parentID = id
			}

			if strings.TrimSpace(t.Name) == "" {
				return nil, fmt.Errorf("%w: name is required", ErrInvalidTopic)
			}
			topic, err := s.store.SaveTopic(&database.Topic{
				Name:        t.Name,
				Description: t.Description,
				GithubLink:  t.GithubLink,
				ParentID:    parentID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to save topic %s: %w", t.Name, err)
			}
			saved[i] = topic
			if t.TempID != "" {
				resolved[t.TempID] = topic.ID
			}
			remaining--
			progressed = true
		}
		if !progressed {
			return nil, ErrUnresolvedParent
		}
	}

	return saved, nil
}

// GenerateRequest describes one topic-generation run. Instructions and
// FocusArea are optional steering appended to the diff prompt.
type GenerateRequest struct {
	RepoID       string
	CommitIDs    []string
	RootName     string
	Instructions string
	FocusArea    string
}

// GenerateTopics formats the requested commits as diffs, renders the current
// knowledge tree into the system prompt, and asks the model for topic
// suggestions. Suggestions whose path points under an existing tree node get
// that node's real id as parent.
func (s *Service) GenerateTopics(ctx context.Context, req GenerateRequest) ([]llm.TopicSuggestion, error) {
	treeText, _, err := s.Tree(req.RootName)
	if err != nil {
		return nil, err
	}
	if treeText == "" {
		treeText = "(empty)"
	}

	diffs := diff.FormatAll(ctx, s.source, req.RepoID, req.CommitIDs, true)
	if diffs == "" {
		return nil, fmt.Errorf("no commits to analyze")
	}

	var userPrompt strings.Builder
	userPrompt.WriteString(diffs)
	if req.FocusArea != "" {
		userPrompt.WriteString("\n\n[Focus Area]\n")
		userPrompt.WriteString(req.FocusArea)
	}
	if req.Instructions != "" {
		userPrompt.WriteString("\n\n[User Instructions]\n")
		userPrompt.WriteString(req.Instructions)
	}

	suggestions, err := s.generator.GenerateTopics(ctx, s.prompts.Render(treeText), userPrompt.String())
	if err != nil {
		return nil, fmt.Errorf("topic generation failed: %w", err)
	}

	for i := range suggestions {
		s.matchParent(&suggestions[i])
	}
	return suggestions, nil
}

// matchParent resolves a suggestion's parent against the stored tree. The
// model frequently proposes a path under a node it only knows by name; when
// that node exists, its id replaces the temp reference.
func (s *Service) matchParent(suggestion *llm.TopicSuggestion) {
	if suggestion.ParentID != nil {
		return
	}

	segments := strings.Split(suggestion.Path, "/")
	if len(segments) < 2 {
		return
	}
	parentName := strings.TrimSpace(segments[len(segments)-2])
	if parentName == "" {
		return
	}

	parent, err := s.store.GetTopicByName(parentName)
	if err != nil || parent == nil {
		return
	}
	suggestion.ParentID = &parent.ID
	suggestion.ParentTempID = nil
}
