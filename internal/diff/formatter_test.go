// internal/diff/formatter_test.go
package diff

import (
	"context"
	"strings"
	"testing"
	"time"

	"knowtree/internal/history"
)

func sampleDetail() *history.Detail {
	return &history.Detail{
		SHA:     "abc123",
		Message: "Add retry logic\n\nCovers transient failures.",
		Author:  history.Signature{Name: "Jo Dev", Email: "jo@example.com"},
		Date:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Stats:   &history.Stats{Additions: 10, Deletions: 2},
		Files: []history.FileChange{
			{
				Path:      "pkg/retry/retry.go",
				Status:    "added",
				Additions: 10,
				Deletions: 2,
				Patch:     "@@ -0,0 +1,10 @@\n+package retry",
			},
		},
	}
}

func TestFormat_SectionOrder(t *testing.T) {
	out := Format(sampleDetail(), true)

	labels := []string{"[Commit ID]", "[Description]", "[Author]", "[Date]", "[Stats]", "[File]", "[Status]", "[Changes]", "[Diff]"}
	pos := -1
	for _, label := range labels {
		idx := strings.Index(out, label)
		if idx < 0 {
			t.Fatalf("Missing label %q in output:\n%s", label, out)
		}
		if idx < pos {
			t.Errorf("Label %q appears out of order", label)
		}
		pos = idx
	}
}

func TestFormat_Content(t *testing.T) {
	out := Format(sampleDetail(), true)

	for _, want := range []string{
		"abc123",
		"Add retry logic\n\nCovers transient failures.",
		"Jo Dev <jo@example.com>",
		"2024-06-01T12:00:00Z",
		"Files changed: 1",
		"Additions: 10",
		"Deletions: 2",
		"pkg/retry/retry.go",
		"+10 -2",
		strings.Repeat("=", 80),
		strings.Repeat("-", 80),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestFormat_WithoutPatch(t *testing.T) {
	out := Format(sampleDetail(), false)

	if strings.Contains(out, "[Diff]") {
		t.Errorf("Patch section present with includePatch=false")
	}
	if !strings.Contains(out, "[Changes]") {
		t.Errorf("Changes section missing with includePatch=false")
	}
}

func TestFormat_NoStats(t *testing.T) {
	detail := sampleDetail()
	detail.Stats = nil
	out := Format(detail, true)

	if strings.Contains(out, "Additions:") || strings.Contains(out, "Deletions:") {
		t.Errorf("Aggregate additions/deletions rendered without stats")
	}
	if !strings.Contains(out, "Files changed: 1") {
		t.Errorf("File count missing")
	}
}

func TestFormat_ByteStable(t *testing.T) {
	first := Format(sampleDetail(), true)
	for i := 0; i < 5; i++ {
		if out := Format(sampleDetail(), true); out != first {
			t.Fatalf("Format output changed between calls")
		}
	}
}

type mapSource struct {
	details map[string]*history.Detail
}

func (m *mapSource) Commit(_ context.Context, _, sha string) (*history.Detail, error) {
	detail, ok := m.details[sha]
	if !ok {
		return nil, history.ErrNotFound
	}
	return detail, nil
}

func (m *mapSource) List(context.Context, string, history.ListOptions) ([]history.Commit, error) {
	return nil, nil
}

func TestFormatAll_BannersAndOrder(t *testing.T) {
	good := sampleDetail()
	source := &mapSource{details: map[string]*history.Detail{
		"abc123": good,
		"def456": {SHA: "def456", Message: "Second", Date: good.Date},
	}}

	out := FormatAll(context.Background(), source, "owner/repo", []string{"abc123", "missing", "def456"}, true)

	banners := []string{"ITEM 1 of 3", "ITEM 2 of 3", "ITEM 3 of 3"}
	pos := -1
	for _, banner := range banners {
		idx := strings.Index(out, banner)
		if idx < 0 {
			t.Fatalf("Missing banner %q:\n%s", banner, out)
		}
		if idx < pos {
			t.Errorf("Banner %q out of order", banner)
		}
		pos = idx
	}

	// The failed lookup is reported inline between banners 2 and 3.
	errIdx := strings.Index(out, "Error getting diff for missing")
	if errIdx < 0 {
		t.Fatalf("Missing inline error line:\n%s", out)
	}
	if errIdx < strings.Index(out, "ITEM 2 of 3") || errIdx > strings.Index(out, "ITEM 3 of 3") {
		t.Errorf("Inline error not placed in item 2's slot")
	}

	// The batch still carries both good blocks.
	if !strings.Contains(out, "abc123") || !strings.Contains(out, "def456") {
		t.Errorf("Batch output missing a good block")
	}
}

func TestFormatAll_Empty(t *testing.T) {
	out := FormatAll(context.Background(), &mapSource{}, "owner/repo", nil, true)
	if out != "" {
		t.Errorf("FormatAll with no ids = %q, want empty", out)
	}
}
