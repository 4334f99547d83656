// internal/diff/formatter.go
package diff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"knowtree/internal/history"
)

const rule = 80

// Format renders a commit detail as a labeled, line-oriented text block.
// Labels and section order are a contract: downstream prompts and parsers key
// on them, and identical input always yields identical bytes.
func Format(detail *history.Detail, includePatch bool) string {
	var out []string

	out = append(out, "[Commit ID]")
	out = append(out, detail.SHA)
	out = append(out, "")
	out = append(out, "[Description]")
	out = append(out, detail.Message)
	out = append(out, "")
	out = append(out, "[Author]")
	out = append(out, fmt.Sprintf("%s <%s>", detail.Author.Name, detail.Author.Email))
	out = append(out, "")
	out = append(out, "[Date]")
	out = append(out, detail.Date.UTC().Format(time.RFC3339))
	out = append(out, "")
	out = append(out, "[Stats]")
	out = append(out, fmt.Sprintf("Files changed: %d", len(detail.Files)))
	if detail.Stats != nil {
		out = append(out, fmt.Sprintf("Additions: %d", detail.Stats.Additions))
		out = append(out, fmt.Sprintf("Deletions: %d", detail.Stats.Deletions))
	}
	out = append(out, "")
	out = append(out, strings.Repeat("=", rule))
	out = append(out, "")

	for _, file := range detail.Files {
		out = append(out, "[File]")
		out = append(out, file.Path)
		out = append(out, "")
		out = append(out, "[Status]")
		out = append(out, file.Status)
		out = append(out, "")
		out = append(out, "[Changes]")
		out = append(out, fmt.Sprintf("+%d -%d", file.Additions, file.Deletions))
		out = append(out, "")

		if includePatch && file.Patch != "" {
			out = append(out, "[Diff]")
			out = append(out, file.Patch)
			out = append(out, "")
		}

		out = append(out, strings.Repeat("-", rule))
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}

// FormatAll fetches and formats the given commits in input order, each under
// an "ITEM i of N" banner. A commit that cannot be fetched is replaced by an
// inline error line; one bad identifier never aborts the batch. Lookups are
// strictly sequential.
func FormatAll(ctx context.Context, source history.Source, repoID string, shas []string, includePatch bool) string {
	return formatBatch(shas, func(sha string) (string, error) {
		detail, err := source.Commit(ctx, repoID, sha)
		if err != nil {
			return "", err
		}
		return Format(detail, includePatch), nil
	})
}

// formatBatch assembles the banner layout shared by the direct and cached
// batch paths.
func formatBatch(shas []string, fetch func(sha string) (string, error)) string {
	var out []string

	for i, sha := range shas {
		out = append(out, "\n"+strings.Repeat("=", rule))
		out = append(out, fmt.Sprintf("ITEM %d of %d", i+1, len(shas)))
		out = append(out, strings.Repeat("=", rule)+"\n")

		block, err := fetch(sha)
		if err != nil {
			out = append(out, fmt.Sprintf("Error getting diff for %s: %v\n", sha, err))
			continue
		}
		out = append(out, block)
	}

	return strings.Join(out, "\n")
}
