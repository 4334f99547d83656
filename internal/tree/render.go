// internal/tree/render.go
package tree

import (
	"fmt"
	"strings"
)

// Row is one entry of a pre-order depth-first listing: a parent always
// precedes its children, siblings are contiguous, depth carries the nesting
// level.
type Row struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// ErrMalformedRows indicates the input is not a valid pre-order serialization
// of a forest (e.g. a depth jump greater than one).
var ErrMalformedRows = fmt.Errorf("rows are not a valid pre-order listing")

// Render converts a pre-order depth-first listing into an ASCII tree.
// The output is deterministic and byte-stable for identical input; an empty
// listing renders as the empty string. Multiple depth-0 roots render as a
// forest with no separators between subtrees.
func Render(rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if rows[0].Depth != 0 {
		return "", fmt.Errorf("first row has depth %d: %w", rows[0].Depth, ErrMalformedRows)
	}

	// Depths that still have a sibling coming further down the sequence.
	// Descendants of an open depth draw a continuation bar at that level.
	activeDepths := make(map[int]bool)
	lines := make([]string, 0, len(rows))

	for i, row := range rows {
		if i > 0 && row.Depth > rows[i-1].Depth+1 {
			return "", fmt.Errorf("depth jump from %d to %d at row %d: %w",
				rows[i-1].Depth, row.Depth, i, ErrMalformedRows)
		}

		if row.Depth == 0 {
			lines = append(lines, fmt.Sprintf("%s (%s)", row.Name, row.ID))
			continue
		}

		var prefix strings.Builder
		for d := 1; d < row.Depth; d++ {
			if activeDepths[d] {
				prefix.WriteString("│   ")
			} else {
				prefix.WriteString("    ")
			}
		}

		connector := "└── "
		if hasMoreSiblings(rows, i) {
			activeDepths[row.Depth] = true
			connector = "├── "
		} else {
			delete(activeDepths, row.Depth)
		}

		lines = append(lines, fmt.Sprintf("%s%s%s (%s)", prefix.String(), connector, row.Name, row.ID))
	}

	return strings.Join(lines, "\n"), nil
}

// hasMoreSiblings reports whether another row at the same depth follows row i
// before the subtree closes (a row at a strictly smaller depth).
func hasMoreSiblings(rows []Row, i int) bool {
	depth := rows[i].Depth
	for j := i + 1; j < len(rows); j++ {
		if rows[j].Depth < depth {
			return false
		}
		if rows[j].Depth == depth {
			return true
		}
	}
	return false
}
