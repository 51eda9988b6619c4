package review

import (
	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/domain"
)

// PrefilterWindow is the half-width of the positional duplicate window: a
// new finding whose anchor lands within this many lines of any existing
// comment on the same file is dropped before the semantic pass.
const PrefilterWindow = 3

// PlannedFinding pairs a finding with its resolved anchor and rendered
// comment plan as it moves through the pipeline.
type PlannedFinding struct {
	Finding domain.Finding
	Anchor  domain.Anchor
	Plan    anchor.CommentPlan
}

// PrefilterByLocation drops findings that coincide with an existing comment
// on the same file within PrefilterWindow lines. Resolved comments count
// too: a reviewer who closed a thread should not see the issue re-raised.
// Order is preserved; the dropped count feeds the run summary.
func PrefilterByLocation(items []PlannedFinding, existing []domain.ExistingComment) ([]PlannedFinding, int) {
	if len(existing) == 0 {
		return items, 0
	}

	linesByFile := make(map[string][]int, len(existing))
	for _, c := range existing {
		if c.Line > 0 {
			linesByFile[c.File] = append(linesByFile[c.File], c.Line)
		}
	}

	kept := make([]PlannedFinding, 0, len(items))
	dropped := 0
	for _, item := range items {
		if nearExisting(item.Anchor.Line, linesByFile[item.Anchor.File]) {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped
}

func nearExisting(line int, existing []int) bool {
	for _, e := range existing {
		d := line - e
		if d < 0 {
			d = -d
		}
		if d <= PrefilterWindow {
			return true
		}
	}
	return false
}
