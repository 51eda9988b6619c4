package anchor

import (
	"strings"

	"github.com/reviewloop/autorev/internal/domain"
)

// Shape is the rendering decision for a planned comment.
type Shape int

const (
	// ShapeSingleLine anchors the comment to one line; any suggested code
	// is rendered as an inert fenced block.
	ShapeSingleLine Shape = iota
	// ShapeMultiLineSuggestion anchors a contiguous range and embeds an
	// applicable ```suggestion block.
	ShapeMultiLineSuggestion
	// ShapeMultiLinePlain anchors a contiguous range without a suggestion.
	ShapeMultiLinePlain
)

// CommentPlan is the fully rendered comment ready for the posting API.
// StartLine and StartSide are set only for range shapes. FindingID and
// Severity travel along so the posting edge can embed the finding's
// identity marker.
type CommentPlan struct {
	Path      string
	Line      int
	Side      domain.Side
	StartLine int
	StartSide domain.Side
	Body      string
	Shape     Shape
	FindingID string
	Severity  string
}

// Plan decides the comment shape for a resolved anchor and renders the
// body. Suggestion blocks are applicable only on range anchors; everywhere
// else suggested code degrades to a plain fenced block so the platform
// never offers a diff-incompatible one-click patch.
func Plan(f domain.Finding, a domain.Anchor) CommentPlan {
	plan := CommentPlan{
		Path:      a.File,
		Line:      a.Line,
		Side:      a.Side,
		FindingID: f.ID,
		Severity:  f.Severity,
	}

	suggestionOK := a.IsRange && f.Suggestion != ""
	switch {
	case suggestionOK:
		plan.Shape = ShapeMultiLineSuggestion
	case a.IsRange:
		plan.Shape = ShapeMultiLinePlain
	default:
		plan.Shape = ShapeSingleLine
	}

	if a.IsRange {
		plan.StartLine = a.RangeStart
		plan.StartSide = a.Side
	}

	var sb strings.Builder
	if title := strings.TrimSpace(f.Title); title != "" {
		sb.WriteString(title)
	}
	if body := strings.TrimSpace(f.Body); body != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		// Inline suggestion fences authored by the reasoning engine are
		// only applicable on an eligible range anchor.
		if suggestionOK {
			sb.WriteString(body)
		} else {
			sb.WriteString(strings.ReplaceAll(body, "```suggestion", "```diff"))
		}
	}
	if f.Suggestion != "" {
		sb.WriteString("\n\n")
		if suggestionOK {
			sb.WriteString("```suggestion\n")
		} else {
			sb.WriteString("```\n")
		}
		sb.WriteString(strings.TrimRight(f.Suggestion, "\n"))
		sb.WriteString("\n```")
	}
	plan.Body = sb.String()
	return plan
}
