package github

import (
	"github.com/reviewloop/autorev/internal/anchor"
)

// BuildCommentPayload converts a planned comment into the REST payload,
// appending the hidden identity marker when the plan carries a finding ID.
func BuildCommentPayload(plan anchor.CommentPlan, commitID string) CommentPayload {
	body := plan.Body
	if plan.FindingID != "" {
		body += "\n\n" + FindingMarker(plan.FindingID, plan.Severity)
	}
	payload := CommentPayload{
		Body:     body,
		CommitID: commitID,
		Path:     plan.Path,
		Line:     plan.Line,
		Side:     string(plan.Side),
	}
	if plan.StartLine > 0 {
		payload.StartLine = plan.StartLine
		payload.StartSide = string(plan.StartSide)
	}
	return payload
}
