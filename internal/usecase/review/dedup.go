package review

import (
	"context"
)

// maxDedupContext caps how many prior comment bodies are sent to the judge
// in one call, keeping the prompt within budget on long-lived PRs.
const maxDedupContext = 200

// SemanticDeduper removes near-duplicate findings the positional prefilter
// missed, using one text-classification oracle call.
type SemanticDeduper struct {
	Judge  TextJudge
	Logger Logger
}

// Dedupe returns the findings the judge kept, in their original order, plus
// the dropped count. Policy is fail-open: if the judge errors, times out,
// or answers with unusable output, every finding that reached this stage is
// kept. Losing a true duplicate is cheaper than silently dropping a valid
// new finding.
func (d *SemanticDeduper) Dedupe(ctx context.Context, items []PlannedFinding, priorBodies []string) ([]PlannedFinding, int) {
	if len(items) == 0 || len(priorBodies) == 0 || d.Judge == nil {
		return items, 0
	}

	req := JudgeRequest{
		Task:    TaskDeduplicate,
		Items:   make([]JudgeItem, 0, len(items)),
		Context: capStrings(priorBodies, maxDedupContext),
	}
	for _, item := range items {
		req.Items = append(req.Items, JudgeItem{
			ID:   item.Finding.ID,
			Body: item.Finding.Title + "\n" + item.Finding.Body,
		})
	}

	resp, err := d.Judge.Classify(ctx, req)
	if err != nil {
		if d.Logger != nil {
			d.Logger.LogWarning(ctx, "semantic dedup unavailable, keeping all findings", map[string]interface{}{
				"error":    err.Error(),
				"findings": len(items),
			})
		}
		return items, 0
	}

	keep := make(map[string]bool, len(resp.Keep))
	for _, id := range resp.Keep {
		keep[id] = true
	}

	kept := make([]PlannedFinding, 0, len(items))
	for _, item := range items {
		if keep[item.Finding.ID] {
			kept = append(kept, item)
		}
	}
	return kept, len(items) - len(kept)
}

func capStrings(s []string, limit int) []string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
