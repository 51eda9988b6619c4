package review

import (
	"context"
	"fmt"

	"github.com/reviewloop/autorev/internal/diff"
	"github.com/reviewloop/autorev/internal/domain"
)

// Reconciler re-evaluates previously posted findings against the current
// head diff and classifies each as still applicable or resolved.
type Reconciler struct {
	Judge  TextJudge
	Logger Logger
}

// Reconcile classifies every prior finding.
//
// A cheap structural pass runs first: if the prior anchor's file has a diff
// at the new head but the (line, side) is no longer addressable, the line
// was rewritten or removed and the finding is RESOLVED without consulting
// the oracle. Everything else goes to the oracle in a single batch,
// including findings in files the new diff does not touch, where the old
// content may simply be unchanged. If that call fails, the pending findings
// are UNKNOWN, never guessed: the run summary must then report the
// applicable-prior count as unknown.
func (r *Reconciler) Reconcile(ctx context.Context, priors []domain.PriorFinding, files map[string]*diff.File, newTitles []string) map[string]domain.Applicability {
	verdicts := make(map[string]domain.Applicability, len(priors))
	if len(priors) == 0 {
		return verdicts
	}

	var pending []domain.PriorFinding
	for _, p := range priors {
		file, ok := files[p.File]
		if ok && !file.Addressable(p.Line, p.Side) {
			verdicts[p.ID] = domain.Resolved
			continue
		}
		pending = append(pending, p)
	}
	if len(pending) == 0 {
		return verdicts
	}

	if r.Judge == nil {
		r.markUnknown(ctx, verdicts, pending, "no judge configured")
		return verdicts
	}

	req := JudgeRequest{
		Task:    TaskReconcile,
		Items:   make([]JudgeItem, 0, len(pending)),
		Context: newTitles,
	}
	for _, p := range pending {
		req.Items = append(req.Items, JudgeItem{
			ID:   p.ID,
			Body: fmt.Sprintf("[%s:%d] %s\n%s", p.File, p.Line, p.Title, p.Body),
		})
	}

	resp, err := r.Judge.Classify(ctx, req)
	if err != nil {
		r.markUnknown(ctx, verdicts, pending, err.Error())
		return verdicts
	}

	applicable := make(map[string]bool, len(resp.Keep))
	for _, id := range resp.Keep {
		applicable[id] = true
	}
	for _, p := range pending {
		if applicable[p.ID] {
			verdicts[p.ID] = domain.Applicable
		} else {
			verdicts[p.ID] = domain.Resolved
		}
	}
	return verdicts
}

func (r *Reconciler) markUnknown(ctx context.Context, verdicts map[string]domain.Applicability, pending []domain.PriorFinding, reason string) {
	if r.Logger != nil {
		r.Logger.LogWarning(ctx, "reconciliation incomplete, marking prior findings unknown", map[string]interface{}{
			"reason":  reason,
			"pending": len(pending),
		})
	}
	for _, p := range pending {
		verdicts[p.ID] = domain.Unknown
	}
}

// PriorStatsFor folds verdicts into summary counters. Blocking severities
// on applicable findings are tracked so the run verdict can request
// changes for unresolved critical work.
func PriorStatsFor(priors []domain.PriorFinding, verdicts map[string]domain.Applicability) domain.PriorStats {
	var stats domain.PriorStats
	for _, p := range priors {
		switch verdicts[p.ID] {
		case domain.Applicable:
			stats.Applicable++
			if domain.Blocking(p.Severity) {
				stats.ApplicableBlocking++
			}
		case domain.Resolved:
			stats.Resolved++
		default:
			stats.Unknown++
		}
	}
	return stats
}
