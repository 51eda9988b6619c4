package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/autorev/internal/diff"
	"github.com/reviewloop/autorev/internal/domain"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

const reconcilePatch = `@@ -10,2 +10,3 @@
 context line
-old line
+new line one
+new line two
`

func parsePatch(t *testing.T, patch string) *diff.File {
	t.Helper()
	f, err := diff.Parse(patch)
	require.NoError(t, err)
	return f
}

func prior(id, file string, line int, severity string) domain.PriorFinding {
	return domain.PriorFinding{
		ID: id, File: file, Line: line, Side: domain.SideRight,
		Severity: severity, Title: "prior " + id, Body: "body",
	}
}

func TestReconcile_StructuralResolution(t *testing.T) {
	files := map[string]*diff.File{"a.go": parsePatch(t, reconcilePatch)}
	// Line 99 is not addressable in the new diff of a.go, so the line the
	// finding pointed at was rewritten or removed.
	priors := []domain.PriorFinding{prior("p1", "a.go", 99, domain.SeverityLow)}
	judge := &stubJudge{}
	r := &review.Reconciler{Judge: judge}

	verdicts := r.Reconcile(context.Background(), priors, files, nil)
	assert.Equal(t, domain.Resolved, verdicts["p1"])
	assert.Zero(t, judge.calls, "structurally resolved findings never reach the oracle")
}

func TestReconcile_UntouchedFileGoesToOracle(t *testing.T) {
	files := map[string]*diff.File{"a.go": parsePatch(t, reconcilePatch)}
	// b.go has no diff at the new head; its content may be unchanged, so
	// only the oracle can decide.
	priors := []domain.PriorFinding{prior("p1", "b.go", 5, domain.SeverityLow)}
	judge := &stubJudge{resp: review.JudgeResponse{Keep: []string{"p1"}}}
	r := &review.Reconciler{Judge: judge}

	verdicts := r.Reconcile(context.Background(), priors, files, []string{"new title"})
	assert.Equal(t, domain.Applicable, verdicts["p1"])
	require.Equal(t, 1, judge.calls)
	assert.Equal(t, review.TaskReconcile, judge.lastReq.Task)
	assert.Equal(t, []string{"new title"}, judge.lastReq.Context)
}

func TestReconcile_OracleDropMeansResolved(t *testing.T) {
	priors := []domain.PriorFinding{prior("p1", "b.go", 5, domain.SeverityLow)}
	judge := &stubJudge{resp: review.JudgeResponse{}}
	r := &review.Reconciler{Judge: judge}

	verdicts := r.Reconcile(context.Background(), priors, nil, nil)
	assert.Equal(t, domain.Resolved, verdicts["p1"])
}

func TestReconcile_FailUnknownOnJudgeError(t *testing.T) {
	priors := []domain.PriorFinding{
		prior("p1", "b.go", 5, domain.SeverityLow),
		prior("p2", "c.go", 8, domain.SeverityHigh),
	}
	judge := &stubJudge{err: errors.New("overloaded")}
	logger := &recordingLogger{}
	r := &review.Reconciler{Judge: judge, Logger: logger}

	verdicts := r.Reconcile(context.Background(), priors, nil, nil)
	assert.Equal(t, domain.Unknown, verdicts["p1"])
	assert.Equal(t, domain.Unknown, verdicts["p2"])
	require.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], "marking prior findings unknown")
}

func TestReconcile_NoJudgeMeansUnknown(t *testing.T) {
	priors := []domain.PriorFinding{prior("p1", "b.go", 5, domain.SeverityLow)}
	r := &review.Reconciler{}

	verdicts := r.Reconcile(context.Background(), priors, nil, nil)
	assert.Equal(t, domain.Unknown, verdicts["p1"])
}

func TestReconcile_MixedStructuralAndOracle(t *testing.T) {
	files := map[string]*diff.File{"a.go": parsePatch(t, reconcilePatch)}
	priors := []domain.PriorFinding{
		prior("gone", "a.go", 99, domain.SeverityLow),
		prior("open", "b.go", 5, domain.SeverityHigh),
	}
	judge := &stubJudge{resp: review.JudgeResponse{Keep: []string{"open"}}}
	r := &review.Reconciler{Judge: judge}

	verdicts := r.Reconcile(context.Background(), priors, files, nil)
	assert.Equal(t, domain.Resolved, verdicts["gone"])
	assert.Equal(t, domain.Applicable, verdicts["open"])
	require.Len(t, judge.lastReq.Items, 1)
	assert.Equal(t, "open", judge.lastReq.Items[0].ID)
}

func TestReconcile_EmptyPriors(t *testing.T) {
	judge := &stubJudge{}
	r := &review.Reconciler{Judge: judge}

	verdicts := r.Reconcile(context.Background(), nil, nil, nil)
	assert.Empty(t, verdicts)
	assert.Zero(t, judge.calls)
}

func TestPriorStatsFor(t *testing.T) {
	priors := []domain.PriorFinding{
		prior("a", "x.go", 1, domain.SeverityCritical),
		prior("b", "x.go", 2, domain.SeverityLow),
		prior("c", "x.go", 3, domain.SeverityHigh),
		prior("d", "x.go", 4, domain.SeverityMedium),
	}
	verdicts := map[string]domain.Applicability{
		"a": domain.Applicable,
		"b": domain.Applicable,
		"c": domain.Resolved,
		// d has no verdict and counts as unknown.
	}

	stats := review.PriorStatsFor(priors, verdicts)
	assert.Equal(t, 2, stats.Applicable)
	assert.Equal(t, 1, stats.ApplicableBlocking)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.Unknown)
	assert.False(t, stats.ApplicableKnown())
}
