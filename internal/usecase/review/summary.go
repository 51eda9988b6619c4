package review

import (
	"fmt"
	"strings"

	"github.com/reviewloop/autorev/internal/domain"
)

// SummaryMarker identifies this tool's summary comment so stale summaries
// can be found and replaced on the next run.
const SummaryMarker = "Autorev Review:"

const summaryTip = "Tip: rerun the review after pushing fixes; resolved findings are reconciled automatically."

// BuildSummary renders the run summary comment. Every run gets one, even
// when all findings were rejected, so reviewers know the tool ran.
//
// The applicable-prior line prints "unknown" whenever reconciliation did
// not complete for any finding; an unknown count is never reported as zero.
func BuildSummary(overall string, s domain.RunSummary, postedBlocking bool) string {
	applicableTotal := "unknown"
	applicableBlocking := "unknown"
	if s.Prior.ApplicableKnown() {
		applicableTotal = fmt.Sprintf("%d", s.Prior.Applicable)
		applicableBlocking = fmt.Sprintf("%d", s.Prior.ApplicableBlocking)
	}

	lines := []string{
		SummaryMarker,
		fmt.Sprintf("- Overall: %s", overallVerdict(overall, s, postedBlocking)),
		fmt.Sprintf("- Findings (new): %d", s.Posted),
		fmt.Sprintf("- Findings (applicable prior): %s", applicableTotal),
		fmt.Sprintf("- Applicable prior blocking findings: %s", applicableBlocking),
	}

	if dropped := s.AnchorRejected + s.PrefilterDropped + s.SemanticDropped; dropped > 0 {
		lines = append(lines, fmt.Sprintf(
			"- Filtered: %d of %d (anchor-rejected %d, near existing comments %d, semantic duplicates %d)",
			dropped, s.TotalFindings, s.AnchorRejected, s.PrefilterDropped, s.SemanticDropped))
	}

	var notes []string
	if s.Prior.ApplicableKnown() && s.Prior.ApplicableBlocking > 0 {
		notes = append(notes, "Blocking prior findings remain unresolved at the current head.")
	}
	if !s.Prior.ApplicableKnown() {
		notes = append(notes, "Applicable prior finding count is unavailable because reconciliation did not complete.")
	}
	if len(notes) > 0 {
		lines = append(lines, "", strings.Join(notes, " "))
	}

	lines = append(lines, "", summaryTip)
	return strings.Join(lines, "\n")
}

func overallVerdict(overall string, s domain.RunSummary, postedBlocking bool) string {
	verdict := strings.TrimSpace(overall)
	if verdict == "" {
		verdict = "patch is correct"
	}
	if s.Blocking(postedBlocking) {
		verdict = "patch is incorrect"
	}
	return verdict
}
