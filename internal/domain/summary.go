package domain

// RunSummary aggregates per-run pipeline counters. Every run produces a
// summary, including runs where every finding was rejected.
type RunSummary struct {
	TotalFindings    int
	AnchorRejected   int
	PrefilterDropped int
	SemanticDropped  int
	Posted           int

	Prior PriorStats
}

// PriorStats summarizes reconciliation of previously posted findings.
// A nonzero Unknown count means reconciliation did not complete for some
// findings; the applicable-prior total must then be reported as unknown
// rather than as a number.
type PriorStats struct {
	Applicable int
	Resolved   int
	Unknown    int

	// ApplicableBlocking counts applicable prior findings with a blocking
	// severity. Meaningless when ApplicableKnown is false.
	ApplicableBlocking int
}

// ApplicableKnown reports whether the applicable-prior count can be
// asserted. False whenever any prior finding ended the run as Unknown.
func (p PriorStats) ApplicableKnown() bool {
	return p.Unknown == 0
}

// Blocking reports whether the run should request changes: any new blocking
// finding was posted, or a blocking prior finding is still applicable.
func (s RunSummary) Blocking(postedBlocking bool) bool {
	if postedBlocking {
		return true
	}
	return s.Prior.ApplicableKnown() && s.Prior.ApplicableBlocking > 0
}
