package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/diff"
	"github.com/reviewloop/autorev/internal/domain"
)

// OrchestratorDeps captures the collaborators for the review pipeline.
// Platform and Provider are required; everything else degrades gracefully
// when nil.
type OrchestratorDeps struct {
	Platform  Platform
	Provider  FindingProvider
	Judge     TextJudge
	Logger    Logger
	Store     Store
	Artifacts ArtifactWriter
}

// Orchestrator runs the full review pipeline for one pull request. Each
// run is a pure function of (diff, findings, existing comments, prior
// findings); no state survives between runs except what the platform
// itself stores as comments.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Request configures one review run.
type Request struct {
	Ref PRRef

	// DryRun plans and reports everything but posts nothing.
	DryRun bool

	// OutputDir, when set, receives the anchor-map and run-report
	// artifacts for this run.
	OutputDir string
}

// Result reports what the run did.
type Result struct {
	HeadSHA  string
	Overall  string
	Summary  domain.RunSummary
	Planned  []anchor.CommentPlan
	Verdicts map[string]domain.Applicability

	// SummaryBody is the summary comment that was (or would be) posted.
	SummaryBody string
}

// Run executes the pipeline: parse → anchor → plan → prefilter → semantic
// dedup → post, then reconciliation of prior findings. Per-finding and
// per-file failures are local; the run fails only when the diff or the
// findings cannot be fetched at all.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	var res Result

	headSHA, err := o.deps.Platform.HeadSHA(ctx, req.Ref)
	if err != nil {
		return res, fmt.Errorf("resolve head: %w", err)
	}
	res.HeadSHA = headSHA

	changed, err := o.deps.Platform.ListChangedFiles(ctx, req.Ref)
	if err != nil {
		return res, fmt.Errorf("fetch diff: %w", err)
	}

	renameMap := buildRenameMap(changed)
	files, parseFailed := o.parseChangedFiles(ctx, changed)

	if req.OutputDir != "" && o.deps.Artifacts != nil {
		if _, err := o.deps.Artifacts.WriteAnchorMaps(ctx, req.OutputDir, files); err != nil {
			o.warn(ctx, "failed writing anchor-map artifact", map[string]interface{}{"error": err.Error()})
		}
	}

	provided, err := o.deps.Provider.Review(ctx, ProviderRequest{Ref: req.Ref, Files: changed})
	if err != nil {
		return res, fmt.Errorf("generate findings: %w", err)
	}
	res.Overall = provided.Overall
	res.Summary.TotalFindings = len(provided.Findings)

	// Existing comments and prior findings are read-only platform context.
	// Either fetch may fail without failing the run; prior stats then
	// degrade to unknown.
	existing, existingErr := o.deps.Platform.ListExistingComments(ctx, req.Ref)
	if existingErr != nil {
		o.warn(ctx, "failed listing existing comments, prefilter disabled", map[string]interface{}{"error": existingErr.Error()})
	}
	priors, priorsErr := o.deps.Platform.ListPriorFindings(ctx, req.Ref)
	if priorsErr != nil {
		o.warn(ctx, "failed listing prior findings", map[string]interface{}{"error": priorsErr.Error()})
	}
	applyRenames(renameMap, existing, priors)

	planned := o.anchorAndPlan(ctx, provided.Findings, files, renameMap, parseFailed, &res.Summary)

	kept, droppedNear := PrefilterByLocation(planned, existing)
	res.Summary.PrefilterDropped = droppedNear

	deduper := &SemanticDeduper{Judge: o.deps.Judge, Logger: o.deps.Logger}
	kept, droppedSem := deduper.Dedupe(ctx, kept, priorBodies(priors))
	res.Summary.SemanticDropped = droppedSem

	// Reconciliation is independent of the new-finding path.
	if priorsErr != nil {
		// Prior findings could not be read at all, so even their count is
		// unknown. A nonzero Unknown forces the summary to report the
		// applicable-prior total as unknown instead of zero.
		res.Verdicts = map[string]domain.Applicability{}
		res.Summary.Prior = domain.PriorStats{Unknown: 1}
	} else {
		reconciler := &Reconciler{Judge: o.deps.Judge, Logger: o.deps.Logger}
		res.Verdicts = reconciler.Reconcile(ctx, priors, files, findingTitles(provided.Findings))
		res.Summary.Prior = PriorStatsFor(priors, res.Verdicts)
	}

	postedBlocking := false
	for _, item := range kept {
		res.Planned = append(res.Planned, item.Plan)
		if domain.Blocking(item.Finding.Severity) {
			postedBlocking = true
		}
	}
	res.Summary.Posted = len(kept)

	if req.DryRun {
		o.info(ctx, "dry run: skipping summary and comment posting", map[string]interface{}{
			"planned": len(kept),
		})
	} else {
		for _, item := range kept {
			if err := o.deps.Platform.CreateComment(ctx, req.Ref, headSHA, item.Plan); err != nil {
				// Anchor accepted, post failed: the platform client owns
				// retries, this run just records the miss.
				o.warn(ctx, "failed posting comment", map[string]interface{}{
					"path":  item.Plan.Path,
					"line":  item.Plan.Line,
					"error": err.Error(),
				})
				res.Summary.Posted--
			}
		}
	}

	// The summary posts after the comment loop so its new-finding count
	// reflects what actually landed.
	res.SummaryBody = BuildSummary(provided.Overall, res.Summary, postedBlocking)
	if !req.DryRun {
		if err := o.deps.Platform.ReplaceSummary(ctx, req.Ref, res.SummaryBody); err != nil {
			o.warn(ctx, "failed replacing summary comment", map[string]interface{}{"error": err.Error()})
		}
	}

	if req.OutputDir != "" && o.deps.Artifacts != nil {
		report := RunReport{
			Repository: req.Ref.Owner + "/" + req.Ref.Repo,
			PullNumber: req.Ref.Number,
			HeadSHA:    headSHA,
			Overall:    res.Overall,
			Summary:    res.Summary,
			Planned:    res.Planned,
			Verdicts:   res.Verdicts,
		}
		if _, err := o.deps.Artifacts.WriteRunReport(ctx, req.OutputDir, report); err != nil {
			o.warn(ctx, "failed writing run report", map[string]interface{}{"error": err.Error()})
		}
	}

	if o.deps.Store != nil {
		record := RunRecord{
			RunID:      runID(req.Ref, headSHA),
			Repository: req.Ref.Owner + "/" + req.Ref.Repo,
			PullNumber: req.Ref.Number,
			HeadSHA:    headSHA,
			Summary:    res.Summary,
			DryRun:     req.DryRun,
		}
		if err := o.deps.Store.SaveRun(ctx, record); err != nil {
			o.warn(ctx, "failed saving run record", map[string]interface{}{"error": err.Error()})
		}
	}

	o.info(ctx, "review run complete", map[string]interface{}{
		"total":             res.Summary.TotalFindings,
		"anchor_rejected":   res.Summary.AnchorRejected,
		"prefilter_dropped": res.Summary.PrefilterDropped,
		"semantic_dropped":  res.Summary.SemanticDropped,
		"posted":            res.Summary.Posted,
		"prior_applicable":  res.Summary.Prior.Applicable,
		"prior_resolved":    res.Summary.Prior.Resolved,
		"prior_unknown":     res.Summary.Prior.Unknown,
	})
	return res, nil
}

// parseChangedFiles builds the per-file diff maps. A parse failure is
// scoped to its file: the path is recorded so its findings become anchor
// rejections while every other file proceeds.
func (o *Orchestrator) parseChangedFiles(ctx context.Context, changed []ChangedFile) (map[string]*diff.File, map[string]bool) {
	files := make(map[string]*diff.File, len(changed))
	failed := make(map[string]bool)
	for _, cf := range changed {
		if cf.Patch == "" {
			continue
		}
		parsed, err := diff.Parse(cf.Patch)
		if err != nil {
			failed[cf.Path] = true
			o.warn(ctx, "unparseable patch, findings for file will be rejected", map[string]interface{}{
				"path":  cf.Path,
				"error": err.Error(),
			})
			continue
		}
		files[cf.Path] = parsed
	}
	return files, failed
}

func (o *Orchestrator) anchorAndPlan(ctx context.Context, findings []domain.Finding, files map[string]*diff.File, renameMap map[string]string, parseFailed map[string]bool, summary *domain.RunSummary) []PlannedFinding {
	planned := make([]PlannedFinding, 0, len(findings))
	for _, f := range findings {
		if mapped, ok := renameMap[f.File]; ok {
			f.File = mapped
		}
		if parseFailed[f.File] {
			summary.AnchorRejected++
			o.info(ctx, "finding rejected: file patch unparseable", map[string]interface{}{
				"path": f.File, "line": f.EndLine,
			})
			continue
		}
		a, err := anchor.Resolve(f, files[f.File])
		if err != nil {
			summary.AnchorRejected++
			o.info(ctx, "finding rejected", map[string]interface{}{
				"path": f.File, "line": f.EndLine, "reason": err.Error(),
			})
			continue
		}
		planned = append(planned, PlannedFinding{
			Finding: f,
			Anchor:  a,
			Plan:    anchor.Plan(f, a),
		})
	}
	return planned
}

// applyRenames rewrites existing-comment and prior-finding paths recorded
// at a file's previous name. Prefilter windows and structural reconciliation
// compare by path, so everything must speak the current diff's paths.
func applyRenames(renameMap map[string]string, existing []domain.ExistingComment, priors []domain.PriorFinding) {
	if len(renameMap) == 0 {
		return
	}
	for i := range existing {
		if mapped, ok := renameMap[existing[i].File]; ok {
			existing[i].File = mapped
		}
	}
	for i := range priors {
		if mapped, ok := renameMap[priors[i].File]; ok {
			priors[i].File = mapped
		}
	}
}

func buildRenameMap(changed []ChangedFile) map[string]string {
	m := make(map[string]string)
	for _, cf := range changed {
		if cf.Status == "renamed" && cf.PreviousPath != "" {
			m[cf.PreviousPath] = cf.Path
		}
	}
	return m
}

// priorBodies collects the dedupe context: the textual bodies of prior bot
// findings, prefixed with their location the same way they will be quoted
// to the judge.
func priorBodies(priors []domain.PriorFinding) []string {
	bodies := make([]string, 0, len(priors))
	for _, p := range priors {
		bodies = append(bodies, fmt.Sprintf("[%s:%d] %s\n%s", p.File, p.Line, p.Title, p.Body))
	}
	return bodies
}

func findingTitles(findings []domain.Finding) []string {
	titles := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Title != "" {
			titles = append(titles, f.Title)
		}
	}
	return titles
}

func runID(ref PRRef, headSHA string) string {
	payload := fmt.Sprintf("%s/%s#%d@%s@%d", ref.Owner, ref.Repo, ref.Number, headSHA, time.Now().UnixNano())
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:8])
}
