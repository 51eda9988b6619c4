// Package review orchestrates a single pull-request review run: parse the
// head diff, anchor findings, plan comments, filter duplicates, reconcile
// prior findings, and hand the surviving plan to the platform.
package review

import (
	"context"

	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/diff"
	"github.com/reviewloop/autorev/internal/domain"
)

// PRRef identifies a pull request on the hosting platform.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

// ChangedFile is one file of the PR's base...head compare, including its
// unified-diff patch text. Patch is empty for binary files.
type ChangedFile struct {
	Path         string
	PreviousPath string // set when Status is "renamed"
	Status       string // added, modified, removed, renamed
	Patch        string
}

// Platform is the hosting-platform port. Implementations own
// authentication, pagination, and HTTP retries; the pipeline treats every
// call as a blocking request/response with the run context's deadline.
type Platform interface {
	// HeadSHA returns the PR's current head commit.
	HeadSHA(ctx context.Context, ref PRRef) (string, error)

	// ListChangedFiles returns the compare result for base...head.
	ListChangedFiles(ctx context.Context, ref PRRef) ([]ChangedFile, error)

	// ListExistingComments returns all inline review comments, resolved
	// and unresolved, as read-only positional context.
	ListExistingComments(ctx context.Context, ref PRRef) ([]domain.ExistingComment, error)

	// ListPriorFindings reconstructs previously posted bot findings from
	// the platform's review threads.
	ListPriorFindings(ctx context.Context, ref PRRef) ([]domain.PriorFinding, error)

	// CreateComment posts one planned inline comment at the head commit.
	CreateComment(ctx context.Context, ref PRRef, headSHA string, plan anchor.CommentPlan) error

	// ReplaceSummary deletes prior bot summary comments and posts body as
	// the fresh run summary.
	ReplaceSummary(ctx context.Context, ref PRRef, body string) error
}

// FindingProvider is the external reasoning engine that produces findings
// for the diff. Prompting and invocation are the provider's concern.
type FindingProvider interface {
	Review(ctx context.Context, req ProviderRequest) (ProviderResult, error)
}

// ProviderRequest carries the review inputs to the reasoning engine.
type ProviderRequest struct {
	Ref   PRRef
	Files []ChangedFile
}

// ProviderResult is the reasoning engine's output for one run.
type ProviderResult struct {
	// Overall is the engine's verdict text, e.g. "patch is correct".
	Overall  string
	Findings []domain.Finding
}

// JudgeTask selects which classification the text judge performs.
type JudgeTask string

const (
	// TaskDeduplicate asks which new findings are not already covered by
	// the supplied context bodies.
	TaskDeduplicate JudgeTask = "deduplicate"
	// TaskReconcile asks which prior findings are still applicable at the
	// current head.
	TaskReconcile JudgeTask = "reconcile"
)

// JudgeItem is one (id, body) pair submitted for classification.
type JudgeItem struct {
	ID   string
	Body string
}

// JudgeRequest is the oracle call contract: an ordered item list plus
// free-text context bodies.
type JudgeRequest struct {
	Task    JudgeTask
	Items   []JudgeItem
	Context []string
}

// JudgeResponse lists the item IDs to keep, preserving relative input
// order. For TaskDeduplicate kept means not-a-duplicate; for TaskReconcile
// kept means still-applicable.
type JudgeResponse struct {
	Keep []string
}

// TextJudge is the external classification oracle. Implementations must
// return an error for transport failures or malformed model output; the
// pipeline decides the failure policy (fail-open for dedup, fail-unknown
// for reconciliation).
type TextJudge interface {
	Classify(ctx context.Context, req JudgeRequest) (JudgeResponse, error)
}

// Logger provides structured logging for the review use case.
type Logger interface {
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
}

// Store persists run history for audit. The pipeline only appends; nothing
// in a run ever reads a previous run's record.
type Store interface {
	SaveRun(ctx context.Context, record RunRecord) error
	Close() error
}

// RunRecord is the persisted view of one completed run.
type RunRecord struct {
	RunID      string
	Repository string
	PullNumber int
	HeadSHA    string
	Summary    domain.RunSummary
	DryRun     bool
}

// ArtifactWriter persists per-run debug artifacts (anchor maps, run
// reports) to the local filesystem.
type ArtifactWriter interface {
	WriteAnchorMaps(ctx context.Context, outputDir string, files map[string]*diff.File) (string, error)
	WriteRunReport(ctx context.Context, outputDir string, report RunReport) (string, error)
}

// RunReport is the local artifact describing a finished run.
type RunReport struct {
	Repository string
	PullNumber int
	HeadSHA    string
	Overall    string
	Summary    domain.RunSummary
	Planned    []anchor.CommentPlan
	Verdicts   map[string]domain.Applicability
}
