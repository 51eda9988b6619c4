package git

import (
	"context"
	"fmt"

	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/domain"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

// ReadOnlyPlatform adapts the local engine to the platform port for
// dry runs. It has no comment history and refuses every write.
type ReadOnlyPlatform struct {
	engine    *Engine
	baseRef   string
	targetRef string
}

// NewReadOnlyPlatform wraps an engine for the given ref range.
func NewReadOnlyPlatform(engine *Engine, baseRef, targetRef string) *ReadOnlyPlatform {
	return &ReadOnlyPlatform{engine: engine, baseRef: baseRef, targetRef: targetRef}
}

// HeadSHA resolves the target ref.
func (p *ReadOnlyPlatform) HeadSHA(ctx context.Context, ref review.PRRef) (string, error) {
	return p.engine.HeadSHA(ctx, p.targetRef)
}

// ListChangedFiles computes the local base...target diff.
func (p *ReadOnlyPlatform) ListChangedFiles(ctx context.Context, ref review.PRRef) ([]review.ChangedFile, error) {
	return p.engine.ChangedFiles(ctx, p.baseRef, p.targetRef)
}

// ListExistingComments returns no comments; a local range has none.
func (p *ReadOnlyPlatform) ListExistingComments(ctx context.Context, ref review.PRRef) ([]domain.ExistingComment, error) {
	return nil, nil
}

// ListPriorFindings returns no prior findings.
func (p *ReadOnlyPlatform) ListPriorFindings(ctx context.Context, ref review.PRRef) ([]domain.PriorFinding, error) {
	return nil, nil
}

// CreateComment always fails; local review is dry-run only.
func (p *ReadOnlyPlatform) CreateComment(ctx context.Context, ref review.PRRef, headSHA string, plan anchor.CommentPlan) error {
	return fmt.Errorf("local platform is read-only")
}

// ReplaceSummary always fails; local review is dry-run only.
func (p *ReadOnlyPlatform) ReplaceSummary(ctx context.Context, ref review.PRRef, body string) error {
	return fmt.Errorf("local platform is read-only")
}
