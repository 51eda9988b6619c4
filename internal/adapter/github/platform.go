package github

import (
	"context"
	"strings"

	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/domain"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

// Platform adapts the GitHub client to the review pipeline's platform
// port.
type Platform struct {
	client *Client
}

// NewPlatform wraps a configured client.
func NewPlatform(client *Client) *Platform {
	return &Platform{client: client}
}

// HeadSHA returns the PR's current head commit.
func (p *Platform) HeadSHA(ctx context.Context, ref review.PRRef) (string, error) {
	pr, err := p.client.GetPullRequest(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", err
	}
	return pr.Head.SHA, nil
}

// ListChangedFiles returns the compare result for base...head.
func (p *Platform) ListChangedFiles(ctx context.Context, ref review.PRRef) ([]review.ChangedFile, error) {
	entries, err := p.client.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, err
	}
	changed := make([]review.ChangedFile, 0, len(entries))
	for _, e := range entries {
		changed = append(changed, review.ChangedFile{
			Path:         e.Filename,
			PreviousPath: e.PreviousFilename,
			Status:       e.Status,
			Patch:        e.Patch,
		})
	}
	return changed, nil
}

// ListExistingComments returns every inline review comment, replies
// included, as positional context. The location prefilter counts resolved
// and unresolved comments alike, so per-comment resolution is not fetched
// here.
func (p *Platform) ListExistingComments(ctx context.Context, ref review.PRRef) ([]domain.ExistingComment, error) {
	entries, err := p.client.ListReviewComments(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, err
	}
	comments := make([]domain.ExistingComment, 0, len(entries))
	for _, e := range entries {
		line := e.Line
		if line == 0 {
			// Outdated comments drop their current-position line; the
			// original location is still useful proximity context.
			line = e.OriginalLine
		}
		comments = append(comments, domain.ExistingComment{
			File:     e.Path,
			Line:     line,
			Side:     sideFromAPI(e.Side),
			BodyHash: domain.HashBody(e.Body),
		})
	}
	return comments, nil
}

// ListPriorFindings reconstructs previously posted findings from review
// threads. Only threads whose root comment carries the identity marker are
// considered; everything else on the PR belongs to humans.
func (p *Platform) ListPriorFindings(ctx context.Context, ref review.PRRef) ([]domain.PriorFinding, error) {
	threads, err := p.client.ListReviewThreads(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, err
	}
	var priors []domain.PriorFinding
	for _, t := range threads {
		id, severity, ok := ParseFindingMarker(t.FirstBody)
		if !ok {
			continue
		}
		title, body := splitTitle(StripMarker(t.FirstBody))
		priors = append(priors, domain.PriorFinding{
			ID:       id,
			File:     t.Path,
			Line:     t.Line,
			Side:     sideFromAPI(t.Side),
			Severity: severity,
			Title:    title,
			Body:     body,
			Resolved: t.IsResolved,
		})
	}
	return priors, nil
}

// CreateComment posts one planned inline comment at the head commit.
func (p *Platform) CreateComment(ctx context.Context, ref review.PRRef, headSHA string, plan anchor.CommentPlan) error {
	payload := BuildCommentPayload(plan, headSHA)
	return p.client.CreateReviewComment(ctx, ref.Owner, ref.Repo, ref.Number, payload)
}

// ReplaceSummary deletes prior summary comments and posts body as the
// fresh run summary.
func (p *Platform) ReplaceSummary(ctx context.Context, ref review.PRRef, body string) error {
	existing, err := p.client.ListIssueComments(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if !strings.Contains(c.Body, review.SummaryMarker) {
			continue
		}
		if err := p.client.DeleteIssueComment(ctx, ref.Owner, ref.Repo, c.ID); err != nil {
			return err
		}
	}
	return p.client.CreateIssueComment(ctx, ref.Owner, ref.Repo, ref.Number, body)
}

func sideFromAPI(side string) domain.Side {
	if strings.EqualFold(side, string(domain.SideLeft)) {
		return domain.SideLeft
	}
	return domain.SideRight
}

// splitTitle separates the title paragraph written by the comment planner
// from the remaining body text.
func splitTitle(text string) (title, body string) {
	parts := strings.SplitN(text, "\n\n", 2)
	title = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		body = strings.TrimSpace(parts[1])
	}
	return title, body
}
