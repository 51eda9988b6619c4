package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/domain"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

const orchestratorPatch = `@@ -1,3 +1,4 @@
 package main
-func old() {}
+func renamed() {}
+func extra() {}
 // trailer
`

type fakePlatform struct {
	headSHA  string
	files    []review.ChangedFile
	existing []domain.ExistingComment
	priors   []domain.PriorFinding

	existingErr error
	priorsErr   error
	createErr   error

	created   []anchor.CommentPlan
	summaries []string
}

func (p *fakePlatform) HeadSHA(context.Context, review.PRRef) (string, error) {
	return p.headSHA, nil
}

func (p *fakePlatform) ListChangedFiles(context.Context, review.PRRef) ([]review.ChangedFile, error) {
	return p.files, nil
}

func (p *fakePlatform) ListExistingComments(context.Context, review.PRRef) ([]domain.ExistingComment, error) {
	return p.existing, p.existingErr
}

func (p *fakePlatform) ListPriorFindings(context.Context, review.PRRef) ([]domain.PriorFinding, error) {
	return p.priors, p.priorsErr
}

func (p *fakePlatform) CreateComment(_ context.Context, _ review.PRRef, _ string, plan anchor.CommentPlan) error {
	if p.createErr != nil {
		return p.createErr
	}
	p.created = append(p.created, plan)
	return nil
}

func (p *fakePlatform) ReplaceSummary(_ context.Context, _ review.PRRef, body string) error {
	p.summaries = append(p.summaries, body)
	return nil
}

type fakeProvider struct {
	result review.ProviderResult
	err    error
}

func (p *fakeProvider) Review(context.Context, review.ProviderRequest) (review.ProviderResult, error) {
	return p.result, p.err
}

type fakeStore struct {
	records []review.RunRecord
}

func (s *fakeStore) SaveRun(_ context.Context, record review.RunRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func finding(file string, line int, severity string) domain.Finding {
	return domain.NewFinding(domain.FindingInput{
		File: file, StartLine: line, EndLine: line,
		SideHint: domain.SideRight, Severity: severity,
		Title: "finding", Body: "body",
	})
}

func newPlatform() *fakePlatform {
	return &fakePlatform{
		headSHA: "abc123",
		files: []review.ChangedFile{
			{Path: "main.go", Status: "modified", Patch: orchestratorPatch},
		},
	}
}

func TestRun_PostsAnchoredFindings(t *testing.T) {
	platform := newPlatform()
	store := &fakeStore{}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Overall:  "patch is correct",
			Findings: []domain.Finding{finding("main.go", 2, domain.SeverityLow)},
		}},
		Store: store,
	})

	res, err := o.Run(context.Background(), review.Request{Ref: review.PRRef{Owner: "o", Repo: "r", Number: 7}})
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.HeadSHA)
	assert.Equal(t, 1, res.Summary.Posted)
	require.Len(t, platform.created, 1)
	assert.Equal(t, "main.go", platform.created[0].Path)
	assert.Equal(t, 2, platform.created[0].Line)

	require.Len(t, platform.summaries, 1)
	assert.Contains(t, platform.summaries[0], review.SummaryMarker)

	require.Len(t, store.records, 1)
	assert.Equal(t, "o/r", store.records[0].Repository)
	assert.Equal(t, 7, store.records[0].PullNumber)
}

func TestRun_RejectsUnanchorableFinding(t *testing.T) {
	platform := newPlatform()
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{finding("main.go", 400, domain.SeverityHigh)},
		}},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.AnchorRejected)
	assert.Zero(t, res.Summary.Posted)
	assert.Empty(t, platform.created)
	assert.Len(t, platform.summaries, 1, "summary posts even when every finding is rejected")
}

func TestRun_UnparseablePatchRejectsItsFindingsOnly(t *testing.T) {
	platform := newPlatform()
	platform.files = append(platform.files, review.ChangedFile{
		Path: "broken.go", Status: "modified", Patch: "@@ garbage @@\n",
	})
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{
				finding("broken.go", 1, domain.SeverityLow),
				finding("main.go", 2, domain.SeverityLow),
			},
		}},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.AnchorRejected)
	assert.Equal(t, 1, res.Summary.Posted)
	require.Len(t, platform.created, 1)
	assert.Equal(t, "main.go", platform.created[0].Path)
}

func TestRun_RenameMapRedirectsFindings(t *testing.T) {
	platform := newPlatform()
	platform.files = []review.ChangedFile{
		{Path: "new.go", PreviousPath: "old.go", Status: "renamed", Patch: orchestratorPatch},
	}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{finding("old.go", 2, domain.SeverityLow)},
		}},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Posted)
	require.Len(t, platform.created, 1)
	assert.Equal(t, "new.go", platform.created[0].Path)
}

func TestRun_RenameMapRemapsExistingComments(t *testing.T) {
	platform := newPlatform()
	platform.files = []review.ChangedFile{
		{Path: "new.go", PreviousPath: "old.go", Status: "renamed", Patch: orchestratorPatch},
	}
	// Comment posted before the rename still carries the old path.
	platform.existing = []domain.ExistingComment{{File: "old.go", Line: 2, Side: domain.SideRight}}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{finding("new.go", 2, domain.SeverityLow)},
		}},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.PrefilterDropped, "duplicate at the renamed path must be caught")
	assert.Empty(t, platform.created)
}

func TestRun_RenameMapRemapsPriorFindings(t *testing.T) {
	platform := newPlatform()
	platform.files = []review.ChangedFile{
		{Path: "new.go", PreviousPath: "old.go", Status: "renamed", Patch: orchestratorPatch},
	}
	platform.priors = []domain.PriorFinding{
		{ID: "gone", File: "old.go", Line: 300, Side: domain.SideRight, Severity: domain.SeverityHigh},
	}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.Resolved, res.Verdicts["gone"],
		"prior at the old path must resolve structurally against the renamed file's map")
}

func TestRun_DryRunPostsNothing(t *testing.T) {
	platform := newPlatform()
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{finding("main.go", 2, domain.SeverityLow)},
		}},
	})

	res, err := o.Run(context.Background(), review.Request{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Posted)
	assert.Len(t, res.Planned, 1)
	assert.NotEmpty(t, res.SummaryBody)
	assert.Empty(t, platform.created)
	assert.Empty(t, platform.summaries)
}

func TestRun_PostFailureDecrementsPosted(t *testing.T) {
	platform := newPlatform()
	platform.createErr = errors.New("422 unprocessable")
	logger := &recordingLogger{}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{finding("main.go", 2, domain.SeverityLow)},
		}},
		Logger: logger,
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Zero(t, res.Summary.Posted)
	assert.Contains(t, logger.warnings, "failed posting comment")

	// The summary posts after the comment loop, so its count already
	// reflects the failure.
	require.Len(t, platform.summaries, 1)
	assert.Contains(t, platform.summaries[0], "- Findings (new): 0")
	assert.Equal(t, res.SummaryBody, platform.summaries[0])
}

func TestRun_PriorListingFailureReportsUnknown(t *testing.T) {
	platform := newPlatform()
	platform.priorsErr = errors.New("graphql unavailable")
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorStats{Unknown: 1}, res.Summary.Prior)
	assert.Contains(t, res.SummaryBody, "- Findings (applicable prior): unknown")
}

func TestRun_ReconcilesPriorFindings(t *testing.T) {
	platform := newPlatform()
	platform.priors = []domain.PriorFinding{
		// Anchored to a line the new diff no longer exposes.
		{ID: "gone", File: "main.go", Line: 300, Side: domain.SideRight, Severity: domain.SeverityHigh},
	}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.Resolved, res.Verdicts["gone"])
	assert.Equal(t, 1, res.Summary.Prior.Resolved)
}

func TestRun_ProviderFailureFailsRun(t *testing.T) {
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: newPlatform(),
		Provider: &fakeProvider{err: errors.New("model unavailable")},
	})

	_, err := o.Run(context.Background(), review.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate findings")
}

func TestRun_PrefilterDropsNearExisting(t *testing.T) {
	platform := newPlatform()
	platform.existing = []domain.ExistingComment{{File: "main.go", Line: 3}}
	o := review.NewOrchestrator(review.OrchestratorDeps{
		Platform: platform,
		Provider: &fakeProvider{result: review.ProviderResult{
			Findings: []domain.Finding{finding("main.go", 2, domain.SeverityLow)},
		}},
	})

	res, err := o.Run(context.Background(), review.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.PrefilterDropped)
	assert.Empty(t, platform.created)
}
