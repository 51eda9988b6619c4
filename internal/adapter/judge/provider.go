package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reviewloop/autorev/internal/domain"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

const (
	// defaultProviderMaxTokens bounds the review response.
	defaultProviderMaxTokens = 8192

	// defaultDiffBudget caps the estimated token size of the diff section.
	// Files past the budget are listed by name only.
	defaultDiffBudget = 120000

	providerSystem = "You are a meticulous code reviewer. Report only genuine defects and answer with the requested JSON object, no prose."
)

// Provider generates findings for a pull-request diff via the reasoning
// engine. It implements the pipeline's finding-provider port.
type Provider struct {
	client     CompletionClient
	maxTokens  int
	diffBudget int
}

// NewProvider constructs a Provider on the supplied client.
func NewProvider(client CompletionClient) *Provider {
	return &Provider{
		client:     client,
		maxTokens:  defaultProviderMaxTokens,
		diffBudget: defaultDiffBudget,
	}
}

// SetDiffBudget overrides the token budget for the diff section.
func (p *Provider) SetDiffBudget(budget int) {
	p.diffBudget = budget
}

// Review sends the changed files to the engine and translates the
// response into findings. Line references outside the diff survive here;
// the anchor engine rejects them downstream.
func (p *Provider) Review(ctx context.Context, req review.ProviderRequest) (review.ProviderResult, error) {
	if p.client == nil {
		return review.ProviderResult{}, fmt.Errorf("completion client missing")
	}

	prompt := p.buildPrompt(req)
	text, err := p.client.Complete(ctx, "review", providerSystem, prompt, p.maxTokens)
	if err != nil {
		return review.ProviderResult{}, err
	}
	return parseReviewResponse(text)
}

func (p *Provider) buildPrompt(req review.ProviderRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Review pull request %s/%s#%d. The unified diff of each changed file follows.\n\n",
		req.Ref.Owner, req.Ref.Repo, req.Ref.Number))

	used := EstimateTokens(sb.String())
	var omitted []string
	for _, f := range req.Files {
		if f.Patch == "" {
			continue
		}
		section := fmt.Sprintf("## %s (%s)\n\n```diff\n%s\n```\n\n", f.Path, f.Status, f.Patch)
		cost := EstimateTokens(section)
		if used+cost > p.diffBudget {
			omitted = append(omitted, f.Path)
			continue
		}
		sb.WriteString(section)
		used += cost
	}
	if len(omitted) > 0 {
		sb.WriteString("## Omitted for size\n\n")
		for _, path := range omitted {
			sb.WriteString("- " + path + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`## Response Format

Respond with a single JSON object:

` + "```json\n" + `{
  "overall": "patch is correct",
  "findings": [
    {
      "file": "pkg/server/server.go",
      "start_line": 41,
      "end_line": 42,
      "side": "RIGHT",
      "severity": "high",
      "title": "Nil map write",
      "body": "The handlers map is read before initialization.",
      "suggestion": "handlers := make(map[string]Handler)"
    }
  ]
}
` + "```\n\n" + `Rules:
- "side" is RIGHT for added or unchanged lines, LEFT for removed lines.
- Line numbers refer to the side named, within the diff shown above.
- "severity" is one of critical, high, medium, low.
- "suggestion" is optional replacement code for exactly the lines start_line..end_line.
- "overall" is "patch is correct" or "patch is incorrect" plus a short reason.
- Report at most one finding per underlying issue.
`)
	return sb.String()
}

type reviewResponse struct {
	Overall  string `json:"overall"`
	Findings []struct {
		File       string `json:"file"`
		StartLine  int    `json:"start_line"`
		EndLine    int    `json:"end_line"`
		Side       string `json:"side"`
		Severity   string `json:"severity"`
		Title      string `json:"title"`
		Body       string `json:"body"`
		Suggestion string `json:"suggestion"`
	} `json:"findings"`
}

func parseReviewResponse(text string) (review.ProviderResult, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return review.ProviderResult{}, fmt.Errorf("no JSON object in response")
	}
	var resp reviewResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return review.ProviderResult{}, fmt.Errorf("parse review response: %w", err)
	}

	result := review.ProviderResult{Overall: resp.Overall}
	for _, f := range resp.Findings {
		if f.File == "" || f.Title == "" {
			continue
		}
		result.Findings = append(result.Findings, domain.NewFinding(domain.FindingInput{
			File:       f.File,
			StartLine:  f.StartLine,
			EndLine:    f.EndLine,
			SideHint:   domain.Side(strings.ToUpper(f.Side)),
			Severity:   f.Severity,
			Title:      f.Title,
			Body:       f.Body,
			Suggestion: f.Suggestion,
		}))
	}
	return result, nil
}
