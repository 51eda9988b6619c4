package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reviewloop/autorev/internal/usecase/review"
)

const (
	// defaultJudgeMaxTokens bounds the oracle's classification response.
	defaultJudgeMaxTokens = 2048

	// defaultPromptBudget caps the estimated token size of a judge prompt.
	// Context bodies past the budget are truncated oldest-first.
	defaultPromptBudget = 60000

	judgeSystem = "You are a precise code-review triage assistant. Answer only with the requested JSON object, no prose."
)

// CompletionClient abstracts the messages client for the judge.
type CompletionClient interface {
	Complete(ctx context.Context, operation, system, prompt string, maxTokens int) (string, error)
}

// Judge classifies finding texts via the reasoning engine. It implements
// the pipeline's text-judge port; failure policy (fail-open vs.
// fail-unknown) stays with the caller.
type Judge struct {
	client       CompletionClient
	maxTokens    int
	promptBudget int
}

// NewJudge constructs a Judge on the supplied client.
func NewJudge(client CompletionClient) *Judge {
	return &Judge{
		client:       client,
		maxTokens:    defaultJudgeMaxTokens,
		promptBudget: defaultPromptBudget,
	}
}

// SetPromptBudget overrides the token budget for judge prompts.
func (j *Judge) SetPromptBudget(budget int) {
	j.promptBudget = budget
}

// Classify asks the oracle which items to keep for the given task.
func (j *Judge) Classify(ctx context.Context, req review.JudgeRequest) (review.JudgeResponse, error) {
	if len(req.Items) == 0 {
		return review.JudgeResponse{}, nil
	}

	prompt, err := j.buildPrompt(req)
	if err != nil {
		return review.JudgeResponse{}, err
	}

	text, err := j.client.Complete(ctx, string(req.Task), judgeSystem, prompt, j.maxTokens)
	if err != nil {
		return review.JudgeResponse{}, err
	}

	keep, err := parseKeepResponse(text)
	if err != nil {
		return review.JudgeResponse{}, err
	}

	// Restrict to known IDs in input order so a hallucinated or reordered
	// response cannot change pipeline ordering.
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	resp := review.JudgeResponse{}
	for _, item := range req.Items {
		if keepSet[item.ID] {
			resp.Keep = append(resp.Keep, item.ID)
		}
	}
	return resp, nil
}

func (j *Judge) buildPrompt(req review.JudgeRequest) (string, error) {
	var sb strings.Builder

	switch req.Task {
	case review.TaskDeduplicate:
		sb.WriteString(`You are comparing NEW code-review findings against EXISTING review comments on the same pull request.

A new finding is a DUPLICATE if an existing comment already describes the same underlying issue, even if worded differently. Findings about different issues are not duplicates, even on the same code.

Keep every new finding that is NOT a duplicate.

`)
	case review.TaskReconcile:
		sb.WriteString(`You are re-checking PRIOR code-review findings against the pull request's current state.

A prior finding is STILL APPLICABLE if the underlying issue has not been addressed. It is resolved if the code it describes was fixed or removed. When the context suggests the issue was superseded by an equivalent new finding, treat the prior one as resolved.

Keep every prior finding that is STILL APPLICABLE.

`)
	default:
		return "", fmt.Errorf("unknown judge task %q", req.Task)
	}

	sb.WriteString("## Items\n\n")
	for _, item := range req.Items {
		sb.WriteString(fmt.Sprintf("### id=%s\n\n%s\n\n", item.ID, item.Body))
	}

	if len(req.Context) > 0 {
		sb.WriteString("## Context\n\n")
		used := EstimateTokens(sb.String())
		for _, c := range req.Context {
			cost := EstimateTokens(c)
			if used+cost > j.promptBudget {
				sb.WriteString("(further context truncated)\n\n")
				break
			}
			sb.WriteString(c)
			sb.WriteString("\n\n---\n\n")
			used += cost
		}
	}

	sb.WriteString(`## Response Format

Respond with a single JSON object listing the ids to keep, for example:

` + "```json\n" + `{"keep": ["a1b2", "c3d4"]}
` + "```\n")

	return sb.String(), nil
}

type keepResponse struct {
	Keep []string `json:"keep"`
}

// parseKeepResponse extracts the keep-list JSON from a model response that
// may wrap it in markdown fences or prose.
func parseKeepResponse(text string) ([]string, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var resp keepResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("parse keep response: %w", err)
	}
	return resp.Keep, nil
}

// extractJSON pulls a JSON object out of a response that may contain
// markdown code fences or surrounding prose.
func extractJSON(response string) string {
	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}
	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}
	if start := strings.Index(response, "{"); start != -1 {
		depth := 0
		for i := start; i < len(response); i++ {
			switch response[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}
