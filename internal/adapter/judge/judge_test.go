package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/autorev/internal/usecase/review"
)

type stubCompleter struct {
	response string
	err      error

	lastOperation string
	lastSystem    string
	lastPrompt    string
	calls         int
}

func (c *stubCompleter) Complete(_ context.Context, operation, system, prompt string, _ int) (string, error) {
	c.calls++
	c.lastOperation = operation
	c.lastSystem = system
	c.lastPrompt = prompt
	return c.response, c.err
}

func dedupeRequest(ids ...string) review.JudgeRequest {
	req := review.JudgeRequest{Task: review.TaskDeduplicate, Context: []string{"existing comment"}}
	for _, id := range ids {
		req.Items = append(req.Items, review.JudgeItem{ID: id, Body: "finding " + id})
	}
	return req
}

func TestClassify_KeepsKnownIDsInInputOrder(t *testing.T) {
	client := &stubCompleter{response: `{"keep": ["c3", "a1", "zz-hallucinated"]}`}
	j := NewJudge(client)

	resp, err := j.Classify(context.Background(), dedupeRequest("a1", "b2", "c3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "c3"}, resp.Keep)
	assert.Equal(t, "deduplicate", client.lastOperation)
}

func TestClassify_FencedResponse(t *testing.T) {
	client := &stubCompleter{response: "Here you go:\n```json\n{\"keep\": [\"a1\"]}\n```"}
	j := NewJudge(client)

	resp, err := j.Classify(context.Background(), dedupeRequest("a1", "b2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, resp.Keep)
}

func TestClassify_EmptyItemsSkipsCall(t *testing.T) {
	client := &stubCompleter{}
	j := NewJudge(client)

	resp, err := j.Classify(context.Background(), review.JudgeRequest{Task: review.TaskDeduplicate})
	require.NoError(t, err)
	assert.Empty(t, resp.Keep)
	assert.Zero(t, client.calls)
}

func TestClassify_UnknownTask(t *testing.T) {
	j := NewJudge(&stubCompleter{})

	_, err := j.Classify(context.Background(), review.JudgeRequest{
		Task:  review.JudgeTask("triage"),
		Items: []review.JudgeItem{{ID: "a1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown judge task")
}

func TestClassify_ClientErrorPropagates(t *testing.T) {
	j := NewJudge(&stubCompleter{err: errors.New("overloaded")})

	_, err := j.Classify(context.Background(), dedupeRequest("a1"))
	require.Error(t, err)
}

func TestClassify_MalformedResponse(t *testing.T) {
	j := NewJudge(&stubCompleter{response: "I kept the first two findings."})

	_, err := j.Classify(context.Background(), dedupeRequest("a1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestClassify_PromptLayout(t *testing.T) {
	client := &stubCompleter{response: `{"keep": []}`}
	j := NewJudge(client)

	req := review.JudgeRequest{
		Task:    review.TaskReconcile,
		Items:   []review.JudgeItem{{ID: "p1", Body: "[a.go:3] prior finding"}},
		Context: []string{"new finding title"},
	}
	_, err := j.Classify(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, client.lastPrompt, "### id=p1")
	assert.Contains(t, client.lastPrompt, "[a.go:3] prior finding")
	assert.Contains(t, client.lastPrompt, "## Context")
	assert.Contains(t, client.lastPrompt, "new finding title")
	assert.Contains(t, client.lastPrompt, "STILL APPLICABLE")
	assert.Contains(t, client.lastSystem, "triage assistant")
}

func TestClassify_ContextBudgetTruncates(t *testing.T) {
	client := &stubCompleter{response: `{"keep": []}`}
	j := NewJudge(client)
	j.SetPromptBudget(400)

	req := dedupeRequest("a1")
	req.Context = []string{
		strings.Repeat("first context body ", 10),
		strings.Repeat("overflow context body ", 400),
	}
	_, err := j.Classify(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, client.lastPrompt, "first context body")
	assert.NotContains(t, client.lastPrompt, "overflow context body")
	assert.Contains(t, client.lastPrompt, "(further context truncated)")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"keep\": []}\n```", `{"keep": []}`},
		{"bare fence", "```\n{\"keep\": []}\n```", `{"keep": []}`},
		{"surrounding prose", `Sure: {"keep": ["a"]} as requested.`, `{"keep": ["a"]}`},
		{"nested braces", `{"a": {"b": 1}} trailing`, `{"a": {"b": 1}}`},
		{"no json", "no object here", ""},
		{"unclosed brace", `{"keep": [`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}
