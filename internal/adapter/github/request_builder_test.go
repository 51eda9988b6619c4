package github

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/autorev/internal/anchor"
	"github.com/reviewloop/autorev/internal/domain"
)

func TestBuildCommentPayload_SingleLine(t *testing.T) {
	plan := anchor.CommentPlan{
		Path: "main.go", Line: 12, Side: domain.SideRight,
		Body: "Unchecked error", FindingID: "ab12", Severity: "high",
	}

	payload := BuildCommentPayload(plan, "deadbeef")
	assert.Equal(t, "main.go", payload.Path)
	assert.Equal(t, 12, payload.Line)
	assert.Equal(t, "RIGHT", payload.Side)
	assert.Equal(t, "deadbeef", payload.CommitID)
	assert.Zero(t, payload.StartLine)
	assert.Contains(t, payload.Body, "Unchecked error")
	assert.Contains(t, payload.Body, FindingMarker("ab12", "high"))
}

func TestBuildCommentPayload_Range(t *testing.T) {
	plan := anchor.CommentPlan{
		Path: "main.go", Line: 14, Side: domain.SideRight,
		StartLine: 12, StartSide: domain.SideRight, Body: "Spans lines",
	}

	payload := BuildCommentPayload(plan, "deadbeef")
	assert.Equal(t, 12, payload.StartLine)
	assert.Equal(t, "RIGHT", payload.StartSide)
}

func TestBuildCommentPayload_NoMarkerWithoutFindingID(t *testing.T) {
	plan := anchor.CommentPlan{Path: "main.go", Line: 1, Side: domain.SideRight, Body: "note"}

	payload := BuildCommentPayload(plan, "deadbeef")
	assert.Equal(t, "note", payload.Body)
}

func TestCommentPayload_OmitsEmptyRangeFields(t *testing.T) {
	payload := BuildCommentPayload(anchor.CommentPlan{
		Path: "main.go", Line: 1, Side: domain.SideRight, Body: "note",
	}, "deadbeef")

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "start_line")
	assert.NotContains(t, string(encoded), "start_side")
}
