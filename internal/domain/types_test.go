package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFinding_Normalization(t *testing.T) {
	f := NewFinding(FindingInput{
		File: "a.go", StartLine: 10, EndLine: 4,
		SideHint: Side("BOTH"), Severity: SeverityLow, Title: "t",
	})
	assert.Equal(t, SideRight, f.SideHint, "invalid side hints default to the new side")
	assert.Equal(t, 10, f.EndLine, "end line collapses to start when inverted")
	assert.NotEmpty(t, f.ID)
}

func TestNormalizeSeverity(t *testing.T) {
	cases := map[string]string{
		"critical": SeverityCritical,
		"HIGH":     SeverityHigh,
		" medium ": SeverityMedium,
		"low":      SeverityLow,
		"blocker":  SeverityMedium,
		"":         SeverityMedium,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSeverity(in), "input %q", in)
	}
}

func TestNewFinding_NormalizesSeverity(t *testing.T) {
	f := NewFinding(FindingInput{File: "a.go", StartLine: 1, EndLine: 1, Severity: "P1", Title: "t"})
	assert.Equal(t, SeverityMedium, f.Severity)
}

func TestNewFinding_DeterministicID(t *testing.T) {
	input := FindingInput{
		File: "a.go", StartLine: 5, EndLine: 5,
		SideHint: SideRight, Severity: SeverityHigh, Title: "t", Body: "b",
	}
	assert.Equal(t, NewFinding(input).ID, NewFinding(input).ID)

	other := input
	other.StartLine = 6
	assert.NotEqual(t, NewFinding(input).ID, NewFinding(other).ID)
}

func TestSide(t *testing.T) {
	assert.Equal(t, SideLeft, SideRight.Opposite())
	assert.Equal(t, SideRight, SideLeft.Opposite())
	assert.True(t, SideRight.Valid())
	assert.False(t, Side("both").Valid())
}

func TestBlocking(t *testing.T) {
	assert.True(t, Blocking(SeverityCritical))
	assert.True(t, Blocking(SeverityHigh))
	assert.False(t, Blocking(SeverityMedium))
	assert.False(t, Blocking(SeverityLow))
	assert.False(t, Blocking(""))
}

func TestPriorStats_ApplicableKnown(t *testing.T) {
	assert.True(t, PriorStats{Applicable: 3}.ApplicableKnown())
	assert.False(t, PriorStats{Applicable: 3, Unknown: 1}.ApplicableKnown())
}

func TestRunSummary_Blocking(t *testing.T) {
	assert.True(t, RunSummary{}.Blocking(true))
	assert.True(t, RunSummary{Prior: PriorStats{ApplicableBlocking: 1}}.Blocking(false))
	assert.False(t, RunSummary{Prior: PriorStats{ApplicableBlocking: 1, Unknown: 1}}.Blocking(false))
	assert.False(t, RunSummary{}.Blocking(false))
}
