package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindingMarker_RoundTrip(t *testing.T) {
	body := "Title\n\nBody text.\n\n" + FindingMarker("a1b2c3", "high")

	id, severity, ok := ParseFindingMarker(body)
	assert.True(t, ok)
	assert.Equal(t, "a1b2c3", id)
	assert.Equal(t, "high", severity)
}

func TestParseFindingMarker_HumanComment(t *testing.T) {
	_, _, ok := ParseFindingMarker("just a regular review comment")
	assert.False(t, ok)
}

func TestParseFindingMarker_MalformedMarker(t *testing.T) {
	_, _, ok := ParseFindingMarker("<!-- AUTOREV_FINDING_V1 id= severity=high -->")
	assert.False(t, ok)
}

func TestStripMarker(t *testing.T) {
	body := "Title\n\nBody text.\n\n" + FindingMarker("a1b2c3", "low")
	assert.Equal(t, "Title\n\nBody text.", StripMarker(body))
}

func TestStripMarker_NoMarker(t *testing.T) {
	assert.Equal(t, "plain text", StripMarker("plain text\n"))
}
