package github

import (
	"fmt"
	"regexp"
	"strings"
)

// findingMarkerPrefix identifies inline comments created by this tool. The
// marker is an invisible HTML comment carrying the finding's identity so a
// later run can reconstruct prior findings from the platform's own comment
// history without any private storage.
const findingMarkerPrefix = "<!-- AUTOREV_FINDING_V1"

var findingMarkerRegex = regexp.MustCompile(`<!-- AUTOREV_FINDING_V1 id=([0-9a-f]+) severity=([a-z]+) -->`)

// FindingMarker renders the hidden identity marker for a posted comment.
func FindingMarker(id, severity string) string {
	return fmt.Sprintf("%s id=%s severity=%s -->", findingMarkerPrefix, id, severity)
}

// ParseFindingMarker extracts the finding identity from a comment body.
// Returns ok=false for comments not created by this tool.
func ParseFindingMarker(body string) (id, severity string, ok bool) {
	m := findingMarkerRegex.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// StripMarker removes marker lines from a comment body, returning the
// human-visible text.
func StripMarker(body string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), findingMarkerPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
