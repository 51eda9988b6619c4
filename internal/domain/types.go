package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Side identifies which side of a pull-request diff a line belongs to.
type Side string

const (
	// SideRight is the post-change (new file) side of the diff.
	SideRight Side = "RIGHT"
	// SideLeft is the pre-change (old file) side of the diff.
	SideLeft Side = "LEFT"
)

// Opposite returns the other diff side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideRight || s == SideLeft
}

// Severity levels for findings, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Blocking reports whether a severity should block the review verdict.
func Blocking(severity string) bool {
	return severity == SeverityCritical || severity == SeverityHigh
}

// NormalizeSeverity maps a reported severity onto the known scale. Anything
// unrecognized, including the empty string, becomes medium; the identity
// marker embedded in posted comments only round-trips known severities.
func NormalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Finding is a single issue reported by the reasoning engine.
// Findings are immutable once emitted; EndLine >= StartLine always holds
// after NewFinding normalization.
type Finding struct {
	ID         string `json:"id"`
	File       string `json:"file"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	SideHint   Side   `json:"sideHint"`
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Suggestion string `json:"suggestion,omitempty"`
}

// FindingInput captures the information required to create a Finding.
type FindingInput struct {
	File       string
	StartLine  int
	EndLine    int
	SideHint   Side
	Severity   string
	Title      string
	Body       string
	Suggestion string
}

// NewFinding constructs a Finding with a deterministic ID and normalized
// line range. An unset or invalid side hint defaults to the new-file side,
// an unrecognized severity to medium, and an unset end line collapses to
// the start line.
func NewFinding(input FindingInput) Finding {
	if !input.SideHint.Valid() {
		input.SideHint = SideRight
	}
	input.Severity = NormalizeSeverity(input.Severity)
	if input.EndLine < input.StartLine {
		input.EndLine = input.StartLine
	}
	return Finding{
		ID:         hashFinding(input),
		File:       input.File,
		StartLine:  input.StartLine,
		EndLine:    input.EndLine,
		SideHint:   input.SideHint,
		Severity:   input.Severity,
		Title:      input.Title,
		Body:       input.Body,
		Suggestion: input.Suggestion,
	}
}

func hashFinding(input FindingInput) string {
	payload := fmt.Sprintf("%s|%d|%d|%s|%s|%s|%s",
		input.File,
		input.StartLine,
		input.EndLine,
		input.SideHint,
		input.Severity,
		input.Title,
		input.Body,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Anchor is a concrete (line, side) coordinate on which a platform comment
// can be created. Anchors are produced only by the anchor engine; a finding
// maps to at most one anchor or to none.
type Anchor struct {
	File       string
	Line       int
	Side       Side
	IsRange    bool
	RangeStart int // set iff IsRange
}

// ExistingComment is a read-only view of a comment already present on the
// pull request, supplied by the hosting platform for the current run.
type ExistingComment struct {
	File     string
	Line     int
	Side     Side
	Resolved bool
	BodyHash string
}

// PriorFinding is a previously posted finding reconstructed from the
// platform's comment history. The pipeline holds no private state between
// runs; this is the only carrier of cross-run identity.
type PriorFinding struct {
	ID       string
	File     string
	Line     int
	Side     Side
	Severity string
	Title    string
	Body     string
	Resolved bool
}

// Applicability classifies whether a prior finding still holds at the
// current head.
type Applicability string

const (
	// Applicable means the underlying issue still exists at the new head.
	Applicable Applicability = "APPLICABLE"
	// Resolved means the issue no longer applies (line gone or judged fixed).
	Resolved Applicability = "RESOLVED"
	// Unknown means applicability could not be determined this run.
	Unknown Applicability = "UNKNOWN"
)

// HashBody returns a stable hash of a comment body, used for positional
// comment identity without retaining the full text.
func HashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
