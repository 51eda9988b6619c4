package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reviewloop/autorev/internal/domain"
)

// LineKind classifies a line within a hunk.
type LineKind int

const (
	// KindContext is an unchanged line present on both sides.
	KindContext LineKind = iota
	// KindAdded is a line present only on the new side.
	KindAdded
	// KindRemoved is a line present only on the old side.
	KindRemoved
)

// Line is a single content line of a hunk. OldLine is set for context and
// removed lines; NewLine is set for context and added lines. At least one
// of the two is always set.
type Line struct {
	Kind    LineKind
	Content string
	OldLine int // 0 when absent
	NewLine int // 0 when absent
}

// Hunk is one @@ change region. Line counters strictly increase within a
// hunk, and hunks within a file are ordered by NewStart.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// ParseError reports a malformed patch. It is scoped to a single file: the
// caller treats that file's findings as unanchorable and continues the run.
type ParseError struct {
	Line   int // 1-indexed line within the patch text
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("patch line %d: %s", e.Line, e.Reason)
}

type lineKey struct {
	line int
	side domain.Side
}

// File is the parsed diff for one file: the ordered hunks plus the derived
// addressable-line map. It is built once per run and must not be mutated
// after construction; findings read it concurrently-safely because all
// accessors are read-only.
type File struct {
	Hunks []Hunk

	addressable map[lineKey]bool
	hunkIndex   map[lineKey]int
}

// Parse parses unified-diff text for a single file. File headers
// (diff --git, index, ---, +++) and "\ No newline" markers are tolerated;
// everything after the first hunk header must be well formed.
func Parse(patch string) (*File, error) {
	f := &File{
		addressable: make(map[lineKey]bool),
		hunkIndex:   make(map[lineKey]int),
	}
	if patch == "" {
		return f, nil
	}

	var (
		current *Hunk
		oldNext int // next old-side line number
		newNext int
		oldSeen int // content lines consumed against the declared counts
		newSeen int
	)

	finishHunk := func(lineno int) error {
		if current == nil {
			return nil
		}
		if oldSeen != current.OldCount || newSeen != current.NewCount {
			return &ParseError{
				Line: lineno,
				Reason: fmt.Sprintf("hunk @@ -%d,%d +%d,%d @@ has %d/%d old and %d/%d new lines",
					current.OldStart, current.OldCount, current.NewStart, current.NewCount,
					oldSeen, current.OldCount, newSeen, current.NewCount),
			}
		}
		f.Hunks = append(f.Hunks, *current)
		current = nil
		return nil
	}

	for i, raw := range strings.Split(patch, "\n") {
		lineno := i + 1

		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "@@") {
			if err := finishHunk(lineno); err != nil {
				return nil, err
			}
			h, err := parseHunkHeader(raw, lineno)
			if err != nil {
				return nil, err
			}
			current = &h
			oldNext, newNext = h.OldStart, h.NewStart
			oldSeen, newSeen = 0, 0
			continue
		}
		if current == nil {
			// Preamble: file headers and similar noise before the first hunk.
			continue
		}
		if strings.HasPrefix(raw, "\\ ") {
			continue
		}

		idx := len(f.Hunks)
		var line Line
		switch raw[0] {
		case ' ':
			line = Line{Kind: KindContext, Content: raw[1:], OldLine: oldNext, NewLine: newNext}
			f.mark(oldNext, domain.SideLeft, idx)
			f.mark(newNext, domain.SideRight, idx)
			oldNext++
			newNext++
			oldSeen++
			newSeen++
		case '+':
			line = Line{Kind: KindAdded, Content: raw[1:], NewLine: newNext}
			f.mark(newNext, domain.SideRight, idx)
			newNext++
			newSeen++
		case '-':
			line = Line{Kind: KindRemoved, Content: raw[1:], OldLine: oldNext}
			f.mark(oldNext, domain.SideLeft, idx)
			oldNext++
			oldSeen++
		default:
			return nil, &ParseError{Line: lineno, Reason: fmt.Sprintf("unexpected prefix %q inside hunk", raw[0])}
		}
		if oldSeen > current.OldCount || newSeen > current.NewCount {
			return nil, &ParseError{Line: lineno, Reason: "hunk contains more lines than its header declares"}
		}
		current.Lines = append(current.Lines, line)
	}

	if err := finishHunk(len(strings.Split(patch, "\n"))); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) mark(line int, side domain.Side, hunkIdx int) {
	k := lineKey{line: line, side: side}
	f.addressable[k] = true
	f.hunkIndex[k] = hunkIdx
}

// Addressable reports whether a comment can be created at (line, side) on
// this file's current diff.
func (f *File) Addressable(line int, side domain.Side) bool {
	return f.addressable[lineKey{line: line, side: side}]
}

// RangeInOneHunk reports whether every line of [start, end] is addressable
// on the given side and all of them fall within the same hunk.
func (f *File) RangeInOneHunk(start, end int, side domain.Side) bool {
	if start > end {
		return false
	}
	first, ok := f.hunkIndex[lineKey{line: start, side: side}]
	if !ok {
		return false
	}
	for line := start + 1; line <= end; line++ {
		idx, ok := f.hunkIndex[lineKey{line: line, side: side}]
		if !ok || idx != first {
			return false
		}
	}
	return true
}

// AddressableLines returns the sorted addressable line numbers for a side.
// Used for the per-run anchor-map debug artifact.
func (f *File) AddressableLines(side domain.Side) []int {
	var lines []int
	for k := range f.addressable {
		if k.side == side {
			lines = append(lines, k.line)
		}
	}
	sortInts(lines)
	return lines
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// parseHunkHeader parses "@@ -oldStart,oldCount +newStart,newCount @@ ctx".
// The count may be omitted when it equals 1.
func parseHunkHeader(line string, lineno int) (Hunk, error) {
	parts := strings.SplitN(line, "@@", 3)
	if len(parts) < 3 {
		return Hunk{}, &ParseError{Line: lineno, Reason: "malformed hunk header: missing closing @@"}
	}

	var h Hunk
	var sawOld, sawNew bool
	for _, tok := range strings.Fields(strings.TrimSpace(parts[1])) {
		switch {
		case strings.HasPrefix(tok, "-"):
			start, count, err := parseRange(tok[1:])
			if err != nil {
				return Hunk{}, &ParseError{Line: lineno, Reason: fmt.Sprintf("malformed old range %q", tok)}
			}
			h.OldStart, h.OldCount, sawOld = start, count, true
		case strings.HasPrefix(tok, "+"):
			start, count, err := parseRange(tok[1:])
			if err != nil {
				return Hunk{}, &ParseError{Line: lineno, Reason: fmt.Sprintf("malformed new range %q", tok)}
			}
			h.NewStart, h.NewCount, sawNew = start, count, true
		}
	}
	if !sawOld || !sawNew {
		return Hunk{}, &ParseError{Line: lineno, Reason: "malformed hunk header: missing old or new range"}
	}
	return h, nil
}

// parseRange parses "start,count" or "start" (count defaults to 1).
func parseRange(s string) (start, count int, err error) {
	count = 1
	if idx := strings.Index(s, ","); idx >= 0 {
		if count, err = strconv.Atoi(s[idx+1:]); err != nil {
			return 0, 0, err
		}
		s = s[:idx]
	}
	if start, err = strconv.Atoi(s); err != nil {
		return 0, 0, err
	}
	if start < 0 || count < 0 {
		return 0, 0, fmt.Errorf("negative range")
	}
	return start, count, nil
}
