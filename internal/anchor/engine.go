// Package anchor maps findings onto concrete diff coordinates and decides
// the comment shape the platform API should receive.
package anchor

import (
	"errors"

	"github.com/reviewloop/autorev/internal/diff"
	"github.com/reviewloop/autorev/internal/domain"
)

// ErrNotAddressable is returned when a finding's terminal line is not
// addressable on either diff side. The finding is dropped: approximating
// the anchor would risk attaching the comment to the wrong line, which is
// worse than losing the finding.
var ErrNotAddressable = errors.New("no addressable line for requested side(s)")

// maxSuggestionSpan is the exclusive ceiling on end-start for a range
// anchor. Longer ranges collapse to a single-line anchor at the end line.
const maxSuggestionSpan = 5

// Resolve maps a finding to an anchor on the file's current diff, or
// rejects it with ErrNotAddressable.
//
// Resolution is deterministic and strict: the side hint is tried at the
// finding's end line (the line the platform attaches trailing context to),
// then the opposite side at the same line. There is no walking to nearby
// lines and no file-level fallback.
func Resolve(f domain.Finding, file *diff.File) (domain.Anchor, error) {
	if file == nil || f.EndLine <= 0 {
		return domain.Anchor{}, ErrNotAddressable
	}

	side := f.SideHint
	if !side.Valid() {
		side = domain.SideRight
	}
	if !file.Addressable(f.EndLine, side) {
		side = side.Opposite()
		if !file.Addressable(f.EndLine, side) {
			return domain.Anchor{}, ErrNotAddressable
		}
	}

	a := domain.Anchor{
		File: f.File,
		Line: f.EndLine,
		Side: side,
	}

	// A multi-line anchor requires the whole range addressable on the
	// resolved side, inside one hunk, and short enough to render as a
	// suggestion. Anything else degrades to the single terminal line.
	span := f.EndLine - f.StartLine
	if span > 0 && span < maxSuggestionSpan && file.RangeInOneHunk(f.StartLine, f.EndLine, side) {
		a.IsRange = true
		a.RangeStart = f.StartLine
	}
	return a, nil
}
