// Package diff parses the unified-diff text the hosting platform returns
// for a single file and derives which (line, side) coordinates are
// addressable for inline review comments.
//
// RIGHT-side addressability comes from new-file line numbers (added and
// context lines); LEFT-side addressability comes from old-file line numbers
// (removed and context lines). Parsing is strict: a malformed hunk header or
// a line-counter mismatch fails the parse for that file, because a map built
// from inconsistent counters could anchor comments to the wrong line.
package diff
