// Package git provides a local diff source backed by go-git, so dry runs
// can review a base...head range without talking to the hosting platform.
package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/reviewloop/autorev/internal/usecase/review"
)

// Engine computes per-file unified patches between two refs of a local
// repository.
type Engine struct {
	repoDir string
}

// NewEngine constructs an engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// HeadSHA resolves the target ref to its commit hash.
func (e *Engine) HeadSHA(ctx context.Context, targetRef string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	commit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return "", fmt.Errorf("resolve ref: %w", err)
	}
	return commit.Hash.String(), nil
}

// ChangedFiles returns the changed files with unified patches for
// baseRef...targetRef. Binary files are listed with an empty patch.
func (e *Engine) ChangedFiles(ctx context.Context, baseRef, targetRef string) ([]review.ChangedFile, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base ref: %w", err)
	}
	targetCommit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return nil, fmt.Errorf("resolve target ref: %w", err)
	}

	patch, err := baseCommit.PatchContext(ctx, targetCommit)
	if err != nil {
		return nil, fmt.Errorf("compute patch: %w", err)
	}

	changed := make([]review.ChangedFile, 0, len(patch.FilePatches()))
	for _, fp := range patch.FilePatches() {
		path, previous, status := pathAndStatus(fp)
		cf := review.ChangedFile{
			Path:         path,
			PreviousPath: previous,
			Status:       status,
		}
		if !fp.IsBinary() {
			patchText, err := encodeFilePatch(fp)
			if err != nil {
				return nil, fmt.Errorf("encode patch for %s: %w", path, err)
			}
			cf.Patch = patchText
		}
		changed = append(changed, cf)
	}
	return changed, nil
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

// pathAndStatus maps a file patch to the platform's status vocabulary.
// For renames, path is the new path and previous the old one.
func pathAndStatus(fp formatdiff.FilePatch) (path, previous, status string) {
	from, to := fp.Files()
	switch {
	case from == nil && to != nil:
		return to.Path(), "", "added"
	case from != nil && to == nil:
		return from.Path(), "", "removed"
	case from != nil && to != nil:
		if from.Path() != to.Path() {
			return to.Path(), from.Path(), "renamed"
		}
		return to.Path(), "", "modified"
	default:
		return "", "", "modified"
	}
}

// IsBinaryPatch reports whether encoded patch text describes a binary
// file.
func IsBinaryPatch(patchText string) bool {
	return strings.Contains(patchText, "Binary files") ||
		strings.Contains(patchText, "GIT binary patch")
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}
