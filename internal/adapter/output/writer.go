// Package output persists per-run debug artifacts: the anchor-map JSON
// and the Markdown run report.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/reviewloop/autorev/internal/diff"
	"github.com/reviewloop/autorev/internal/domain"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

type clock func() string

// Writer implements the pipeline's artifact-writer port.
type Writer struct {
	now clock
}

// NewWriter constructs a Writer with a timestamp supplier, injected so
// tests get stable file names.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// anchorMapEntry is the serialized addressability of one file.
type anchorMapEntry struct {
	File  string `json:"file"`
	Right []int  `json:"right"`
	Left  []int  `json:"left"`
}

// WriteAnchorMaps persists the per-file addressable-line maps as a JSON
// debug artifact and returns the file path.
func (w *Writer) WriteAnchorMaps(ctx context.Context, outputDir string, files map[string]*diff.File) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]anchorMapEntry, 0, len(paths))
	for _, path := range paths {
		f := files[path]
		entries = append(entries, anchorMapEntry{
			File:  path,
			Right: f.AddressableLines(domain.SideRight),
			Left:  f.AddressableLines(domain.SideLeft),
		})
	}

	path := filepath.Join(outputDir, fmt.Sprintf("anchor-maps_%s.json", w.now()))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create anchor-map file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		return "", fmt.Errorf("encode anchor maps: %w", err)
	}
	return path, nil
}

// WriteRunReport persists the Markdown run report and returns the file
// path.
func (w *Writer) WriteRunReport(ctx context.Context, outputDir string, report review.RunReport) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("run-report_%s.md", w.now()))
	if err := os.WriteFile(path, []byte(buildReport(report)), 0o644); err != nil {
		return "", fmt.Errorf("write run report: %w", err)
	}
	return path, nil
}

func buildReport(report review.RunReport) string {
	var sb strings.Builder
	caser := cases.Title(language.English)

	sb.WriteString("# Review Run Report\n\n")
	sb.WriteString(fmt.Sprintf("- Repository: %s#%d\n", report.Repository, report.PullNumber))
	sb.WriteString(fmt.Sprintf("- Head: %s\n", report.HeadSHA))
	sb.WriteString(fmt.Sprintf("- Verdict: %s\n\n", report.Overall))

	s := report.Summary
	sb.WriteString("## Counters\n\n")
	sb.WriteString(fmt.Sprintf("- Findings: %d\n", s.TotalFindings))
	sb.WriteString(fmt.Sprintf("- Anchor rejected: %d\n", s.AnchorRejected))
	sb.WriteString(fmt.Sprintf("- Prefilter dropped: %d\n", s.PrefilterDropped))
	sb.WriteString(fmt.Sprintf("- Semantic dropped: %d\n", s.SemanticDropped))
	sb.WriteString(fmt.Sprintf("- Posted: %d\n\n", s.Posted))

	if len(report.Planned) > 0 {
		sb.WriteString("## Planned Comments\n\n")
		for _, plan := range report.Planned {
			location := fmt.Sprintf("%s:%d (%s)", plan.Path, plan.Line, plan.Side)
			if plan.StartLine > 0 {
				location = fmt.Sprintf("%s:%d-%d (%s)", plan.Path, plan.StartLine, plan.Line, plan.Side)
			}
			sb.WriteString(fmt.Sprintf("### %s, %s\n\n", location, caser.String(plan.Severity)))
			sb.WriteString(plan.Body)
			sb.WriteString("\n\n")
		}
	}

	if len(report.Verdicts) > 0 {
		sb.WriteString("## Prior Findings\n\n")
		ids := make([]string, 0, len(report.Verdicts))
		for id := range report.Verdicts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", id, caser.String(strings.ToLower(string(report.Verdicts[id])))))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
