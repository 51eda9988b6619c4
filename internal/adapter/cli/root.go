// Package cli wires the command-line surface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reviewloop/autorev/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// PullReviewer runs the pipeline against a hosted pull request.
type PullReviewer interface {
	Run(ctx context.Context, req review.Request) (review.Result, error)
}

// LocalReviewer runs the pipeline against a local ref range.
type LocalReviewer interface {
	ReviewLocal(ctx context.Context, req LocalRequest) (review.Result, error)
}

// LocalRequest describes a local dry-run review.
type LocalRequest struct {
	RepoDir   string
	BaseRef   string
	TargetRef string
	OutputDir string
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	PullReviewer  PullReviewer
	LocalReviewer LocalReviewer
	Args          Arguments
	DefaultOutput string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "autorev",
		Short: "Deterministic pull-request auto-review",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps.PullReviewer, deps.DefaultOutput))
	root.AddCommand(localCommand(deps.LocalReviewer, deps.DefaultOutput))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(reviewer PullReviewer, defaultOutput string) *cobra.Command {
	var owner string
	var repo string
	var prNumber int
	var dryRun bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a pull request and post the surviving findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" || repo == "" {
				return fmt.Errorf("--owner and --repo are required")
			}
			if prNumber <= 0 {
				return fmt.Errorf("--pr must be a positive integer")
			}

			res, err := reviewer.Run(cmd.Context(), review.Request{
				Ref:       review.PRRef{Owner: owner, Repo: repo, Number: prNumber},
				DryRun:    dryRun,
				OutputDir: outputDir,
			})
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), res, dryRun)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name")
	cmd.Flags().IntVar(&prNumber, "pr", 0, "Pull request number")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and report everything, post nothing")
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write run artifacts")

	return cmd
}

func localCommand(reviewer LocalReviewer, defaultOutput string) *cobra.Command {
	var repoDir string
	var baseRef string
	var targetRef string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "local [target]",
		Short: "Dry-run review a local base...target range",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				targetRef = args[0]
			}
			if targetRef == "" {
				targetRef = "HEAD"
			}

			res, err := reviewer.ReviewLocal(cmd.Context(), LocalRequest{
				RepoDir:   repoDir,
				BaseRef:   baseRef,
				TargetRef: targetRef,
				OutputDir: outputDir,
			})
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), res, true)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo-dir", ".", "Repository directory")
	cmd.Flags().StringVar(&baseRef, "base", "main", "Base reference to diff against")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target ref to review (overrides positional)")
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write run artifacts")

	return cmd
}

// renderResult prints the run outcome. Dry runs show the full summary
// body, plus every planned comment when stdout is a terminal; in CI the
// structured logs already carry the plan.
func renderResult(out io.Writer, res review.Result, dryRun bool) {
	if !dryRun {
		_, _ = fmt.Fprintf(out, "posted %d comment(s) at %s\n", res.Summary.Posted, res.HeadSHA)
		return
	}

	_, _ = fmt.Fprintln(out, res.SummaryBody)
	if !review.IsOutputTerminal() {
		return
	}
	for _, plan := range res.Planned {
		location := fmt.Sprintf("%s:%d (%s)", plan.Path, plan.Line, plan.Side)
		if plan.StartLine > 0 {
			location = fmt.Sprintf("%s:%d-%d (%s)", plan.Path, plan.StartLine, plan.Line, plan.Side)
		}
		_, _ = fmt.Fprintf(out, "\n--- %s\n%s\n", location, plan.Body)
	}
}
