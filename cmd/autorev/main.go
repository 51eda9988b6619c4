package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/reviewloop/autorev/internal/adapter/cli"
	gitadapter "github.com/reviewloop/autorev/internal/adapter/git"
	githubadapter "github.com/reviewloop/autorev/internal/adapter/github"
	"github.com/reviewloop/autorev/internal/adapter/httpx"
	"github.com/reviewloop/autorev/internal/adapter/judge"
	"github.com/reviewloop/autorev/internal/adapter/observability"
	"github.com/reviewloop/autorev/internal/adapter/output"
	"github.com/reviewloop/autorev/internal/adapter/store/sqlite"
	"github.com/reviewloop/autorev/internal/config"
	"github.com/reviewloop/autorev/internal/usecase/review"
	"github.com/reviewloop/autorev/internal/version"
)

// Compile-time checks that the adapters satisfy the pipeline ports.
var (
	_ review.Platform        = (*githubadapter.Platform)(nil)
	_ review.Platform        = (*gitadapter.ReadOnlyPlatform)(nil)
	_ review.FindingProvider = (*judge.Provider)(nil)
	_ review.TextJudge       = (*judge.Judge)(nil)
	_ review.Store           = (*sqlite.Store)(nil)
	_ review.ArtifactWriter  = (*output.Writer)(nil)
)

func main() {
	if err := run(); err != nil {
		log.Println(httpx.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "autorev",
		EnvPrefix:   "AUTOREV",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := httpx.BuildLogger(cfg.Observability.Logging)
	reviewLogger := observability.NewReviewLogger(logger)

	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}
	artifacts := output.NewWriter(nowFunc)

	oracleClient := buildOracleClient(cfg, logger)
	provider := judge.NewProvider(oracleClient)
	textJudge := judge.NewJudge(oracleClient)

	var runStore review.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else if s, err := sqlite.NewStore(cfg.Store.Path); err != nil {
			log.Printf("warning: failed to initialize run store: %v", err)
		} else {
			runStore = s
			defer runStore.Close()
		}
	}

	platform := buildPlatform(cfg, logger)
	orchestrator := review.NewOrchestrator(review.OrchestratorDeps{
		Platform:  platform,
		Provider:  provider,
		Judge:     textJudge,
		Logger:    reviewLogger,
		Store:     runStore,
		Artifacts: artifacts,
	})

	local := &localReviewer{
		provider:  provider,
		judge:     textJudge,
		logger:    reviewLogger,
		store:     runStore,
		artifacts: artifacts,
	}

	root := cli.NewRootCommand(cli.Dependencies{
		PullReviewer:  orchestrator,
		LocalReviewer: local,
		DefaultOutput: cfg.Output.Directory,
		Version:       version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func buildPlatform(cfg config.Config, logger httpx.Logger) *githubadapter.Platform {
	token := cfg.GitHub.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	client := githubadapter.NewClient(token)
	if cfg.GitHub.BaseURL != "" {
		client.SetBaseURL(cfg.GitHub.BaseURL)
	}
	client.SetTimeout(httpx.ParseTimeout(nil, cfg.HTTP.Timeout, 30*time.Second))
	client.SetRetryConfig(httpx.BuildRetryConfig(cfg.HTTP))
	client.SetLogger(logger)
	return githubadapter.NewPlatform(client)
}

func buildOracleClient(cfg config.Config, logger httpx.Logger) *judge.Client {
	apiKey := cfg.Oracle.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	client := judge.NewClient(apiKey, cfg.Oracle.Model)
	if cfg.Oracle.BaseURL != "" {
		client.SetBaseURL(cfg.Oracle.BaseURL)
	}
	// Oracle calls run much longer than platform calls.
	client.SetTimeout(httpx.ParseTimeout(cfg.Oracle.Timeout, "", 120*time.Second))
	client.SetRetryConfig(httpx.BuildRetryConfig(cfg.HTTP))
	client.SetLogger(logger)
	return client
}

// localReviewer builds a read-only local pipeline per request; the repo
// directory and refs are only known at invocation time.
type localReviewer struct {
	provider  review.FindingProvider
	judge     review.TextJudge
	logger    review.Logger
	store     review.Store
	artifacts review.ArtifactWriter
}

func (l *localReviewer) ReviewLocal(ctx context.Context, req cli.LocalRequest) (review.Result, error) {
	engine := gitadapter.NewEngine(req.RepoDir)
	orchestrator := review.NewOrchestrator(review.OrchestratorDeps{
		Platform:  gitadapter.NewReadOnlyPlatform(engine, req.BaseRef, req.TargetRef),
		Provider:  l.provider,
		Judge:     l.judge,
		Logger:    l.logger,
		Store:     l.store,
		Artifacts: l.artifacts,
	})
	return orchestrator.Run(ctx, review.Request{
		Ref:       review.PRRef{Owner: "local", Repo: repositoryName(req.RepoDir)},
		DryRun:    true,
		OutputDir: req.OutputDir,
	})
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "autorev"))
	}
	return paths
}
