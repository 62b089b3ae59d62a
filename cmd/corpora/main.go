// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/ai/openai"
	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/collection"
	"github.com/poiesic/corpora/config"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
	"github.com/poiesic/corpora/health"
	"github.com/poiesic/corpora/pipeline"
	badgerstore "github.com/poiesic/corpora/store/badger"
)

func main() {
	app := &cli.App{
		Name:  "corpora",
		Usage: "Staged ingestion pipeline for document collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the pipeline over configured collections",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the collections YAML config",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory for collection state and artifacts",
						Value: "./data",
					},
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Run only the named collection (default: all enabled)",
					},
					&cli.StringFlag{
						Name:  "start-stage",
						Usage: "Start at the named stage using the previous run's intermediate data",
					},
					&cli.StringFlag{
						Name:  "end-stage",
						Usage: "Stop after the named stage",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "embeddinggemma",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to embed in each request",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding requests",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "list-collections",
				Usage:  "List registered collections and their status",
				Action: listCollectionsCommand,
				Flags:  []cli.Flag{dataDirFlag()},
			},
			{
				Name:   "status",
				Usage:  "Show detailed status for one collection",
				Action: statusCommand,
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.StringFlag{
						Name:     "collection",
						Usage:    "Collection name",
						Required: true,
					},
				},
			},
			{
				Name:   "list-stages",
				Usage:  "List pipeline stages in execution order",
				Action: listStagesCommand,
			},
			{
				Name:   "health",
				Usage:  "Check deployment health (exit 0 healthy, 2 degraded, 1 unhealthy)",
				Action: healthCommand,
				Flags: []cli.Flag{
					dataDirFlag(),
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the collections YAML config",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dataDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "data-dir",
		Usage: "Directory for collection state and artifacts",
		Value: "./data",
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func runCommand(c *cli.Context) error {
	ctx := context.Background()

	entries, err := config.Load(c.String("config"), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := c.String("data-dir")
	artifacts, err := artifact.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	manager, err := collection.NewManager(dataDir, artifacts)
	if err != nil {
		return fmt.Errorf("failed to open collection manager: %w", err)
	}

	registry := extract.NewDefaultRegistry(slog.Default())

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	documents, err := badgerstore.Open(filepath.Join(dataDir, "documents"), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer documents.Close()

	stages, err := pipeline.DefaultStages(registry, embedder, documents, slog.Default(),
		pipeline.WithEmbedBatchSize(c.Int("batch-size")),
		pipeline.WithEmbedRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		pipeline.WithEmbedProgress(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to build stages: %w", err)
	}

	orch, err := pipeline.NewOrchestrator(manager, artifacts, stages)
	if err != nil {
		return err
	}
	defer orch.Close()

	only := c.String("collection")
	var execOpts []pipeline.ExecuteOption
	if s := c.String("start-stage"); s != "" {
		execOpts = append(execOpts, pipeline.WithStartStage(s))
	}
	if s := c.String("end-stage"); s != "" {
		execOpts = append(execOpts, pipeline.WithEndStage(s))
	}

	ran, failed := 0, 0
	for _, entry := range entries {
		if only != "" && entry.Name != only {
			continue
		}
		if !entry.Config.Enabled {
			fmt.Fprintf(os.Stderr, "skipping %s: disabled\n", entry.Name)
			continue
		}

		if problems := config.Validate(entry, registry.Names()); len(problems) > 0 {
			fmt.Fprintf(os.Stderr, "skipping %s:\n", entry.Name)
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "  - %s\n", p)
			}
			failed++
			continue
		}

		if _, err := manager.Create(entry.Name, entry.Config); err != nil {
			return fmt.Errorf("failed to register collection %s: %w", entry.Name, err)
		}

		res, err := orch.Execute(ctx, entry.Name, execOpts...)
		if err != nil {
			return fmt.Errorf("run failed for %s: %w", entry.Name, err)
		}
		printRunSummary(res)

		ran++
		if res.Status != core.PipelineStatusSuccess {
			failed++
		}
	}

	if only != "" && ran == 0 && failed == 0 {
		return fmt.Errorf("collection %q not found in config", only)
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d collections did not complete", failed, ran), 1)
	}
	return nil
}

func printRunSummary(res *core.PipelineResult) {
	fmt.Printf("%s: %s (%d documents in %.2fs)\n",
		res.CollectionName, res.Status, res.DocumentsProcessed, res.ExecutionTime.Seconds())
	if len(res.StagesCompleted) > 0 {
		fmt.Printf("  completed: %s\n", strings.Join(res.StagesCompleted, ", "))
	}
	if len(res.StagesFailed) > 0 {
		fmt.Printf("  failed:    %s\n", strings.Join(res.StagesFailed, ", "))
	}
	for i, e := range res.Errors {
		if i == 5 {
			fmt.Printf("  ... and %d more errors\n", len(res.Errors)-i)
			break
		}
		fmt.Printf("  error: %s\n", e)
	}
}

func listCollectionsCommand(c *cli.Context) error {
	manager, err := openManager(c.String("data-dir"))
	if err != nil {
		return err
	}

	collections := manager.List()
	if len(collections) == 0 {
		fmt.Println("no collections registered")
		return nil
	}

	fmt.Printf("%-24s %-12s %10s  %s\n", "NAME", "STATUS", "DOCUMENTS", "UPDATED")
	for _, coll := range collections {
		fmt.Printf("%-24s %-12s %10d  %s\n",
			coll.Name, coll.Status, coll.DocumentCount, coll.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	manager, err := openManager(c.String("data-dir"))
	if err != nil {
		return err
	}

	stats, err := manager.Stats(c.String("collection"))
	if err != nil {
		return err
	}

	fmt.Printf("collection:       %s\n", stats.Name)
	fmt.Printf("status:           %s\n", stats.Status)
	fmt.Printf("documents:        %d\n", stats.DocumentCount)
	fmt.Printf("vectors:          %d (dimension %d)\n", stats.VectorCount, stats.VectorDimension)
	fmt.Printf("similarity index: %v\n", stats.HasSimilarityIndex)
	fmt.Printf("keyword index:    %v\n", stats.HasKeywordIndex)
	fmt.Printf("artifacts:        %d (%d bytes)\n", stats.ArtifactCount, stats.StorageBytes)
	if stats.LastRun != nil {
		fmt.Printf("last run:         %s at %s (%.2fs)\n",
			stats.LastRun.Status,
			stats.LastRun.StartedAt.Format(time.RFC3339),
			stats.LastRun.ExecutionTime)
		for _, e := range stats.LastRun.Errors {
			fmt.Printf("  error: %s\n", e)
		}
	}
	return nil
}

func listStagesCommand(c *cli.Context) error {
	// Stage construction needs an embedder, but listing never calls it.
	embedder, err := openai.NewEmbedder(ai.DefaultConfig())
	if err != nil {
		return err
	}

	registry := extract.NewDefaultRegistry(slog.Default())
	stages, err := pipeline.DefaultStages(registry, embedder, nil, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		for _, stage := range stages {
			if r, ok := stage.(interface{ Release() }); ok {
				r.Release()
			}
		}
	}()

	for i, stage := range stages {
		fmt.Printf("%d. %-12s %s\n", i+1, stage.Name(), stage.Description())
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	dataDir := c.String("data-dir")
	artifacts, err := artifact.NewStore(dataDir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("unhealthy: %v", err), health.StatusUnhealthy.ExitCode())
	}

	opts := []health.Option{}
	if cfg := c.String("config"); cfg != "" {
		opts = append(opts, health.WithConfigPath(cfg))
	}
	if manager, err := collection.NewManager(dataDir, artifacts); err == nil {
		opts = append(opts, health.WithManager(manager))
	}

	report := health.NewChecker(dataDir, artifacts, opts...).Run()
	for _, check := range report.Checks {
		fmt.Printf("%-12s %-10s %s\n", check.Name, check.Status, check.Detail)
	}

	if report.Status != health.StatusHealthy {
		return cli.Exit(string(report.Status), report.Status.ExitCode())
	}
	fmt.Println(health.StatusHealthy)
	return nil
}

func openManager(dataDir string) (*collection.Manager, error) {
	artifacts, err := artifact.NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	return collection.NewManager(dataDir, artifacts)
}
