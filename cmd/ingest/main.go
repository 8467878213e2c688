package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dferrand/planweave/internal/config"
	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/generator"
	"github.com/dferrand/planweave/internal/graph"
	"github.com/dferrand/planweave/internal/logging"
	"github.com/dferrand/planweave/internal/repository"
	"github.com/dferrand/planweave/internal/rollup"
	"github.com/dferrand/planweave/internal/service"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		datasetDir  = flag.String("dataset-dir", "./seed-data", "Directory containing plan.json")
		datasetPath = flag.String("dataset", "", "Path to plan.json (overrides dataset-dir)")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	planFile, err := resolveDatasetPath(*datasetDir, *datasetPath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	dataset, err := loadDataset(planFile)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "path", planFile)
		os.Exit(1)
	}
	if len(dataset.Nodes) == 0 {
		logger.Error("dataset has no work items", "path", planFile)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)

	repo := repository.New(graphClient)
	propagator := rollup.NewPropagator(repo, logger)
	svc := service.NewPlanningService(repo, propagator, logger)
	bulk := service.NewBulkPlanner(svc, *workers)

	start := time.Now()
	logger.Info("ingesting members", "count", len(dataset.Members), "workers", *workers)
	if err := bulk.IngestMembers(ctx, dataset.Members); err != nil {
		logger.Error("member ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingesting teams", "count", len(dataset.Teams))
	if err := bulk.IngestTeams(ctx, dataset.Teams); err != nil {
		logger.Error("team ingestion failed", "error", err)
		os.Exit(1)
	}

	// Nodes are ordered parents-first and linked as they go, so they are
	// replayed sequentially rather than through the worker pool.
	logger.Info("ingesting work items", "count", len(dataset.Nodes))
	if err := ingestNodes(ctx, svc, dataset.Nodes); err != nil {
		logger.Error("work item ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingesting allocations", "count", len(dataset.Allocations))
	if err := bulk.IngestAllocations(ctx, dataset.Allocations); err != nil {
		logger.Error("allocation ingestion failed", "error", err)
		os.Exit(1)
	}

	leaves := leafRefs(dataset.Nodes)
	logger.Info("recalculating rollups from leaves", "count", len(leaves))
	if err := bulk.RecalculateNodes(ctx, leaves); err != nil {
		logger.Error("rollup recalculation reported failures", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion complete",
		"duration", time.Since(start).String(),
		"nodes", len(dataset.Nodes),
		"members", len(dataset.Members),
		"allocations", len(dataset.Allocations),
	)
}

func ingestNodes(ctx context.Context, svc *service.PlanningService, nodes []service.NodeInput) error {
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := svc.UpsertNode(ctx, node); err != nil {
			return fmt.Errorf("upsert node %s: %w", node.ID, err)
		}
	}
	return nil
}

// leafRefs returns the nodes that never appear as a parent; recalculating
// from them covers every chain in the hierarchy.
func leafRefs(nodes []service.NodeInput) []domain.ParentRef {
	isParent := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if node.ParentID != "" {
			isParent[node.ParentID] = true
		}
	}

	var leaves []domain.ParentRef
	for _, node := range nodes {
		if isParent[node.ID] {
			continue
		}
		leaves = append(leaves, domain.ParentRef{
			ID:   node.ID,
			Kind: domain.NodeKind(node.Kind),
		})
	}
	return leaves
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, "plan.json")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func loadDataset(path string) (generator.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return generator.Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var dataset generator.Dataset
	if err := json.NewDecoder(file).Decode(&dataset); err != nil {
		return generator.Dataset{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return dataset, nil
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("NEO4J_URI is required for ingestion")
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	return graph.NewNeo4jClient(ctx, opts)
}
