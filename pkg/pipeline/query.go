// Package pipeline wires the analysis steps together: gene selection, the
// enrichment query, term filtering and the heatmap outputs.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yumyai/goenrich/internal/util"
	"github.com/yumyai/goenrich/logger"
	"github.com/yumyai/goenrich/pkg/dex"
	"github.com/yumyai/goenrich/pkg/goterms"
	"github.com/yumyai/goenrich/pkg/gprofiler"
	"github.com/yumyai/goenrich/pkg/store"
)

// QueryOptions configures the per-cluster GO enrichment step.
type QueryOptions struct {
	DEDir     string
	OutDir    string
	Clusters  []string // empty means every DE_*.csv in DEDir
	Selection dex.Selection
	Organism  string
	BaseURL   string
	CachePath string
	NoCache   bool // skip cache reads; responses are still stored
}

// RunQuery runs the enrichment query for every requested cluster, writing
// GO_<cluster>.csv files into OutDir.
func RunQuery(ctx context.Context, opts QueryOptions) error {

	if !util.DirExists(opts.DEDir) {
		return fmt.Errorf("DE directory does not exist: %s", opts.DEDir)
	}
	if err := util.EnsureDir(opts.OutDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	clusters := opts.Clusters
	if len(clusters) == 0 {
		var err error
		clusters, err = dex.DiscoverClusters(opts.DEDir)
		if err != nil {
			return err
		}
		if len(clusters) == 0 {
			return fmt.Errorf("no DE_*.csv tables found in %s", opts.DEDir)
		}
	}

	if err := util.EnsureDir(filepath.Dir(opts.CachePath)); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	db, err := store.Open(opts.CachePath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := gprofiler.NewClient(opts.BaseURL, opts.Organism)

	for _, clusterID := range clusters {
		if err := queryCluster(ctx, db, client, clusterID, opts); err != nil {
			return fmt.Errorf("cluster %s: %w", clusterID, err)
		}
	}

	return nil
}

func queryCluster(ctx context.Context, db *store.Store, client *gprofiler.Client, clusterID string, opts QueryOptions) error {

	logger.Info("Computing GO terms for cluster", zap.String("cluster", clusterID))
	start := time.Now()

	records, err := dex.LoadTable(dex.TablePath(opts.DEDir, clusterID))
	if err != nil {
		return err
	}

	genes := dex.SelectGenes(records, opts.Selection)
	if len(genes) == 0 {
		logger.Warn("Found query size 0, skipping GO analysis",
			zap.String("cluster", clusterID))
		return nil
	}

	logger.Info("Querying for genes",
		zap.String("cluster", clusterID),
		zap.Int("n_genes", len(genes)))

	key := store.QueryKey(opts.Organism, genes)

	var raw []byte
	cacheHit := false
	if !opts.NoCache {
		raw, cacheHit, err = db.GetCached(ctx, key)
		if err != nil {
			return err
		}
	}

	if !cacheHit {
		raw, err = client.Profile(ctx, genes)
		if err != nil {
			return err
		}
		if err := db.PutCached(ctx, key, opts.Organism, len(genes), raw); err != nil {
			return err
		}
	} else {
		logger.Debug("Cache hit", zap.String("cluster", clusterID))
	}

	terms, err := gprofiler.ParseResponse(raw)
	if err != nil {
		return err
	}

	outPath := filepath.Join(opts.OutDir, fmt.Sprintf("GO_%s.csv", clusterID))
	if err := goterms.WriteCSV(outPath, terms); err != nil {
		return err
	}

	run := store.Run{
		RunID:     store.NewRunID(),
		ClusterID: clusterID,
		NGenes:    len(genes),
		CacheHit:  cacheHit,
		Duration:  time.Since(start),
	}
	if err := db.RecordRun(ctx, run); err != nil {
		return err
	}

	logger.Info("GO terms written",
		zap.String("cluster", clusterID),
		zap.String("path", outPath),
		zap.Int("n_terms", len(terms)),
		zap.Bool("cache_hit", cacheHit),
		zap.Duration("duration", run.Duration))

	return nil
}
