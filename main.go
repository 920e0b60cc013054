package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yumyai/goenrich/logger"
	"github.com/yumyai/goenrich/pkg/dex"
	"github.com/yumyai/goenrich/pkg/goterms"
	"github.com/yumyai/goenrich/pkg/gprofiler"
	"github.com/yumyai/goenrich/pkg/pipeline"
)

const VERSION = "0.1.0"

func printUsage() {
	fmt.Println(`goenrich - GO enrichment analysis for single-cell clusters

Usage:
  goenrich <command> [options]

Commands:
  query     Select DE genes per cluster and query g:Profiler enrichment
  filter    Filter one GO term table by name patterns
  heatmap   Aggregate filtered terms into a heatmap + combined spreadsheet

Global flags:
  -h, -help       Show this help message
  -v, -version    Show version information

Environment (.env is honored):
  GOENRICH_DATA        Data root (default ./data)
  GOENRICH_BASE_URL    g:Profiler base URL
  GOENRICH_ORGANISM    Organism code (default hsapiens)
  GOENRICH_LOG_LEVEL   Log level (default info)`)
	os.Exit(0)
}

func printVersion() {
	fmt.Printf("goenrich %s\n", VERSION)
	os.Exit(0)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {

	if len(os.Args) < 2 {
		printUsage()
	}
	switch os.Args[1] {
	case "-h", "-help", "--help":
		printUsage()
	case "-v", "-version", "--version":
		printVersion()
	}

	// Try load env before the logger so GOENRICH_LOG_LEVEL can come from .env
	dotenvErr := godotenv.Load()

	logLevel := logger.ParseLevel(envOr("GOENRICH_LOG_LEVEL", "info"))
	if err := logger.InitLogger(logLevel); err != nil {
		panic(err)
	}
	defer logger.Sync() // Make sure that the buffered is flushed.

	if dotenvErr != nil {
		logger.Debug("No .env found, using local environment")
	}

	dataDir := envOr("GOENRICH_DATA", "./data")

	logger.Info("Start:", zap.String("Version", VERSION))

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "query":
		err = runQueryCmd(args, dataDir)
	case "filter":
		err = runFilterCmd(args)
	case "heatmap":
		err = runHeatmapCmd(args, dataDir)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", zap.String("command", command), zap.String("error", err.Error()))
		os.Exit(1)
	}
}

func runQueryCmd(args []string, dataDir string) error {

	fs := flag.NewFlagSet("query", flag.ExitOnError)

	deDir := fs.String("de_dir", path.Join(dataDir, "de"), "Directory with per-cluster DE_<cluster>.csv tables")
	outDir := fs.String("out", path.Join(dataDir, "goterms"), "Output directory for GO_<cluster>.csv files")
	clusters := fs.String("clusters", "", "Comma separated cluster ids (default: every DE_*.csv)")
	lfc := fs.Float64("lfc", 1.0, "Minimum log-fold-change")
	pval := fs.Float64("pval", 0.05, "Maximum adjusted p-value")
	top := fs.Int("top", 500, "Top-N genes by score")
	organism := fs.String("organism", envOr("GOENRICH_ORGANISM", "hsapiens"), "g:Profiler organism code")
	baseURL := fs.String("base_url", envOr("GOENRICH_BASE_URL", gprofiler.DefaultBaseURL), "g:Profiler base URL")
	cachePath := fs.String("cache", path.Join(dataDir, "cache", "goenrich.db"), "sqlite response cache")
	noCache := fs.Bool("no-cache", false, "Skip cache reads (responses are still stored)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unrecognized arguments: %v", fs.Args())
	}

	opts := pipeline.QueryOptions{
		DEDir:    *deDir,
		OutDir:   *outDir,
		Clusters: pipeline.SplitList(*clusters),
		Selection: dex.Selection{
			LFCCutoff:  *lfc,
			PValCutoff: *pval,
			TopN:       *top,
		},
		Organism:  *organism,
		BaseURL:   *baseURL,
		CachePath: *cachePath,
		NoCache:   *noCache,
	}

	return pipeline.RunQuery(context.Background(), opts)
}

func runFilterCmd(args []string) error {

	fs := flag.NewFlagSet("filter", flag.ExitOnError)

	termsPath := fs.String("terms", "", "GO term table (CSV) to filter")
	patternsPath := fs.String("patterns", "", "Pattern file, one regex per line")
	outPath := fs.String("out", "", "Output CSV (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *termsPath == "" || *patternsPath == "" {
		fs.Usage()
		return fmt.Errorf("both -terms and -patterns are required")
	}

	filtered, ids, err := goterms.FilterFile(*termsPath, *patternsPath)
	if err != nil {
		return err
	}

	logger.Info("Filtered GO terms",
		zap.String("terms", *termsPath),
		zap.Int("n_terms", len(ids)))

	if *outPath == "" {
		return goterms.WriteCSVTo(os.Stdout, filtered)
	}
	return goterms.WriteCSV(*outPath, filtered)
}

func runHeatmapCmd(args []string, dataDir string) error {

	fs := flag.NewFlagSet("heatmap", flag.ExitOnError)

	termsDir := fs.String("terms_dir", path.Join(dataDir, "goterms"), "Directory with GO_<cluster>.csv tables")
	clusters := fs.String("clusters", "", "Comma separated cluster ids (required)")
	patternsFile := fs.String("patterns", "", "Shared pattern file applied to every cluster")
	patternsDir := fs.String("patterns_dir", "", "Directory with per-cluster <cluster>.txt pattern files")
	outDir := fs.String("out", path.Join(dataDir, "heatmap"), "Output directory")
	order := fs.String("order", "", "Comma separated cluster order for rows and column blocks")
	groups := fs.String("groups", "", `Column grouping, e.g. "early:c1,c2;late:c3"`)
	noXLSX := fs.Bool("no-xlsx", false, "Skip the combined .xlsx workbook")
	html := fs.Bool("html", false, "Also write an HTML report")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clusters == "" {
		fs.Usage()
		return fmt.Errorf("-clusters is required")
	}

	parsedGroups, err := pipeline.ParseGroupsSpec(*groups)
	if err != nil {
		return err
	}

	opts := pipeline.HeatmapOptions{
		TermsDir:     *termsDir,
		Clusters:     pipeline.SplitList(*clusters),
		PatternsFile: *patternsFile,
		PatternsDir:  *patternsDir,
		OutDir:       *outDir,
		Order:        pipeline.SplitList(*order),
		Groups:       parsedGroups,
		NoXLSX:       *noXLSX,
		WriteHTML:    *html,
	}

	return pipeline.RunHeatmap(opts)
}
