package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yumyai/goenrich/internal/util"
	"github.com/yumyai/goenrich/logger"
	"github.com/yumyai/goenrich/pkg/goterms"
	"github.com/yumyai/goenrich/pkg/render"
)

// HeatmapOptions configures the aggregation + rendering step. Exactly one of
// PatternsFile (shared across clusters) or PatternsDir (per-cluster
// <cluster>.txt files) must be set.
type HeatmapOptions struct {
	TermsDir     string
	Clusters     []string
	PatternsFile string
	PatternsDir  string
	OutDir       string
	Order        []string
	Groups       []goterms.Group
	NoXLSX       bool
	WriteHTML    bool
}

func (opts HeatmapOptions) patternsPath(clusterID string) string {
	if opts.PatternsDir != "" {
		return filepath.Join(opts.PatternsDir, clusterID+".txt")
	}
	return opts.PatternsFile
}

// RunHeatmap filters each cluster's term table, renders the cluster x term
// heatmap PNG and writes the combined workbook (plus, optionally, an HTML
// report). Output names carry the cluster count, as in GO_4.png.
func RunHeatmap(opts HeatmapOptions) error {

	if len(opts.Clusters) == 0 {
		return fmt.Errorf("no clusters given")
	}
	if (opts.PatternsFile == "") == (opts.PatternsDir == "") {
		return fmt.Errorf("need exactly one of a shared pattern file or a patterns directory")
	}
	if err := util.EnsureDir(opts.OutDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	perCluster := make([]goterms.ClusterTerms, 0, len(opts.Clusters))
	var combined []render.CombinedRow

	for _, clusterID := range opts.Clusters {
		termsPath := filepath.Join(opts.TermsDir, fmt.Sprintf("GO_%s.csv", clusterID))

		filtered, ids, err := goterms.FilterFile(termsPath, opts.patternsPath(clusterID))
		if err != nil {
			return fmt.Errorf("cluster %s: %w", clusterID, err)
		}

		logger.Info("Filtered GO terms",
			zap.String("cluster", clusterID),
			zap.Int("n_terms", len(ids)))

		perCluster = append(perCluster, goterms.NewClusterTerms(clusterID, filtered))
		for _, term := range filtered {
			combined = append(combined, render.CombinedRow{Cluster: clusterID, Term: term})
		}
	}

	matrix, err := goterms.BuildMatrix(perCluster, opts.Order, opts.Groups)
	if err != nil {
		return err
	}

	n := len(opts.Clusters)
	pngPath := filepath.Join(opts.OutDir, fmt.Sprintf("GO_%d.png", n))
	if err := render.SaveHeatmapPNG(matrix, pngPath); err != nil {
		return err
	}
	logger.Info("Heatmap written", zap.String("path", pngPath))

	if !opts.NoXLSX {
		xlsxPath := filepath.Join(opts.OutDir, fmt.Sprintf("GO_%d.xlsx", n))
		if err := render.WriteCombinedXLSX(xlsxPath, combined); err != nil {
			return err
		}
		logger.Info("Combined workbook written", zap.String("path", xlsxPath))
	}

	if opts.WriteHTML {
		htmlPath := filepath.Join(opts.OutDir, fmt.Sprintf("GO_%d.html", n))
		f, err := os.Create(htmlPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		data := render.ReportData{
			Clusters:    opts.Clusters,
			ImageFile:   filepath.Base(pngPath),
			Rows:        combined,
			GeneratedAt: time.Now(),
		}
		if err := render.RenderReport(f, data); err != nil {
			f.Close()
			return fmt.Errorf("render report: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("HTML report written", zap.String("path", htmlPath))
	}

	return nil
}

// ParseGroupsSpec parses the -groups flag syntax
// "label:c1,c2;label2:c3" into group blocks.
func ParseGroupsSpec(spec string) ([]goterms.Group, error) {

	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var groups []goterms.Group
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, members, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("bad group %q: want label:cluster,cluster", part)
		}
		g := goterms.Group{Label: strings.TrimSpace(label)}
		for _, m := range strings.Split(members, ",") {
			m = strings.TrimSpace(m)
			if m != "" {
				g.Clusters = append(g.Clusters, m)
			}
		}
		if g.Label == "" || len(g.Clusters) == 0 {
			return nil, fmt.Errorf("bad group %q: empty label or member list", part)
		}
		groups = append(groups, g)
	}

	return groups, nil
}

// SplitList parses a comma separated flag value, dropping empty entries.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
