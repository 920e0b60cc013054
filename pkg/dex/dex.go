// Package dex loads per-cluster differential-expression tables and picks the
// genes worth sending to GO enrichment.
package dex

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MissingColumnError is returned when a DE table lacks one of the required
// header columns.
type MissingColumnError struct {
	Column string
	Path   string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("DE table %s: missing column %q", e.Path, e.Column)
}

// Record is one gene row of a rank_genes_groups export.
type Record struct {
	Gene          string
	Score         float64
	LogFoldChange float64
	PValAdj       float64
}

// Selection holds the thresholds for picking query genes from a DE table.
type Selection struct {
	LFCCutoff  float64 // keep genes with log-fold-change >= cutoff
	PValCutoff float64 // keep genes with adjusted p-value <= cutoff
	TopN       int     // cap on selected genes, by descending score
}

// Column names as written by the scanpy rank_genes_groups export.
var requiredColumns = []string{"names", "scores", "logfoldchanges", "pvals_adj"}

// LoadTable reads a per-cluster DE table from a CSV file.
func LoadTable(path string) ([]Record, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DE table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read DE header %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range requiredColumns {
		if _, ok := col[want]; !ok {
			return nil, &MissingColumnError{Column: want, Path: path}
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line+1, err)
		}
		line++

		rec, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string, col map[string]int) (Record, error) {

	var rec Record
	rec.Gene = row[col["names"]]

	var err error
	if rec.Score, err = strconv.ParseFloat(row[col["scores"]], 64); err != nil {
		return rec, fmt.Errorf("bad score %q: %w", row[col["scores"]], err)
	}
	if rec.LogFoldChange, err = strconv.ParseFloat(row[col["logfoldchanges"]], 64); err != nil {
		return rec, fmt.Errorf("bad logfoldchange %q: %w", row[col["logfoldchanges"]], err)
	}
	if rec.PValAdj, err = strconv.ParseFloat(row[col["pvals_adj"]], 64); err != nil {
		return rec, fmt.Errorf("bad pvals_adj %q: %w", row[col["pvals_adj"]], err)
	}

	return rec, nil
}

// SelectGenes filters records by the thresholds and returns up to TopN gene
// names ordered by descending score. An empty result is not an error; the
// caller decides whether to skip the cluster.
func SelectGenes(records []Record, sel Selection) []string {

	passing := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.LogFoldChange >= sel.LFCCutoff && rec.PValAdj <= sel.PValCutoff {
			passing = append(passing, rec)
		}
	}

	sort.SliceStable(passing, func(i, j int) bool {
		return passing[i].Score > passing[j].Score
	})

	if sel.TopN > 0 && len(passing) > sel.TopN {
		passing = passing[:sel.TopN]
	}

	genes := make([]string, len(passing))
	for i, rec := range passing {
		genes[i] = rec.Gene
	}
	return genes
}

// TablePath maps a cluster id to its DE table location inside de_dir.
func TablePath(deDir, clusterID string) string {
	return filepath.Join(deDir, fmt.Sprintf("DE_%s.csv", clusterID))
}

// DiscoverClusters lists cluster ids by globbing DE_*.csv under de_dir.
// Returned ids are sorted.
func DiscoverClusters(deDir string) ([]string, error) {

	matches, err := filepath.Glob(filepath.Join(deDir, "DE_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob DE tables: %w", err)
	}

	clusters := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		id := strings.TrimSuffix(strings.TrimPrefix(base, "DE_"), ".csv")
		if id != "" {
			clusters = append(clusters, id)
		}
	}
	sort.Strings(clusters)

	return clusters, nil
}
