package goterms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TransformPValue rescales a raw p-value for the heatmap: sqrt(-ln p).
// Small p-values map to large cells. p is clamped into (0, 1] first so a
// zero from the service cannot put +Inf into the matrix.
func TransformPValue(p float64) float64 {
	if p <= 0 {
		p = math.SmallestNonzeroFloat64
	}
	if p > 1 {
		p = 1
	}
	return math.Sqrt(-math.Log(p))
}

// ClusterTerms is one cluster's filtered enrichment result: the surviving
// term ids in table order and their transformed p-values.
type ClusterTerms struct {
	ClusterID string
	IDs       []string
	PValues   map[string]float64
}

// NewClusterTerms builds a ClusterTerms from filtered terms.
func NewClusterTerms(clusterID string, terms []Term) ClusterTerms {
	ct := ClusterTerms{
		ClusterID: clusterID,
		IDs:       make([]string, 0, len(terms)),
		PValues:   make(map[string]float64, len(terms)),
	}
	for _, term := range terms {
		ct.IDs = append(ct.IDs, term.Native)
		ct.PValues[term.Native] = TransformPValue(term.PValue)
	}
	return ct
}

// Group names a block of heatmap columns made of several clusters' terms.
type Group struct {
	Label    string
	Clusters []string
}

// Block marks a labelled half-open column range [Start, End) in the matrix.
type Block struct {
	Label      string
	Start, End int
}

// Matrix is the cluster x term heatmap input. Rows are clusters, columns are
// term ids laid out block by block; a term found by several clusters appears
// once per block that carries it.
type Matrix struct {
	RowLabels []string
	ColLabels []string
	Blocks    []Block
	Data      *mat.Dense
}

// BuildMatrix assembles the heatmap matrix. order, when non-nil, rearranges
// both the rows and the per-cluster column blocks; groups, when non-nil,
// replaces per-cluster blocks with the named group blocks. Cells for terms a
// cluster did not find are 0.
func BuildMatrix(perCluster []ClusterTerms, order []string, groups []Group) (*Matrix, error) {

	byID := make(map[string]ClusterTerms, len(perCluster))
	rowOrder := make([]string, 0, len(perCluster))
	for _, ct := range perCluster {
		byID[ct.ClusterID] = ct
		rowOrder = append(rowOrder, ct.ClusterID)
	}

	if order != nil {
		if len(order) != len(perCluster) {
			return nil, fmt.Errorf("order lists %d clusters, have %d", len(order), len(perCluster))
		}
		for _, id := range order {
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("order names unknown cluster %q", id)
			}
		}
		rowOrder = order
	}

	// Column layout: group blocks when given, one block per cluster otherwise.
	var blocks []Block
	var cols []string
	appendBlock := func(label string, ids []string) {
		start := len(cols)
		cols = append(cols, ids...)
		blocks = append(blocks, Block{Label: label, Start: start, End: len(cols)})
	}

	if groups != nil {
		for _, g := range groups {
			var ids []string
			for _, clusterID := range g.Clusters {
				ct, ok := byID[clusterID]
				if !ok {
					return nil, fmt.Errorf("group %q names unknown cluster %q", g.Label, clusterID)
				}
				ids = append(ids, ct.IDs...)
			}
			appendBlock(g.Label, ids)
		}
	} else {
		for _, clusterID := range rowOrder {
			appendBlock(clusterID, byID[clusterID].IDs)
		}
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("no GO terms survived filtering for any cluster")
	}

	data := mat.NewDense(len(rowOrder), len(cols), nil)
	for r, clusterID := range rowOrder {
		ct := byID[clusterID]
		for c, termID := range cols {
			if v, ok := ct.PValues[termID]; ok {
				data.Set(r, c, v)
			}
		}
	}

	return &Matrix{
		RowLabels: rowOrder,
		ColLabels: cols,
		Blocks:    blocks,
		Data:      data,
	}, nil
}
