// Package goterms models GO enrichment result tables: reading and writing the
// per-cluster CSV files, pattern filtering, and the cluster-by-term
// significance matrix behind the heatmap.
package goterms

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Term is one enrichment result row, keyed by the native term id
// (e.g. "GO:0006955").
type Term struct {
	Source           string  // source ontology, e.g. GO:BP
	Native           string  // native term id
	Name             string  // display name
	PValue           float64 // raw enrichment p-value
	Significant      bool
	TermSize         int
	QuerySize        int
	IntersectionSize int
}

// MissingColumnError is returned when a term table lacks a required column.
type MissingColumnError struct {
	Column string
	Path   string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("term table %s: missing column %q", e.Path, e.Column)
}

var csvHeader = []string{
	"source", "native", "name", "p_value", "significant",
	"term_size", "query_size", "intersection_size",
}

// ReadCSV loads a term table written by WriteCSV (or by the query step).
// The size columns are optional; source, native, name, p_value and
// significant are not.
func ReadCSV(path string) ([]Term, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open term table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read term header %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range []string{"source", "native", "name", "p_value", "significant"} {
		if _, ok := col[want]; !ok {
			return nil, &MissingColumnError{Column: want, Path: path}
		}
	}

	var terms []Term
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

		term, err := parseTermRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		terms = append(terms, term)
	}

	return terms, nil
}

func parseTermRow(row []string, col map[string]int) (Term, error) {

	var term Term
	term.Source = row[col["source"]]
	term.Native = row[col["native"]]
	term.Name = row[col["name"]]

	pval, err := strconv.ParseFloat(row[col["p_value"]], 64)
	if err != nil {
		return term, fmt.Errorf("bad p_value %q: %w", row[col["p_value"]], err)
	}
	term.PValue = pval

	term.Significant = parseBool(row[col["significant"]])

	// Optional size columns
	term.TermSize = optionalInt(row, col, "term_size")
	term.QuerySize = optionalInt(row, col, "query_size")
	term.IntersectionSize = optionalInt(row, col, "intersection_size")

	return term, nil
}

// parseBool accepts the spellings seen in the wild: Go's, Python's and
// pandas' ("True"/"False").
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes":
		return true
	default:
		return false
	}
}

func optionalInt(row []string, col map[string]int, name string) int {
	idx, ok := col[name]
	if !ok || idx >= len(row) {
		return 0
	}
	n, err := strconv.Atoi(row[idx])
	if err != nil {
		return 0
	}
	return n
}

// WriteCSV writes a term table in the layout the filter and heatmap steps
// read back.
func WriteCSV(path string, terms []Term) error {

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create term table: %w", err)
	}
	defer f.Close()

	return WriteCSVTo(f, terms)
}

// WriteCSVTo writes a term table to any writer (the filter subcommand prints
// to stdout when no output file is given).
func WriteCSVTo(w io.Writer, terms []Term) error {

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write term header: %w", err)
	}

	for _, term := range terms {
		row := []string{
			term.Source,
			term.Native,
			term.Name,
			strconv.FormatFloat(term.PValue, 'g', -1, 64),
			strconv.FormatBool(term.Significant),
			strconv.Itoa(term.TermSize),
			strconv.Itoa(term.QuerySize),
			strconv.Itoa(term.IntersectionSize),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write term row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
