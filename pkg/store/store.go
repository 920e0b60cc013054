// Package store keeps a local sqlite database with cached g:Profiler
// responses and an audit table of query-step runs.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS go_cache (
	query_hash TEXT PRIMARY KEY,
	organism   TEXT NOT NULL,
	n_genes    INTEGER NOT NULL,
	response   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT NOT NULL,
	cluster_id  TEXT NOT NULL,
	n_genes     INTEGER NOT NULL,
	cache_hit   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open connects to (and if needed initializes) the cache database.
func Open(path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// QueryKey hashes an enrichment query. Gene order does not matter; the list
// is sorted into a copy before hashing.
func QueryKey(organism string, genes []string) string {
	sorted := make([]string, len(genes))
	copy(sorted, genes)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(organism))
	h.Write([]byte{'\n'})
	h.Write([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// GetCached returns the cached raw response for the key, if any.
func (s *Store) GetCached(ctx context.Context, key string) ([]byte, bool, error) {

	var response string
	err := s.db.QueryRowContext(ctx,
		`SELECT response FROM go_cache WHERE query_hash = ?`, key).Scan(&response)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}

	return []byte(response), true, nil
}

// PutCached stores a raw response under the key, replacing any earlier entry.
func (s *Store) PutCached(ctx context.Context, key, organism string, nGenes int, response []byte) error {

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO go_cache (query_hash, organism, n_genes, response, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key, organism, nGenes, string(response), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache insert: %w", err)
	}
	return nil
}

// Run is one audit row of the query step.
type Run struct {
	RunID     string
	ClusterID string
	NGenes    int
	CacheHit  bool
	Duration  time.Duration
}

// NewRunID mints a run identifier.
func NewRunID() string {
	return "run-" + uuid.New().String()
}

// RecordRun appends an audit row for one cluster query.
func (s *Store) RecordRun(ctx context.Context, run Run) error {

	cacheHit := 0
	if run.CacheHit {
		cacheHit = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, cluster_id, n_genes, cache_hit, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ClusterID, run.NGenes, cacheHit, run.Duration.Milliseconds(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
