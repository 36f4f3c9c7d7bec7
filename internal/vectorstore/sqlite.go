package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteStore is the embedded backend: one SQLite database file per
// collection under the configured path, embeddings stored as JSON, and
// brute-force cosine distance at query time. Good for a few hundred
// thousand chunks, which is the scale a single ingestion instance owns.
type sqliteStore struct {
	db         *sql.DB
	collection string
}

func newSQLiteStore(path, collection string) (*sqliteStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(path, collection+".db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &sqliteStore{db: db, collection: collection}, nil
}

func (s *sqliteStore) CollectionName() string { return s.collection }

func (s *sqliteStore) EnsureCollection(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			id         TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			metadata   TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	return nil
}

func (s *sqliteStore) exists(ctx context.Context) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'chunks'`)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqliteStore) Add(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCollectionNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, text, embedding, source, metadata)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		embeddingJSON, err := json.Marshal(r.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Text, string(embeddingJSON), r.Metadata["source"], string(metadataJSON),
		); err != nil {
			return fmt.Errorf("failed to store row %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) Query(ctx context.Context, embedding []float32, topK int) ([]QueryHit, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCollectionNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, text, embedding, metadata FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}
	defer rows.Close()

	var hits []QueryHit
	for rows.Next() {
		var (
			id, text, embeddingJSON, metadataJSON string
		)
		if err := rows.Scan(&id, &text, &embeddingJSON, &metadataJSON); err != nil {
			return nil, err
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
			return nil, fmt.Errorf("corrupt embedding for %s: %w", id, err)
		}
		var metadata map[string]string
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", id, err)
		}

		hits = append(hits, QueryHit{
			ID:       id,
			Text:     text,
			Distance: cosineDistance(embedding, vec),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *sqliteStore) Sources(ctx context.Context) (map[string]bool, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCollectionNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM chunks WHERE source != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make(map[string]bool)
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		sources[src] = true
	}
	return sources, rows.Err()
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrCollectionNotFound
	}

	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func (s *sqliteStore) DeleteCollection(ctx context.Context) error {
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCollectionNotFound
	}

	if _, err := s.db.ExecContext(ctx, `DROP TABLE chunks`); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// cosineDistance returns 1 - cosine similarity; zero vectors are treated as
// maximally distant.
func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
