package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Anushka-shukla/phonepe-ai-tutor/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// ErrMalformed marks rows or inputs that violate the store's contract.
var ErrMalformed = errors.New("malformed store data")

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// DocumentStore is the write side used by ingestion.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, url, title string) (models.Document, error)
	ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk) error
}

// Retriever is the read side used when answering questions.
type Retriever interface {
	MatchChunks(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error)
	GetDocuments(ctx context.Context, ids []string) (map[string]models.Document, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// maxIndexedDim is the largest dimension pgvector can index.
const maxIndexedDim = 2000

// Migrate creates the schema and the match_chunks similarity function.
func (s *Store) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
  id         UUID PRIMARY KEY,
  url        TEXT NOT NULL UNIQUE,
  title      TEXT,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
  id          UUID PRIMARY KEY,
  document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  content     TEXT NOT NULL,
  embedding   vector(%[1]d) NOT NULL,
  chunk_index INT NOT NULL,
  UNIQUE (document_id, chunk_index)
);

CREATE OR REPLACE FUNCTION match_chunks(
  query_embedding vector(%[1]d),
  match_threshold FLOAT,
  match_count     INT
)
RETURNS TABLE (document_id UUID, content TEXT, similarity FLOAT)
LANGUAGE sql STABLE
AS $$
  SELECT c.document_id, c.content, 1 - (c.embedding <=> query_embedding) AS similarity
  FROM chunks c
  WHERE 1 - (c.embedding <=> query_embedding) > match_threshold
  ORDER BY c.embedding <=> query_embedding
  LIMIT match_count;
$$;
`
	if dim <= maxIndexedDim {
		q += `
CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim))
	return err
}

// UpsertDocument returns the document for url, creating it on first sight.
// An existing document keeps its id; a non-empty title replaces the old one.
func (s *Store) UpsertDocument(ctx context.Context, url, title string) (models.Document, error) {
	if strings.TrimSpace(url) == "" {
		return models.Document{}, fmt.Errorf("empty document url: %w", ErrMalformed)
	}

	const q = `
		INSERT INTO documents (id, url, title, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), now())
		ON CONFLICT (url) DO UPDATE SET
			title      = COALESCE(EXCLUDED.title, documents.title),
			updated_at = now()
		RETURNING id::text, url, COALESCE(title, ''), updated_at`

	var d models.Document
	err := s.pool.QueryRow(ctx, q, uuid.NewString(), url, title).
		Scan(&d.ID, &d.URL, &d.Title, &d.UpdatedAt)
	if err != nil {
		return models.Document{}, fmt.Errorf("upsert document %s: %w", url, err)
	}
	return d, nil
}

// ReplaceChunks swaps the chunk set of a document inside one transaction, so
// readers observe either the previous set or the new one.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if documentID == "" {
		return fmt.Errorf("empty document id: %w", ErrMalformed)
	}
	if err := validateChunks(chunks); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	const insert = `
		INSERT INTO chunks (id, document_id, content, embedding, chunk_index)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(insert, id, documentID, c.Content, pgvector.NewVector(c.Embedding), c.Index)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE documents SET updated_at = now() WHERE id = $1`, documentID); err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	return tx.Commit(ctx)
}

// validateChunks requires non-empty content and vectors and a contiguous
// zero-based index.
func validateChunks(chunks []models.Chunk) error {
	dim := -1
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("chunk %d has index %d: %w", i, c.Index, ErrMalformed)
		}
		if strings.TrimSpace(c.Content) == "" {
			return fmt.Errorf("chunk %d is empty: %w", i, ErrMalformed)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d has no embedding: %w", i, ErrMalformed)
		}
		if dim >= 0 && len(c.Embedding) != dim {
			return fmt.Errorf("chunk %d has dimension %d, want %d: %w", i, len(c.Embedding), dim, ErrMalformed)
		}
		dim = len(c.Embedding)
	}
	return nil
}

// MatchChunks runs match_chunks and returns rows ranked by similarity.
func (s *Store) MatchChunks(ctx context.Context, vec []float32, threshold float64, count int) ([]models.RetrievalMatch, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector: %w", ErrMalformed)
	}
	if count <= 0 {
		return []models.RetrievalMatch{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT document_id::text, content, similarity FROM match_chunks($1, $2, $3)`,
		pgvector.NewVector(vec), threshold, count,
	)
	if err != nil {
		return nil, fmt.Errorf("match chunks: %w", err)
	}
	defer rows.Close()

	out := make([]models.RetrievalMatch, 0, count)
	for rows.Next() {
		var m models.RetrievalMatch
		if err := rows.Scan(&m.DocumentID, &m.Content, &m.Score); err != nil {
			return nil, err
		}
		if err := validateMatch(m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func validateMatch(m models.RetrievalMatch) error {
	if m.DocumentID == "" {
		return fmt.Errorf("match without document id: %w", ErrMalformed)
	}
	if math.IsNaN(m.Score) || math.IsInf(m.Score, 0) {
		return fmt.Errorf("match for %s has score %v: %w", m.DocumentID, m.Score, ErrMalformed)
	}
	return nil
}

// GetDocuments loads documents by id. Unknown ids are absent from the map.
func (s *Store) GetDocuments(ctx context.Context, ids []string) (map[string]models.Document, error) {
	ids = distinct(ids)
	out := make(map[string]models.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, url, COALESCE(title, ''), updated_at
		FROM documents
		WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ListDocuments returns every document with its chunk count, ordered by URL.
func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id::text, d.url, COALESCE(d.title, ''), d.updated_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.url`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		var n int64
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.UpdatedAt, &n); err != nil {
			return nil, err
		}
		d.Chunks = int(n)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
