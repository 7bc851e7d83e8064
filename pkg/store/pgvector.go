package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/haydenk/askpdf/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	// EmbedModel identifies the embedding model this index was built with.
	// All vectors compared against each other must come from the same model,
	// so the store records it and refuses to open with a different one.
	EmbedModel string
}

// VectorStore is the durable vector index on Postgres with pgvector. One row
// per chunk keeps embeddings and chunk metadata together, so neither can be
// orphaned. Rows carry an insertion position for deterministic tie-breaking.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "nomic-embed-text:latest"
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			content TEXT NOT NULL,
			char_start INTEGER NOT NULL,
			char_end INTEGER NOT NULL,
			embedding vector(%d) NOT NULL,
			pos BIGSERIAL
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err = vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createDocIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_document_id_idx
		ON %s (document_id)`,
		vs.config.TableName, vs.config.TableName)

	if _, err = vs.pool.Exec(ctx, createDocIndex); err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}

	createVecIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	if _, err = vs.pool.Exec(ctx, createVecIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return vs.checkModelIdentity(ctx)
}

// checkModelIdentity records the embedding model and dimension on first use
// and refuses to open an index built with anything else.
func (vs *VectorStore) checkModelIdentity(ctx context.Context) error {
	createMeta := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			model TEXT NOT NULL,
			dim INTEGER NOT NULL
		)`, vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, createMeta); err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}

	insertMeta := fmt.Sprintf(`
		INSERT INTO %s_meta (id, model, dim) VALUES (1, $1, $2)
		ON CONFLICT (id) DO NOTHING`, vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, insertMeta, vs.config.EmbedModel, vs.config.VectorDim); err != nil {
		return fmt.Errorf("failed to record model identity: %w", err)
	}

	var model string
	var dim int
	row := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT model, dim FROM %s_meta WHERE id = 1", vs.config.TableName))
	if err := row.Scan(&model, &dim); err != nil {
		return fmt.Errorf("failed to read model identity: %w", err)
	}

	if model != vs.config.EmbedModel {
		return fmt.Errorf("%w: index built with %q, configured %q",
			models.ErrModelMismatch, model, vs.config.EmbedModel)
	}
	if dim != vs.config.VectorDim {
		return fmt.Errorf("%w: index built with %d dims, configured %d",
			models.ErrDimensionMismatch, dim, vs.config.VectorDim)
	}
	return nil
}

// Upsert atomically replaces every entry for documentID: existing rows are
// deleted and the new ones inserted in one transaction, so a concurrent
// reader never observes a half-replaced document. Cancelling ctx rolls the
// whole document back.
func (vs *VectorStore) Upsert(ctx context.Context, documentID string, entries []models.IndexEntry) error {
	for _, e := range entries {
		if len(e.Embedding) != vs.config.VectorDim {
			return fmt.Errorf("%w: chunk %s has %d dims, index has %d",
				models.ErrDimensionMismatch, e.Chunk.ID, len(e.Embedding), vs.config.VectorDim)
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteStmt := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName)
	if _, err := tx.Exec(ctx, deleteStmt, documentID); err != nil {
		return fmt.Errorf("failed to clear document %s: %w", documentID, err)
	}

	insertStmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, page, seq, content, char_start, char_end, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		vs.config.TableName)

	for _, e := range entries {
		_, err := tx.Exec(ctx, insertStmt,
			e.Chunk.ID.String(),
			documentID,
			e.Chunk.ID.Page,
			e.Chunk.ID.Seq,
			sanitizeUTF8(e.Chunk.Text),
			e.Chunk.Start,
			e.Chunk.End,
			pgvector.NewVector(e.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", e.Chunk.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", documentID, err)
	}
	return nil
}

// Search returns the k nearest chunks by cosine similarity, descending, with
// ties broken by insertion order so a fixed index state always yields the
// same ranking.
func (vs *VectorStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	if len(embedding) != vs.config.VectorDim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d",
			models.ErrDimensionMismatch, len(embedding), vs.config.VectorDim)
	}
	if k <= 0 {
		k = 5
	}

	query := fmt.Sprintf(`
		SELECT document_id, page, seq, content, char_start, char_end,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1 ASC, pos ASC
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var r models.ScoredChunk
		err := rows.Scan(
			&r.Chunk.ID.DocumentID,
			&r.Chunk.ID.Page,
			&r.Chunk.ID.Seq,
			&r.Chunk.Text,
			&r.Chunk.Start,
			&r.Chunk.End,
			&r.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes every chunk belonging to documentID.
func (vs *VectorStore) Delete(ctx context.Context, documentID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, stmt, documentID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// IsEmpty reports whether the index holds no entries.
func (vs *VectorStore) IsEmpty(ctx context.Context) (bool, error) {
	var one int
	row := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", vs.config.TableName))
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
