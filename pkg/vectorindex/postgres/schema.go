// Package postgres provides a PostgreSQL-backed implementation of
// [vectorindex.Index] using the pgvector extension for cosine
// nearest-neighbour search.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	idx, err := postgres.New(ctx, dsn, 1536)
//	if err != nil { … }
//	defer idx.Close()
//
//	_ = idx.Add(ctx, entries)
//	results, _ := idx.Search(ctx, queryVec, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Table names are fixed identifiers, never user input, so interpolating them
// into DDL and queries is safe. Identifiers cannot be bound as parameters.
const (
	// defaultTable holds the durably published entries served to queries.
	defaultTable = "chunk_entries"

	// stagingTable receives a rebuild in progress. [Index.Promote] renames
	// it over defaultTable once the build is complete.
	stagingTable = "chunk_entries_staging"
)

// ddl returns the chunk-entries DDL for the named table with the embedding
// dimension substituted. The vector dimension is baked into the column type
// at schema creation time.
func ddl(table string, embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS %[1]s (
    chunk_id     TEXT  PRIMARY KEY,
    embedding    vector(%[2]d),
    speaker      TEXT  NOT NULL DEFAULT '',
    role         TEXT  NOT NULL DEFAULT '',
    section_type TEXT  NOT NULL DEFAULT '',
    order_index  INT   NOT NULL DEFAULT 0,
    parent_id    TEXT  NOT NULL DEFAULT '',
    content      TEXT  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding
    ON %[1]s USING hnsw (embedding vector_cosine_ops);

CREATE INDEX IF NOT EXISTS idx_%[1]s_order
    ON %[1]s (order_index);
`, table, embeddingDimensions)
}

// Migrate creates or ensures the chunk_entries table and the vector extension
// exist. It is idempotent and safe to call on every application start.
//
// embeddingDimensions must match the embedding model in use (e.g., 1536 for
// OpenAI text-embedding-3-small). Changing this value after the first
// migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddl(defaultTable, embeddingDimensions)); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
