package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
)

// Index is a pgvector-backed [vectorindex.Index]. All methods are safe for
// concurrent use; the underlying pool handles connection sharing.
//
// An Index created by [New] serves the durable table. [Index.Stage] derives
// a second Index over a staging table for rebuilds; [Index.Promote] then
// publishes the staged build atomically.
type Index struct {
	pool       *pgxpool.Pool
	dimensions int
	table      string
}

// New establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate] so the required
// table and extension exist.
func New(ctx context.Context, dsn string, embeddingDimensions int) (*Index, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres index: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns can
	// be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres index: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres index: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres index: migrate: %w", err)
	}

	return &Index{pool: pool, dimensions: embeddingDimensions, table: defaultTable}, nil
}

// Stage creates an empty staging index sharing this index's pool. Any
// leftover staging table from an earlier failed rebuild is dropped first.
// Writes to the staged index never touch the durable table; call
// [Index.Promote] on the staged index to publish it. Do not Close the staged
// index, the pool belongs to the parent.
func (idx *Index) Stage(ctx context.Context) (*Index, error) {
	if _, err := idx.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, stagingTable)); err != nil {
		return nil, fmt.Errorf("postgres index: drop stale staging table: %w", err)
	}
	if _, err := idx.pool.Exec(ctx, ddl(stagingTable, idx.dimensions)); err != nil {
		return nil, fmt.Errorf("postgres index: create staging table: %w", err)
	}
	return &Index{pool: idx.pool, dimensions: idx.dimensions, table: stagingTable}, nil
}

// Promote implements [vectorindex.Promoter]: in a single transaction the
// durable table is dropped and the staging table renamed over it, so readers
// see either the old build or the new one, never a partial state. Afterwards
// this index serves the promoted table. No-op on a non-staged index.
func (idx *Index) Promote(ctx context.Context) error {
	if idx.table != stagingTable {
		return nil
	}

	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres index: promote: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The implicit primary-key index is renamed too, so the next Stage call
	// can reuse the staging names.
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, defaultTable),
		fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, stagingTable, defaultTable),
		fmt.Sprintf(`ALTER INDEX idx_%s_embedding RENAME TO idx_%s_embedding`, stagingTable, defaultTable),
		fmt.Sprintf(`ALTER INDEX idx_%s_order RENAME TO idx_%s_order`, stagingTable, defaultTable),
		fmt.Sprintf(`ALTER INDEX %s_pkey RENAME TO %s_pkey`, stagingTable, defaultTable),
	}
	for _, q := range stmts {
		if _, err := tx.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres index: promote: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres index: promote: %w", err)
	}

	idx.table = defaultTable
	return nil
}

// Close releases all connections held by the underlying pool. Call it when
// the index is no longer needed, typically via defer.
func (idx *Index) Close() {
	idx.pool.Close()
}

// Add implements [vectorindex.Index]. Each entry is upserted; an entry whose
// ChunkID already exists is completely replaced.
func (idx *Index) Add(ctx context.Context, entries []vectorindex.Entry) error {
	for _, e := range entries {
		if len(e.Vector) != idx.dimensions {
			return fmt.Errorf("postgres index: add %s: got %d dimensions, index has %d: %w",
				e.ChunkID, len(e.Vector), idx.dimensions, vectorindex.ErrDimensionMismatch)
		}
	}

	q := fmt.Sprintf(`
		INSERT INTO %s
		    (chunk_id, embedding, speaker, role, section_type, order_index, parent_id, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id) DO UPDATE SET
		    embedding    = EXCLUDED.embedding,
		    speaker      = EXCLUDED.speaker,
		    role         = EXCLUDED.role,
		    section_type = EXCLUDED.section_type,
		    order_index  = EXCLUDED.order_index,
		    parent_id    = EXCLUDED.parent_id,
		    content      = EXCLUDED.content`, idx.table)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(q,
			e.ChunkID,
			pgvector.NewVector(e.Vector),
			e.Meta.Speaker,
			e.Meta.Role,
			e.Meta.Section,
			e.Meta.OrderIndex,
			e.Meta.ParentID,
			e.Meta.Text,
		)
	}

	br := idx.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres index: add: %w", err)
		}
	}
	return nil
}

// Search implements [vectorindex.Index]. The score reported for each hit is
// cosine similarity (1 minus the cosine distance pgvector computes), so
// higher is more similar, matching the in-memory backend.
func (idx *Index) Search(ctx context.Context, vector []float32, topK int) ([]vectorindex.Result, error) {
	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("postgres index: search: got %d dimensions, index has %d: %w",
			len(vector), idx.dimensions, vectorindex.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []vectorindex.Result{}, nil
	}

	q := fmt.Sprintf(`
		SELECT chunk_id, speaker, role, section_type, order_index, parent_id, content,
		       1 - (embedding <=> $1) AS score
		FROM   %s
		ORDER  BY embedding <=> $1, order_index
		LIMIT  $2`, idx.table)

	rows, err := idx.pool.Query(ctx, q, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres index: search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vectorindex.Result, error) {
		var r vectorindex.Result
		if err := row.Scan(
			&r.ChunkID,
			&r.Meta.Speaker,
			&r.Meta.Role,
			&r.Meta.Section,
			&r.Meta.OrderIndex,
			&r.Meta.ParentID,
			&r.Meta.Text,
			&r.Score,
		); err != nil {
			return vectorindex.Result{}, err
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres index: scan rows: %w", err)
	}
	if results == nil {
		results = []vectorindex.Result{}
	}
	return results, nil
}

// Clear implements [vectorindex.Index].
func (idx *Index) Clear(ctx context.Context) error {
	if _, err := idx.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, idx.table)); err != nil {
		return fmt.Errorf("postgres index: clear: %w", err)
	}
	return nil
}

// Len implements [vectorindex.Index].
func (idx *Index) Len(ctx context.Context) (int, error) {
	var n int
	if err := idx.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, idx.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres index: len: %w", err)
	}
	return n, nil
}

// Ensure Index satisfies the interfaces at compile time.
var (
	_ vectorindex.Index    = (*Index)(nil)
	_ vectorindex.Promoter = (*Index)(nil)
)
