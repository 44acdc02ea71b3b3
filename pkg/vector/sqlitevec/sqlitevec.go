// Package sqlitevec provides the embedded vector index driver, backed by
// SQLite with the sqlite-vec extension. Each brain's index is a single
// index.db file inside the brain's index directory, which makes the
// blob-storage upload/download flow a plain directory copy.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/embeddings"
	"github.com/sudo-OMsharma/personabrain/pkg/vector"
)

// DBFileName is the index database file inside a brain's index directory.
const DBFileName = "index.db"

// Factory creates and restores sqlite-vec indexes.
type Factory struct {
	embedder   embeddings.Embedder
	dimensions uint
	logger     *zap.Logger
}

// NewFactory creates a factory producing indexes with the given embedder.
// Dimensions must match the embedder's output size.
func NewFactory(embedder embeddings.Embedder, dimensions uint, logger *zap.Logger) (*Factory, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if dimensions == 0 {
		return nil, errors.New("embedding dimensions cannot be 0, must be configured")
	}
	return &Factory{embedder: embedder, dimensions: dimensions, logger: logger}, nil
}

// Create initializes a fresh, empty index in dir.
func (f *Factory) Create(ctx context.Context, dir string) (vector.Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index dir: %w", err)
	}

	idx, err := f.open(ctx, filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, err
	}

	if err := idx.createTables(ctx); err != nil {
		idx.Close()
		return nil, err
	}

	f.logger.Debug("index created", zap.String("dir", dir))
	return idx, nil
}

// Open restores a previously saved index from dir. The directory must hold a
// valid index.db with the expected schema; anything else wraps ErrIndexLoad.
func (f *Factory) Open(ctx context.Context, dir string) (vector.Index, error) {
	path := filepath.Join(dir, DBFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vector.ErrIndexLoad, path, err)
	}

	idx, err := f.open(ctx, path)
	if err != nil {
		return nil, err
	}

	var n int
	err = idx.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE name IN ('chunks', 'vec_chunks')`,
	).Scan(&n)
	if err != nil || n < 2 {
		idx.Close()
		return nil, fmt.Errorf("%w: %s is not a chunk index", vector.ErrIndexLoad, path)
	}

	f.logger.Debug("index opened", zap.String("dir", dir))
	return idx, nil
}

func (f *Factory) open(ctx context.Context, path string) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", vector.ErrIndexLoad, path, err)
	}

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrIndexLoad, err)
	}

	return &Index{
		db:         db,
		embedder:   f.embedder,
		dimensions: f.dimensions,
		logger:     f.logger,
	}, nil
}

// Index implements vector.Index over a sqlite-vec database.
type Index struct {
	db         *sql.DB
	embedder   embeddings.Embedder
	dimensions uint
	logger     *zap.Logger
}

func (i *Index) createTables(ctx context.Context) error {
	_, err := i.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY,
			body TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: creating chunks table: %v", vector.ErrIndexBuild, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(embedding float[%d])`,
		i.dimensions,
	)
	if _, err := i.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("%w: creating vec0 table: %v", vector.ErrIndexBuild, err)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB form
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Build bulk-indexes the chunks of a fresh index.
func (i *Index) Build(ctx context.Context, chunks []vector.Chunk) error {
	for _, c := range chunks {
		if err := i.put(ctx, c.ID, c.Text); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", vector.ErrIndexBuild, c.ID, err)
		}
	}

	i.logger.Debug("index built", zap.Int("chunks", len(chunks)))
	return nil
}

// Upsert inserts or overwrites a single chunk.
func (i *Index) Upsert(ctx context.Context, id int, text string) error {
	if err := i.put(ctx, id, text); err != nil {
		return fmt.Errorf("%w: chunk %d: %v", vector.ErrIndexWrite, id, err)
	}
	return nil
}

func (i *Index) put(ctx context.Context, id int, text string) error {
	embedding, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chunks(id, body) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		id, text,
	); err != nil {
		return fmt.Errorf("storing chunk text: %w", err)
	}

	// vec0 does not support UPDATE, replace via DELETE + INSERT
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_chunks WHERE rowid = ?`, id,
	); err != nil {
		return fmt.Errorf("clearing old embedding: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_chunks(rowid, embedding) VALUES (?, ?)`,
		id, serializeFloat32(embedding),
	); err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}

	return tx.Commit()
}

// Delete removes ids best-effort, returning the subset actually removed.
// Each id's text row and embedding row go in one transaction, so a failure
// leaves the id fully present rather than half-deleted.
func (i *Index) Delete(ctx context.Context, ids []int) []int {
	removed := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := i.deleteOne(ctx, id)
		if err != nil {
			i.logger.Warn("failed to delete chunk",
				zap.Int("id", id),
				zap.Error(err),
			)
			continue
		}
		if n > 0 {
			removed = append(removed, id)
		}
	}
	return removed
}

func (i *Index) deleteOne(ctx context.Context, id int) (int64, error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("deleting chunk text: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks WHERE rowid = ?`, id); err != nil {
		return 0, fmt.Errorf("deleting embedding: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Search embeds the query and returns the k nearest chunks, most similar
// first.
func (i *Index) Search(ctx context.Context, query string, k int) ([]vector.Hit, error) {
	if k <= 0 {
		k = 10
	}

	embedding, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT
			c.id,
			c.body,
			vc.distance
		FROM vec_chunks vc
		INNER JOIN chunks c ON c.id = vc.rowid
		WHERE vc.embedding MATCH ?
			AND vc.k = ?
		ORDER BY vc.distance
	`, serializeFloat32(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []vector.Hit
	for rows.Next() {
		var (
			id       int
			body     string
			distance float64
		)
		if err := rows.Scan(&id, &body, &distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}

		hits = append(hits, vector.Hit{
			ID:   id,
			Text: body,
			// Lower distance means higher similarity
			Score: 1.0 / (1.0 + distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return hits, nil
}

// Save flushes pending writes so the directory can be uploaded as a blob.
// SQLite writes in place, so a WAL checkpoint is all that is needed.
func (i *Index) Save(ctx context.Context, dir string) error {
	if _, err := i.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpointing index in %s: %w", dir, err)
	}
	return nil
}

// Close releases the database handle.
func (i *Index) Close() error {
	return i.db.Close()
}

var (
	_ vector.Index   = (*Index)(nil)
	_ vector.Factory = (*Factory)(nil)
)
