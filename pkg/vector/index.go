// Package vector defines the contract over the vector index capability each
// brain is backed by. The index itself is opaque to the rest of the system:
// callers hand it (id, text) pairs and get scored hits back. Implementations
// live in subpackages (sqlitevec for the embedded index, qdrant for a remote
// one) and are selected by configuration.
package vector

import "context"

// Chunk is one (id, text) pair to be indexed. Ids are assigned by the ledger
// and are unique within a brain for its whole lifetime.
type Chunk struct {
	ID   int
	Text string
}

// Hit is a single search result, ordered by descending relevance.
type Hit struct {
	ID    int
	Text  string
	Score float64
}

// Index is one brain's vector index.
//
// Save and Load address a directory: the unit that is uploaded to and
// downloaded from durable storage as the brain's index blob. An Index is not
// safe for concurrent use; the brain cache serializes access through the
// per-brain lock.
type Index interface {
	// Build bulk-indexes the chunks of a brand-new index.
	Build(ctx context.Context, chunks []Chunk) error

	// Upsert inserts or overwrites a single chunk.
	Upsert(ctx context.Context, id int, text string) error

	// Delete removes the given ids best-effort and returns the subset that
	// was actually removed. Per-id failures are logged and skipped; they
	// never fail the batch.
	Delete(ctx context.Context, ids []int) []int

	// Search returns up to k hits for the query, most relevant first.
	Search(ctx context.Context, query string, k int) ([]Hit, error)

	// Save persists the index into dir.
	Save(ctx context.Context, dir string) error

	// Close releases resources held by the index.
	Close() error
}

// Factory creates and restores Index instances rooted at a directory.
type Factory interface {
	// Create initializes a fresh, empty index in dir.
	Create(ctx context.Context, dir string) (Index, error)

	// Open restores a previously saved index from dir. Returns an error
	// wrapping ErrIndexLoad when dir does not contain a valid index.
	Open(ctx context.Context, dir string) (Index, error)
}
