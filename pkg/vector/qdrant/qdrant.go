// Package qdrant implements pkg/vector against a remote Qdrant server.
//
// Each brain maps to one Qdrant collection. The brain's index directory holds
// only a small manifest naming that collection, so the blob-storage round trip
// stays cheap while the vectors themselves live server-side.
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	qdrantgo "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/embeddings"
	"github.com/sudo-OMsharma/personabrain/pkg/vector"
)

// ManifestFileName is the collection manifest inside a brain's index directory.
const ManifestFileName = "manifest.json"

const payloadBodyKey = "body"

type manifest struct {
	Collection string `json:"collection"`
}

// Config holds connection settings for the Qdrant server.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Factory creates and restores Qdrant-backed indexes.
type Factory struct {
	client     *qdrantgo.Client
	embedder   embeddings.Embedder
	dimensions uint
	logger     *zap.Logger
}

// NewFactory connects to the Qdrant server and returns a factory producing
// indexes with the given embedder.
func NewFactory(cfg Config, embedder embeddings.Embedder, dimensions uint, logger *zap.Logger) (*Factory, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if dimensions == 0 {
		return nil, errors.New("embedding dimensions cannot be 0, must be configured")
	}

	client, err := qdrantgo.NewClient(&qdrantgo.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Factory{
		client:     client,
		embedder:   embedder,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// Create provisions a fresh collection and writes its manifest into dir.
func (f *Factory) Create(ctx context.Context, dir string) (vector.Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index dir: %w", err)
	}

	collection := "brain_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	err := f.client.CreateCollection(ctx, &qdrantgo.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrantgo.NewVectorsConfig(&qdrantgo.VectorParams{
			Size:     uint64(f.dimensions),
			Distance: qdrantgo.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %s: %v", vector.ErrIndexBuild, collection, err)
	}

	idx := &Index{
		client:     f.client,
		embedder:   f.embedder,
		collection: collection,
		logger:     f.logger,
	}

	if err := idx.Save(ctx, dir); err != nil {
		return nil, err
	}

	f.logger.Debug("collection created",
		zap.String("collection", collection),
		zap.String("dir", dir),
	)
	return idx, nil
}

// Open reads the manifest in dir and attaches to the collection it names.
// A missing or unreadable manifest, or a collection that no longer exists on
// the server, wraps ErrIndexLoad.
func (f *Factory) Open(ctx context.Context, dir string) (vector.Index, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest in %s: %v", vector.ErrIndexLoad, dir, err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest in %s: %v", vector.ErrIndexLoad, dir, err)
	}
	if m.Collection == "" {
		return nil, fmt.Errorf("%w: manifest in %s names no collection", vector.ErrIndexLoad, dir)
	}

	exists, err := f.client.CollectionExists(ctx, m.Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection %s: %v", vector.ErrIndexLoad, m.Collection, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: collection %s does not exist", vector.ErrIndexLoad, m.Collection)
	}

	f.logger.Debug("collection opened",
		zap.String("collection", m.Collection),
		zap.String("dir", dir),
	)
	return &Index{
		client:     f.client,
		embedder:   f.embedder,
		collection: m.Collection,
		logger:     f.logger,
	}, nil
}

// Close releases the shared server connection.
func (f *Factory) Close() error {
	return f.client.Close()
}

// Index implements vector.Index over one Qdrant collection.
type Index struct {
	client     *qdrantgo.Client
	embedder   embeddings.Embedder
	collection string
	logger     *zap.Logger
}

// Collection returns the name of the backing Qdrant collection.
func (i *Index) Collection() string {
	return i.collection
}

// Build bulk-indexes the chunks of a fresh index.
func (i *Index) Build(ctx context.Context, chunks []vector.Chunk) error {
	points := make([]*qdrantgo.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		embedding, err := i.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", vector.ErrIndexBuild, c.ID, err)
		}
		points = append(points, i.point(c.ID, c.Text, embedding))
	}

	if len(points) == 0 {
		return nil
	}

	_, err := i.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: i.collection,
		Points:         points,
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", vector.ErrIndexBuild, len(points), err)
	}

	i.logger.Debug("index built",
		zap.String("collection", i.collection),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// Upsert inserts or overwrites a single chunk.
func (i *Index) Upsert(ctx context.Context, id int, text string) error {
	embedding, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: chunk %d: %v", vector.ErrIndexWrite, id, err)
	}

	_, err = i.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: i.collection,
		Points:         []*qdrantgo.PointStruct{i.point(id, text, embedding)},
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: chunk %d: %v", vector.ErrIndexWrite, id, err)
	}
	return nil
}

func (i *Index) point(id int, text string, embedding []float32) *qdrantgo.PointStruct {
	return &qdrantgo.PointStruct{
		Id:      qdrantgo.NewIDNum(uint64(id)),
		Vectors: qdrantgo.NewVectors(embedding...),
		Payload: qdrantgo.NewValueMap(map[string]any{payloadBodyKey: text}),
	}
}

// Delete removes ids best-effort, returning the subset actually removed.
func (i *Index) Delete(ctx context.Context, ids []int) []int {
	removed := make([]int, 0, len(ids))
	for _, id := range ids {
		_, err := i.client.Delete(ctx, &qdrantgo.DeletePoints{
			CollectionName: i.collection,
			Points:         qdrantgo.NewPointsSelector(qdrantgo.NewIDNum(uint64(id))),
			Wait:           qdrantgo.PtrOf(true),
		})
		if err != nil {
			i.logger.Warn("failed to delete point",
				zap.String("collection", i.collection),
				zap.Int("id", id),
				zap.Error(err),
			)
			continue
		}
		removed = append(removed, id)
	}
	return removed
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

	points, err := i.client.Query(ctx, &qdrantgo.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrantgo.NewQuery(embedding...),
		Limit:          qdrantgo.PtrOf(uint64(k)),
		WithPayload:    qdrantgo.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", i.collection, err)
	}

	hits := make([]vector.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, vector.Hit{
			ID:    int(p.GetId().GetNum()),
			Text:  p.GetPayload()[payloadBodyKey].GetStringValue(),
			Score: float64(p.GetScore()),
		})
	}
	return hits, nil
}

// Save writes the manifest naming the backing collection into dir.
func (i *Index) Save(ctx context.Context, dir string) error {
	raw, err := json.Marshal(manifest{Collection: i.collection})
	if err != nil {
		return fmt.Errorf("%w: marshaling manifest: %v", vector.ErrIndexWrite, err)
	}

	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), raw, 0o644); err != nil {
		return fmt.Errorf("%w: writing manifest in %s: %v", vector.ErrIndexWrite, dir, err)
	}
	return nil
}

// Close drops the per-brain handle. The gRPC connection is shared and owned
// by the factory.
func (i *Index) Close() error {
	return nil
}

var (
	_ vector.Index   = (*Index)(nil)
	_ vector.Factory = (*Factory)(nil)
)
