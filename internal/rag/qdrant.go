package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. Determined by the active embedding backend.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance, for
// sessions whose collections should survive server restarts or exceed what
// brute-force in-memory search handles comfortably.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists with cosine distance and the configured dimensionality.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// pointID maps a chunk ID to a stable numeric Qdrant point ID. Chunk IDs are
// order-derived strings rather than UUIDs, so a 64-bit FNV-1a hash keeps
// upsert-by-ID semantics without an ID translation table.
func pointID(id string) *qdrant.PointId {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return qdrant.NewIDNum(h.Sum64())
}

// Upsert stores chunks with their embeddings, replacing points that share a
// chunk ID. The batch is validated against the collection dimensionality
// before anything is sent.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if uint64(len(c.Vector)) != s.cfg.VectorSize {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection has %d — re-index required",
				ErrDimensionMismatch, c.ID, len(c.Vector), s.cfg.VectorSize)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(c.ID),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":            c.ID,
				"text":          c.Text,
				"source_offset": int64(c.SourceOffset),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Query performs a cosine similarity search and returns the top-n results.
// Qdrant reports cosine similarity directly; scores are clamped to [0,1].
func (s *QdrantStore) Query(ctx context.Context, vector []float32, n int) ([]Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rag: result count must be positive, got %d", n)
	}

	limit := uint64(n)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		results = append(results, Result{
			Chunk: chunkFromPayload(p.Payload, p.Vectors),
			Score: ClampScore(p.Score),
		})
	}

	return results, nil
}

// All scrolls the full collection and returns the chunks ordered by source
// offset, which reproduces insertion order for a single indexed text.
func (s *QdrantStore) All(ctx context.Context) ([]Chunk, error) {
	limit := uint32(1024)
	var chunks []Chunk
	var offset *qdrant.PointId

	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
		}
		if len(points) == 0 {
			break
		}
		for _, p := range points {
			chunks = append(chunks, chunkFromRetrieved(p))
		}
		if len(points) < int(limit) {
			break
		}
		offset = points[len(points)-1].Id
	}

	sortChunksByOffset(chunks)
	return chunks, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(n), nil
}

// Reset drops and recreates the collection. Recreating rather than deleting
// points allows the dimensionality to change on the next ensureCollection.
func (s *QdrantStore) Reset(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil {
		return fmt.Errorf("qdrant: delete collection failed: %w", err)
	}
	return s.ensureCollection(ctx)
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Client exposes the underlying gRPC client for health probing.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// chunkFromPayload reconstructs a Chunk from a scored point's payload and
// vector output.
func chunkFromPayload(payload map[string]*qdrant.Value, vectors *qdrant.VectorsOutput) Chunk {
	var c Chunk
	if v, ok := payload["id"]; ok {
		c.ID = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		c.Text = v.GetStringValue()
	}
	if v, ok := payload["source_offset"]; ok {
		c.SourceOffset = int(v.GetIntegerValue())
	}
	if vec := vectors.GetVector(); vec != nil {
		c.Vector = vec.GetData()
	}
	return c
}

// chunkFromRetrieved reconstructs a Chunk from a scrolled point.
func chunkFromRetrieved(p *qdrant.RetrievedPoint) Chunk {
	return chunkFromPayload(p.Payload, p.Vectors)
}

// sortChunksByOffset orders chunks by their source offset, ascending.
func sortChunksByOffset(chunks []Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].SourceOffset < chunks[j].SourceOffset
	})
}
