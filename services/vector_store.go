package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"qa-agent-backend/models"
	"qa-agent-backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDimensionMismatch marks a vector whose length disagrees with the
// dimensionality fixed for the collection.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorStoreService persists named collections of embedded chunks in
// MongoDB and answers nearest-neighbor queries over them. Vectors are
// unit-normalized before storage and before querying, so the similarity
// score is cosine similarity in [-1, 1]. Ranking ties are broken by
// insertion order (the persisted seq), which keeps query results stable.
type VectorStoreService struct {
	chunks    *mongo.Collection
	meta      *mongo.Collection
	counters  *mongo.Collection
	batchSize int
}

func NewVectorStoreService(db *mongo.Database, batchSize int) *VectorStoreService {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &VectorStoreService{
		chunks:    db.Collection("vector_chunks"),
		meta:      db.Collection("vector_collections"),
		counters:  db.Collection("counters"),
		batchSize: batchSize,
	}
}

// Normalize scales a vector to unit L2 norm. A zero vector is returned
// unchanged: the norm is treated as 1.0 instead of dividing by zero.
func Normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// Dot computes the inner product of two equal-length vectors. Over unit
// vectors this is cosine similarity.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// EnsureCollection loads the collection metadata, creating it on first
// use. Dimension 0 means no vector has been stored yet.
func (vs *VectorStoreService) EnsureCollection(ctx context.Context, name string) (*models.CollectionMeta, error) {
	var meta models.CollectionMeta
	err := vs.meta.FindOneAndUpdate(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name, "dimension": 0}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&meta)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %q: %w", name, err)
	}
	return &meta, nil
}

// Upsert stores chunks with their vectors under the named collection,
// keyed by chunk_id: re-adding an id replaces its prior content. Entries
// are written in bounded batches; a failing batch aborts the call with a
// StoreWriteError naming its chunk ids, but batches committed before it
// stay committed. Returns the number of entries written.
func (vs *VectorStoreService) Upsert(ctx context.Context, collection string, chunks []models.Chunk, vectors [][]float64) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, &StoreWriteError{Collection: collection,
			Err: fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors))}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	meta, err := vs.EnsureCollection(ctx, collection)
	if err != nil {
		return 0, &StoreWriteError{Collection: collection, Err: err}
	}

	dimension := meta.Dimension
	if dimension == 0 {
		dimension = len(vectors[0])
		_, err = vs.meta.UpdateOne(ctx,
			bson.M{"name": collection, "dimension": 0},
			bson.M{"$set": bson.M{"dimension": dimension}})
		if err != nil {
			return 0, &StoreWriteError{Collection: collection, Err: err}
		}
	}

	written := 0
	for start := 0; start < len(chunks); start += vs.batchSize {
		end := start + vs.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := vs.upsertBatch(ctx, collection, dimension, chunks[start:end], vectors[start:end]); err != nil {
			return written, err
		}
		written += end - start
	}
	return written, nil
}

func (vs *VectorStoreService) upsertBatch(ctx context.Context, collection string, dimension int, chunks []models.Chunk, vectors [][]float64) error {
	batchIDs := make([]string, len(chunks))
	for i, c := range chunks {
		batchIDs[i] = c.ChunkID
	}

	// Validate the whole batch before touching the store so a bad entry
	// cannot leave the batch half-applied.
	var badIDs []string
	for i, vec := range vectors {
		if len(vec) != dimension {
			badIDs = append(badIDs, chunks[i].ChunkID)
		}
	}
	if len(badIDs) > 0 {
		return &StoreWriteError{Collection: collection, FailedIDs: badIDs,
			Err: fmt.Errorf("%w: collection holds %d-dimensional vectors", ErrDimensionMismatch, dimension)}
	}

	seqStart, err := vs.reserveSeq(ctx, collection, len(chunks))
	if err != nil {
		return &StoreWriteError{Collection: collection, FailedIDs: batchIDs, Err: err}
	}

	writes := make([]mongo.WriteModel, 0, len(chunks))
	for i, c := range chunks {
		compressed, algorithm, err := utils.CompressText(c.Text)
		if err != nil {
			return &StoreWriteError{Collection: collection, FailedIDs: []string{c.ChunkID}, Err: err}
		}

		doc := bson.M{
			"source":      c.Source,
			"index":       c.Index,
			"vector":      Normalize(vectors[i]),
			"metadata":    c.Metadata,
			"compression": string(algorithm),
		}
		if algorithm == utils.CompressionNone {
			doc["text"] = c.Text
			doc["compressed"] = nil
		} else {
			doc["text"] = ""
			doc["compressed"] = compressed
		}

		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"collection": collection, "chunk_id": c.ChunkID}).
			SetUpdate(bson.M{
				"$set":         doc,
				"$setOnInsert": bson.M{"seq": seqStart + int64(i)},
			}).
			SetUpsert(true))
	}

	_, err = vs.chunks.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return &StoreWriteError{Collection: collection, FailedIDs: batchIDs, Err: err}
	}
	return nil
}

// reserveSeq allocates a contiguous block of insertion-order numbers for
// one batch.
func (vs *VectorStoreService) reserveSeq(ctx context.Context, collection string, n int) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := vs.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "vector_seq:" + collection},
		bson.M{"$inc": bson.M{"value": int64(n)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Value - int64(n) + 1, nil
}

// Query ranks all entries of the collection against queryVector by cosine
// similarity and returns at most topK matches, scores non-increasing.
// The caller provides a normalized vector; Query normalizes defensively
// anyway since scores are only meaningful over unit vectors.
func (vs *VectorStoreService) Query(ctx context.Context, collection string, queryVector []float64, topK int) ([]models.RetrievalMatch, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	meta, err := vs.EnsureCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if meta.Dimension == 0 {
		return nil, nil
	}
	if len(queryVector) != meta.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q holds %d",
			ErrDimensionMismatch, len(queryVector), collection, meta.Dimension)
	}

	qvec := Normalize(queryVector)

	cursor, err := vs.chunks.Find(ctx,
		bson.M{"collection": collection},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %q: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var matches []models.RetrievalMatch
	for cursor.Next(ctx) {
		var entry models.IndexedChunk
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry in %q: %w", collection, err)
		}
		if len(entry.Vector) != meta.Dimension {
			return nil, fmt.Errorf("%w: stored entry %s has %d dimensions, expected %d",
				ErrDimensionMismatch, entry.ChunkID, len(entry.Vector), meta.Dimension)
		}

		text := entry.Text
		if entry.Compression != "" && entry.Compression != string(utils.CompressionNone) {
			text, err = utils.DecompressText(entry.Compressed, utils.CompressionAlgorithm(entry.Compression))
			if err != nil {
				return nil, fmt.Errorf("failed to decompress chunk %s: %w", entry.ChunkID, err)
			}
		}

		matches = append(matches, models.RetrievalMatch{
			Score:   Dot(entry.Vector, qvec),
			ChunkID: entry.ChunkID,
			Source:  entry.Source,
			Index:   entry.Index,
			Text:    text,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan collection %q: %w", collection, err)
	}

	return RankMatches(matches, topK), nil
}

// RankMatches sorts matches by descending score and truncates to topK.
// The sort is stable: equal scores keep the order they were scanned in,
// which is insertion order.
func RankMatches(matches []models.RetrievalMatch, topK int) []models.RetrievalMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}
