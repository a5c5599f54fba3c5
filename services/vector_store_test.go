package services

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"qa-agent-backend/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestNormalizeUnitNorm(t *testing.T) {
	vec := Normalize([]float64{3, 4})
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-9 {
		t.Fatalf("expected unit norm, got %f", math.Sqrt(sum))
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := Normalize([]float64{0, 0, 0})
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("position %d: expected 0, got %f", i, v)
		}
	}
}

func TestDotIsCosineOverUnitVectors(t *testing.T) {
	a := Normalize([]float64{1, 0})
	b := Normalize([]float64{1, 1})
	got := Dot(a, b)
	want := math.Cos(math.Pi / 4)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestRankMatchesOrderAndBound(t *testing.T) {
	matches := []models.RetrievalMatch{
		{ChunkID: "a", Score: 0.2},
		{ChunkID: "b", Score: 0.9},
		{ChunkID: "c", Score: 0.5},
		{ChunkID: "d", Score: 0.9},
	}
	ranked := RankMatches(matches, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("scores increase at position %d", i)
		}
	}
	// Equal scores keep scan order: b before d
	if ranked[0].ChunkID != "b" || ranked[1].ChunkID != "d" {
		t.Fatalf("tie broken unstably: %s, %s", ranked[0].ChunkID, ranked[1].ChunkID)
	}
}

func TestRankMatchesSmallerThanTopK(t *testing.T) {
	matches := []models.RetrievalMatch{{ChunkID: "a", Score: 0.1}}
	ranked := RankMatches(matches, 10)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 match, got %d", len(ranked))
	}
}

func storeForTest(t *testing.T) (*VectorStoreService, func()) {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	db := client.Database("qa_agent_test")
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	}
	return NewVectorStoreService(db, 2), cleanup
}

func TestUpsertIdempotentPerChunkID(t *testing.T) {
	store, cleanup := storeForTest(t)
	defer cleanup()
	ctx := context.Background()

	chunk := models.Chunk{ChunkID: "c1", Source: "faq.md", Index: 0, Text: "first"}
	if _, err := store.Upsert(ctx, "idem", []models.Chunk{chunk}, [][]float64{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	chunk.Text = "second"
	if _, err := store.Upsert(ctx, "idem", []models.Chunk{chunk}, [][]float64{{0, 1}}); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Query(ctx, "idem", []float64{0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 entry after re-upsert, got %d", len(matches))
	}
	if matches[0].Text != "second" {
		t.Fatalf("expected latest text, got %q", matches[0].Text)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-9 {
		t.Fatalf("expected latest vector to score 1.0, got %f", matches[0].Score)
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	store, cleanup := storeForTest(t)
	defer cleanup()
	ctx := context.Background()

	first := models.Chunk{ChunkID: "c1", Source: "a.md", Index: 0, Text: "x"}
	if _, err := store.Upsert(ctx, "dims", []models.Chunk{first}, [][]float64{{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}

	bad := models.Chunk{ChunkID: "c2", Source: "a.md", Index: 1, Text: "y"}
	_, err := store.Upsert(ctx, "dims", []models.Chunk{bad}, [][]float64{{1, 0}})
	var storeErr *StoreWriteError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreWriteError, got %v", err)
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch cause, got %v", err)
	}
	if len(storeErr.FailedIDs) != 1 || storeErr.FailedIDs[0] != "c2" {
		t.Fatalf("expected failed id c2, got %v", storeErr.FailedIDs)
	}

	// Committed entries stay committed
	matches, err := store.Query(ctx, "dims", []float64{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected committed entry to survive, got %d", len(matches))
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	store, cleanup := storeForTest(t)
	defer cleanup()
	ctx := context.Background()

	chunk := models.Chunk{ChunkID: "c1", Source: "a.md", Index: 0, Text: "x"}
	if _, err := store.Upsert(ctx, "qdims", []models.Chunk{chunk}, [][]float64{{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	_, err := store.Query(ctx, "qdims", []float64{1, 0}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestQueryRanksAcrossBatches(t *testing.T) {
	store, cleanup := storeForTest(t)
	defer cleanup()
	ctx := context.Background()

	// Batch size is 2, so five chunks exercise multiple batches.
	chunks := []models.Chunk{
		{ChunkID: "c1", Source: "a.md", Index: 0, Text: "one"},
		{ChunkID: "c2", Source: "a.md", Index: 1, Text: "two"},
		{ChunkID: "c3", Source: "a.md", Index: 2, Text: "three"},
		{ChunkID: "c4", Source: "b.md", Index: 0, Text: "four"},
		{ChunkID: "c5", Source: "b.md", Index: 1, Text: "five"},
	}
	vectors := [][]float64{
		{1, 0}, {0.9, 0.1}, {0, 1}, {0.5, 0.5}, {-1, 0},
	}
	written, err := store.Upsert(ctx, "rank", chunks, vectors)
	if err != nil {
		t.Fatal(err)
	}
	if written != 5 {
		t.Fatalf("expected 5 written, got %d", written)
	}

	matches, err := store.Query(ctx, "rank", []float64{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].ChunkID != "c1" {
		t.Fatalf("expected c1 best, got %s", matches[0].ChunkID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatalf("scores increase at position %d", i)
		}
	}
}
