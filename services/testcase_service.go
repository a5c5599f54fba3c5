package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qa-agent-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TestCaseService turns retrieval results into persisted test-case
// records. Record content comes from fixed templates over the query text;
// retrieved chunk bodies contribute nothing beyond source attribution.
// Records are inserted one document each, so concurrent generations
// append without clobbering each other.
type TestCaseService struct {
	retrieval *RetrievalService
	records   *mongo.Collection
}

func NewTestCaseService(retrieval *RetrievalService, db *mongo.Database) *TestCaseService {
	return &TestCaseService{
		retrieval: retrieval,
		records:   db.Collection("testcases"),
	}
}

// BuildTestCasePayload synthesizes the payload for the match at the given
// 1-based rank. Deterministic: identical query and rank and source always
// produce an identical payload.
func BuildTestCasePayload(query string, rank int, source string) models.TestCasePayload {
	if source == "" {
		source = "unknown"
	}
	return models.TestCasePayload{
		TestID:         fmt.Sprintf("TC-%03d", rank),
		Feature:        query,
		TestScenario:   fmt.Sprintf("Validate: %s", query),
		ExpectedResult: "The feature should work as expected.",
		GroundedIn:     []string{source},
	}
}

// mintRecords builds one freshly-identified record per match, ranked from
// 1. Ids come from the uuid generator, never from content, so two calls
// over identical matches share no ids.
func mintRecords(query string, matches []models.RetrievalMatch, now time.Time) []models.TestCaseRecord {
	records := make([]models.TestCaseRecord, 0, len(matches))
	for i, match := range matches {
		records = append(records, models.TestCaseRecord{
			ID:        uuid.New().String(),
			Seq:       i + 1,
			Payload:   BuildTestCasePayload(query, i+1, match.Source),
			CreatedAt: now,
		})
	}
	return records
}

// Generate retrieves the topK best chunks for query and mints one record
// per match, ranked from 1. Zero matches yield an empty result and leave
// the record table untouched. Every returned record is durably stored
// before the call returns.
func (ts *TestCaseService) Generate(ctx context.Context, collection, query string, topK int) ([]models.TestCaseRecord, int, error) {
	matches, err := ts.retrieval.Retrieve(ctx, collection, query, topK)
	if err != nil {
		return nil, 0, err
	}
	if len(matches) == 0 {
		return nil, 0, nil
	}

	generated := mintRecords(query, matches, time.Now().UTC())
	docs := make([]interface{}, 0, len(generated))
	for _, record := range generated {
		docs = append(docs, record)
	}

	if _, err := ts.records.InsertMany(ctx, docs); err != nil {
		return nil, len(matches), fmt.Errorf("failed to persist testcases: %w", err)
	}
	return generated, len(matches), nil
}

// List returns the full record table, oldest first; records sharing a
// created_at keep their rank order within the generation call.
func (ts *TestCaseService) List(ctx context.Context) ([]models.TestCaseRecord, error) {
	cursor, err := ts.records.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{
			{Key: "created_at", Value: 1},
			{Key: "seq", Value: 1},
			{Key: "record_id", Value: 1},
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to list testcases: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]models.TestCaseRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode testcases: %w", err)
	}
	return records, nil
}

// Get looks up one record by id. Unknown ids are a normal negative
// result, reported as ErrTestCaseNotFound.
func (ts *TestCaseService) Get(ctx context.Context, id string) (*models.TestCaseRecord, error) {
	var record models.TestCaseRecord
	err := ts.records.FindOne(ctx, bson.M{"record_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrTestCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load testcase %s: %w", id, err)
	}
	return &record, nil
}
