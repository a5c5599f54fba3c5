package services

import (
	"context"
	"strings"

	"qa-agent-backend/internal/ai"
	"qa-agent-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// RetrievalService answers similarity queries: embed the query text,
// normalize, rank against the stored collection. Both collaborators are
// injected; the service holds no state of its own.
type RetrievalService struct {
	embedder *ai.Embedder
	store    *VectorStoreService
	cache    *EmbeddingCacheService
}

func NewRetrievalService(embedder *ai.Embedder, store *VectorStoreService, cache *EmbeddingCacheService) *RetrievalService {
	return &RetrievalService{embedder: embedder, store: store, cache: cache}
}

// Retrieve returns up to topK matches for query, best first. An empty or
// whitespace-only query is a valid no-op and yields no matches rather
// than an error. Provider and store failures propagate unchanged.
func (rs *RetrievalService) Retrieve(ctx context.Context, collection, query string, topK int) ([]models.RetrievalMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	tracer := otel.Tracer("retrieval")
	ctx, span := tracer.Start(ctx, "retrieval.retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.collection", collection),
		attribute.Int("retrieval.top_k", topK),
	)

	qvec, err := rs.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := rs.store.Query(ctx, collection, Normalize(qvec), topK)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("retrieval.matches", len(matches)))
	return matches, nil
}

func (rs *RetrievalService) embedQuery(ctx context.Context, query string) ([]float64, error) {
	if rs.cache != nil {
		if vec, ok := rs.cache.Get(ctx, query); ok {
			return vec, nil
		}
	}
	vec, err := rs.embedder.EncodeOne(ctx, query)
	if err != nil {
		return nil, err
	}
	if rs.cache != nil {
		rs.cache.Put(ctx, query, vec)
	}
	return vec, nil
}
