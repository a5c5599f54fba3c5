package services

import (
	"context"

	"qa-agent-backend/internal/ai"
	"qa-agent-backend/internal/logger"
	"qa-agent-backend/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// SourceDocument is one extracted document ready for indexing.
type SourceDocument struct {
	Name string
	Text string
}

// IngestResult summarizes one build_kb call.
type IngestResult struct {
	NumChunks     int
	IngestedFiles []string
}

// KnowledgeService drives ingestion: chunk each source document, embed
// the chunks, and upsert them into the vector collection. Embedding and
// upserting run over bounded batches so memory stays flat regardless of
// corpus size. A failing batch stops the call; batches already committed
// stay committed (partial progress is expected, not rolled back).
type KnowledgeService struct {
	embedder  *ai.Embedder
	store     *VectorStoreService
	batchSize int
}

func NewKnowledgeService(embedder *ai.Embedder, store *VectorStoreService, batchSize int) *KnowledgeService {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &KnowledgeService{embedder: embedder, store: store, batchSize: batchSize}
}

// BuildKB indexes the given documents into collection using the supplied
// window configuration. Returns nil result with no error when nothing
// chunkable was provided; the caller reports that as "no documents", not
// as a failure.
func (ks *KnowledgeService) BuildKB(ctx context.Context, collection string, docs []SourceDocument, chunkSize, chunkOverlap int) (*IngestResult, error) {
	chunker, err := NewChunkerService(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}

	tracer := otel.Tracer("knowledge")
	ctx, span := tracer.Start(ctx, "knowledge.build_kb")
	defer span.End()
	span.SetAttributes(
		attribute.String("knowledge.collection", collection),
		attribute.Int("knowledge.documents", len(docs)),
	)

	var chunks []models.Chunk
	sources := make([]string, 0, len(docs))
	seen := make(map[string]bool)
	for _, doc := range docs {
		docChunks := chunker.ChunkDocument(doc.Name, doc.Text, func() string { return uuid.New().String() })
		// Windows that trimmed to nothing carry no signal; drop them
		// here rather than embedding empty strings. Index keeps the
		// window's original position within the source.
		kept := 0
		for _, c := range docChunks {
			if c.Text == "" {
				continue
			}
			kept++
			chunks = append(chunks, c)
		}
		if kept > 0 && !seen[doc.Name] {
			seen[doc.Name] = true
			sources = append(sources, doc.Name)
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	indexed := 0
	for start := 0; start < len(chunks); start += ks.batchSize {
		end := start + ks.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := ks.embedder.EncodeBatch(ctx, texts)
		if err != nil {
			return nil, err
		}

		written, err := ks.store.Upsert(ctx, collection, batch, vectors)
		indexed += written
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Knowledge base updated",
		"collection", collection, "chunks", indexed, "sources", len(sources))
	span.SetAttributes(attribute.Int("knowledge.chunks_indexed", indexed))

	return &IngestResult{NumChunks: indexed, IngestedFiles: sources}, nil
}
