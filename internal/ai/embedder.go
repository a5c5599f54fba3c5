package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"qa-agent-backend/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// ErrProviderUnavailable marks a provider that cannot serve requests:
// missing credentials, failed client construction, or an open circuit
// breaker.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Embedder turns text into fixed-dimension vectors via the Gemini
// embeddings API. The underlying client is loaded lazily on first use and
// shared for the process lifetime. A failed load is not remembered: the
// next call retries, so a transient failure never disables the provider
// until restart.
type Embedder struct {
	apiKey      string
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter

	mu     sync.Mutex
	client *genai.Client
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewEmbedder(apiKey, model, tier string) *Embedder {
	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &Embedder{
		apiKey:      apiKey,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// load pays the one-time client construction cost. The client is built
// with a background context: a canceled or expired request context must
// not poison the shared client for later callers.
func (e *Embedder) load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return nil
	}
	if e.apiKey == "" {
		return fmt.Errorf("%w: missing GEMINI_API_KEY", ErrProviderUnavailable)
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(e.apiKey))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	e.client = client
	logger.Info("Embedding model client loaded", "model", e.model)
	return nil
}

// EncodeBatch embeds texts in order, one vector per input. This is the
// hot path for ingestion; callers batch upstream to bound memory.
func (e *Embedder) EncodeBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.load(); err != nil {
		return nil, err
	}

	tracer := otel.Tracer("embedder")
	ctx, span := tracer.Start(ctx, "embedder.encode_batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embedder.batch_size", len(texts)),
		attribute.String("embedder.model", e.model),
	)

	if err := e.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("embedder.rate_limited", true))
		return nil, err
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		em := e.client.EmbeddingModel(e.model)
		batch := em.NewBatch()
		for _, text := range texts {
			batch.AddContent(genai.Text(text))
		}
		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			span.SetAttributes(attribute.Bool("embedder.error", true))
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		vectors := make([][]float64, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("empty embedding at position %d", i)
			}
			vectors[i] = toFloat64(emb.Values)
		}
		return vectors, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("embedder.circuit_breaker_open", true))
			return nil, fmt.Errorf("%w: circuit breaker open", ErrProviderUnavailable)
		}
		return nil, err
	}

	span.SetAttributes(attribute.Bool("embedder.success", true))
	return result.([][]float64), nil
}

// EncodeOne embeds a single string, the query path.
func (e *Embedder) EncodeOne(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// Close releases the underlying client if it was ever loaded.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
