package ai

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestEncodeWithoutAPIKey(t *testing.T) {
	e := NewEmbedder("", "text-embedding-004", "free")
	_, err := e.EncodeOne(context.Background(), "hello")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	// The missing key is deterministic, every call reports it.
	_, err = e.EncodeBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable on retry, got %v", err)
	}
}

func TestLoadSurvivesCanceledRequestContext(t *testing.T) {
	e := NewEmbedder("test-key", "text-embedding-004", "free")
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The canceled request fails at the rate limiter, not at client
	// construction, and must not disable the provider for later calls.
	_, err := e.EncodeBatch(ctx, []string{"hello"})
	if errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("canceled request context disabled the provider: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.client == nil {
		t.Fatal("client should be loaded despite the canceled request context")
	}
}

func TestEncodeBatchEmpty(t *testing.T) {
	e := NewEmbedder("", "text-embedding-004", "free")
	vectors, err := e.EncodeBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected no-op for empty batch, got %v, %v", vectors, err)
	}
}

func TestEncodeBatchOrder(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	e := NewEmbedder(os.Getenv("GEMINI_API_KEY"), "text-embedding-004", "free")
	defer e.Close()

	vectors, err := e.EncodeBatch(context.Background(), []string{"first text", "second text"})
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) == 0 || len(vectors[0]) != len(vectors[1]) {
		t.Fatalf("expected equal non-zero dimensions, got %d and %d", len(vectors[0]), len(vectors[1]))
	}
}
