package services

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunkerService(tc.size, tc.overlap)
			if !errors.Is(err, ErrChunkConfig) {
				t.Fatalf("expected ErrChunkConfig, got %v", err)
			}
		})
	}
}

func TestChunkerEmptyText(t *testing.T) {
	cs, err := NewChunkerService(800, 100)
	if err != nil {
		t.Fatal(err)
	}
	if chunks := cs.Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}

func TestChunkerShortTextSingleChunk(t *testing.T) {
	cs, err := NewChunkerService(800, 100)
	if err != nil {
		t.Fatal(err)
	}
	text := "  a short document that fits in one window \n"
	chunks := cs.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != strings.TrimSpace(text) {
		t.Fatalf("expected trimmed text, got %q", chunks[0])
	}
}

func TestChunkerSlidingWindows(t *testing.T) {
	cs, err := NewChunkerService(800, 100)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("x", 1500)
	chunks := cs.Split(text)

	// Step is 700: windows [0,800), [700,1500), [1400,1500)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{800, 800, 100}
	for i, chunk := range chunks {
		if len(chunk) != wantLens[i] {
			t.Errorf("chunk %d: expected length %d, got %d", i, wantLens[i], len(chunk))
		}
	}
}

func TestChunkerRuneBoundaries(t *testing.T) {
	cs, err := NewChunkerService(4, 2)
	if err != nil {
		t.Fatal(err)
	}

	// 10 three-byte runes: any byte-positioned window would cut a rune in
	// half.
	text := strings.Repeat("世", 10)
	chunks := cs.Split(text)

	// Step is 2: windows at rune offsets 0, 2, 4, 6, 8.
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, chunk)
		}
	}
	for i, chunk := range chunks[:4] {
		if got := utf8.RuneCountInString(chunk); got != 4 {
			t.Errorf("chunk %d: expected 4 runes, got %d", i, got)
		}
	}
	if got := utf8.RuneCountInString(chunks[4]); got != 2 {
		t.Errorf("final chunk: expected 2 runes, got %d", got)
	}
}

func TestChunkerDeterminism(t *testing.T) {
	cs, err := NewChunkerService(50, 10)
	if err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
	first := cs.Split(text)
	second := cs.Split(text)
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkerNormalizesCRLF(t *testing.T) {
	cs, err := NewChunkerService(800, 100)
	if err != nil {
		t.Fatal(err)
	}
	chunks := cs.Split("line one\r\nline two")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if strings.Contains(chunks[0], "\r") {
		t.Fatalf("expected CRLF normalized away, got %q", chunks[0])
	}
}

func TestChunkDocumentIndexes(t *testing.T) {
	cs, err := NewChunkerService(10, 2)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	newID := func() string { n++; return "id" }
	chunks := cs.ChunkDocument("faq.md", strings.Repeat("abcdefgh", 4), newID)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Source != "faq.md" {
			t.Errorf("chunk %d has source %q", i, c.Source)
		}
	}
}
