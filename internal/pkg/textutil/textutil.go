// Package textutil provides text processing helpers for the knowledge base
// pipeline: line-group chunking, rune-safe truncation and vector distance.
package textutil

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the number of consecutive source lines grouped into one
// retrievable chunk.
const DefaultChunkSize = 8

// ChunkLines splits text into chunks of at most size consecutive lines.
// Each chunk is the lines re-joined with "\n" and trimmed; chunks that are
// empty after trimming are dropped. Input line order is preserved.
func ChunkLines(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	lines := strings.Split(text, "\n")
	var chunks []string
	for i := 0; i < len(lines); i += size {
		end := i + size
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.TrimSpace(strings.Join(lines[i:end], "\n"))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// TruncateRunes truncates s to at most maxLen Unicode characters, appending
// the ellipsis marker when truncation happened.
func TruncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "…"
}

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or zero-norm inputs yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance converts cosine similarity to a distance in [0, 2].
// Smaller means closer.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
