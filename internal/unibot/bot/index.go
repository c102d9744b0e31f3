// Package bot implements the AI assistant: an in-memory embedding index over
// the university knowledge base and the answer generator that queries an LLM
// with retrieved context.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/unibot/internal/pkg/textutil"
	"github.com/kart-io/unibot/pkg/llm"
)

const (
	// DefaultTopK is the number of chunks returned per search.
	DefaultTopK = 3

	// embedBatchSize is the number of chunks embedded per provider call
	// during a build.
	embedBatchSize = 16

	// buildWorkers bounds concurrent embedding calls during a build.
	buildWorkers = 4
)

// Index is an in-memory semantic index over knowledge chunks. Reads and
// rebuilds are safe to interleave: Build prepares the new corpus off to the
// side and swaps it in under the write lock.
type Index struct {
	embedder llm.EmbeddingProvider

	mu      sync.RWMutex
	chunks  []string
	vectors [][]float32
}

// NewIndex creates an empty index backed by the given embedding provider.
func NewIndex(embedder llm.EmbeddingProvider) *Index {
	return &Index{embedder: embedder}
}

// Build embeds the chunks and replaces the current corpus. Batches are
// embedded concurrently through a bounded worker pool. On error the previous
// corpus stays in place.
func (idx *Index) Build(ctx context.Context, chunks []string) error {
	if len(chunks) == 0 {
		idx.mu.Lock()
		idx.chunks, idx.vectors = nil, nil
		idx.mu.Unlock()
		return nil
	}

	vectors := make([][]float32, len(chunks))

	pool, err := ants.NewPool(buildWorkers)
	if err != nil {
		return fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		buildErr error
	)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			batch, err := idx.embedder.Embed(ctx, chunks[start:end])
			if err != nil {
				errOnce.Do(func() { buildErr = fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err) })
				return
			}
			if len(batch) != end-start {
				errOnce.Do(func() { buildErr = fmt.Errorf("embed chunks [%d:%d]: got %d embeddings", start, end, len(batch)) })
				return
			}
			copy(vectors[start:], batch)
		})
		if submitErr != nil {
			wg.Done()
			errOnce.Do(func() { buildErr = fmt.Errorf("submit embedding batch: %w", submitErr) })
			break
		}
	}

	wg.Wait()
	if buildErr != nil {
		return buildErr
	}

	idx.mu.Lock()
	idx.chunks = chunks
	idx.vectors = vectors
	idx.mu.Unlock()
	return nil
}

// Search embeds the query and returns the topK nearest chunks by cosine
// distance, joined by a blank line. An empty or never-built index yields an
// empty string without error, so callers can degrade to answering without
// knowledge context.
func (idx *Index) Search(ctx context.Context, query string, topK int) (string, error) {
	idx.mu.RLock()
	chunks := idx.chunks
	vectors := idx.vectors
	idx.mu.RUnlock()

	if len(chunks) == 0 {
		return "", nil
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > len(chunks) {
		topK = len(chunks)
	}

	queryVec, err := idx.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		index    int
		distance float64
	}
	ranked := make([]scored, len(chunks))
	for i, vec := range vectors {
		ranked[i] = scored{index: i, distance: textutil.CosineDistance(queryVec, vec)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].distance < ranked[b].distance
	})

	selected := make([]string, 0, topK)
	for _, s := range ranked[:topK] {
		selected = append(selected, chunks[s.index])
	}
	return strings.Join(selected, "\n\n"), nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}
