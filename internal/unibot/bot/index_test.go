package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors so rankings are
// deterministic. Unknown texts get a far-away default vector.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := f.vectors[text]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func TestSearchRanksByCosineDistance(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"admissions open in august": {1, 0, 0},
		"library hours are 9 to 5":  {0, 1, 0},
		"hostel fee is due monthly": {0.9, 0.1, 0},
		"when do admissions open":   {1, 0, 0},
	}}
	idx := NewIndex(embedder)

	chunks := []string{
		"library hours are 9 to 5",
		"admissions open in august",
		"hostel fee is due monthly",
	}
	require.NoError(t, idx.Build(context.Background(), chunks))
	assert.Equal(t, 3, idx.Size())

	got, err := idx.Search(context.Background(), "when do admissions open", 2)
	require.NoError(t, err)

	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 2)
	assert.Equal(t, "admissions open in august", parts[0])
	assert.Equal(t, "hostel fee is due monthly", parts[1])
}

func TestSearchTopKCappedAtCorpusSize(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"only chunk": {1, 0, 0},
		"query":      {1, 0, 0},
	}}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Build(context.Background(), []string{"only chunk"}))

	got, err := idx.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	assert.Equal(t, "only chunk", got)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{})

	got, err := idx.Search(context.Background(), "anything", DefaultTopK)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildEmptyCorpusClearsIndex(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0, 0}}}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Build(context.Background(), []string{"a"}))
	require.Equal(t, 1, idx.Size())

	require.NoError(t, idx.Build(context.Background(), nil))
	assert.Equal(t, 0, idx.Size())
}

func TestBuildKeepsOldCorpusOnError(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0, 0}}}
	idx := NewIndex(embedder)
	require.NoError(t, idx.Build(context.Background(), []string{"a"}))

	embedder.err = fmt.Errorf("provider down")
	err := idx.Build(context.Background(), []string{"b", "c"})
	require.Error(t, err)
	assert.Equal(t, 1, idx.Size(), "failed rebuild must not clobber the live corpus")
}

func TestBuildEmbedsLargeCorpusInBatches(t *testing.T) {
	vectors := make(map[string][]float32)
	chunks := make([]string, 0, embedBatchSize*3)
	for i := 0; i < embedBatchSize*3; i++ {
		text := fmt.Sprintf("chunk %03d", i)
		vectors[text] = []float32{float32(i), 1, 0}
		chunks = append(chunks, text)
	}
	embedder := &fakeEmbedder{vectors: vectors}
	idx := NewIndex(embedder)

	require.NoError(t, idx.Build(context.Background(), chunks))
	assert.Equal(t, len(chunks), idx.Size())
	assert.Equal(t, 3, embedder.calls)
}
