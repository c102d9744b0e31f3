package bot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeLoadChunksFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "university_data.txt")

	// 10 lines -> two chunks of 8 and 2 lines at the default chunk size.
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "fact line"
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	idx := NewIndex(&fakeEmbedder{})
	kb := NewKnowledgeBase(path, idx)
	defer func() { _ = kb.Close() }()

	require.NoError(t, kb.Load(context.Background()))
	assert.Equal(t, 2, idx.Size())
}

func TestKnowledgeLoadMissingFile(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{})
	kb := NewKnowledgeBase(filepath.Join(t.TempDir(), "missing.txt"), idx)
	defer func() { _ = kb.Close() }()

	require.NoError(t, kb.Load(context.Background()), "a missing file is not fatal")
	assert.Equal(t, 0, idx.Size())
}
