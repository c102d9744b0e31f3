package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/internal/pkg/textutil"
)

// reloadDebounce coalesces bursts of filesystem events into one rebuild.
const reloadDebounce = 500 * time.Millisecond

// KnowledgeBase loads the university data file into the embedding index and
// rebuilds it when the file changes on disk.
type KnowledgeBase struct {
	path  string
	index *Index

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewKnowledgeBase creates a knowledge base for the given data file.
func NewKnowledgeBase(path string, index *Index) *KnowledgeBase {
	return &KnowledgeBase{
		path:  path,
		index: index,
		done:  make(chan struct{}),
	}
}

// Load reads the data file, chunks it, and builds the index. A missing or
// empty file leaves the index empty without error so the assistant can still
// answer from the conversation alone.
func (kb *KnowledgeBase) Load(ctx context.Context) error {
	data, err := os.ReadFile(kb.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnw("knowledge file missing, starting with empty index", "path", kb.path)
			return kb.index.Build(ctx, nil)
		}
		return fmt.Errorf("read knowledge file: %w", err)
	}

	chunks := textutil.ChunkLines(string(data), textutil.DefaultChunkSize)
	if err := kb.index.Build(ctx, chunks); err != nil {
		return fmt.Errorf("build knowledge index: %w", err)
	}

	logger.Infow("knowledge index built", "path", kb.path, "chunks", len(chunks))
	return nil
}

// Watch starts watching the data file's directory and rebuilds the index on
// changes. Watching the directory instead of the file survives editors that
// replace the file on save.
func (kb *KnowledgeBase) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create knowledge watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(kb.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch knowledge dir: %w", err)
	}
	kb.watcher = watcher

	go kb.watchLoop(ctx)
	return nil
}

func (kb *KnowledgeBase) watchLoop(ctx context.Context) {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-kb.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(kb.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(reloadDebounce)
			}

		case <-reload:
			timer = nil
			if err := kb.Load(ctx); err != nil {
				logger.Errorw("knowledge reload failed", "path", kb.path, "error", err.Error())
			}

		case err, ok := <-kb.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("knowledge watcher error", "error", err.Error())

		case <-ctx.Done():
			return
		case <-kb.done:
			return
		}
	}
}

// Close stops the watcher.
func (kb *KnowledgeBase) Close() error {
	close(kb.done)
	if kb.watcher != nil {
		return kb.watcher.Close()
	}
	return nil
}
