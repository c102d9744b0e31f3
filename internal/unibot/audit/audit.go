// Package audit appends AI chat exchanges to per-user plain-text files.
// Writes are best effort: a failing disk never fails the chat request.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// Sink writes one append-only history file per user under its root
// directory. Safe for concurrent use.
type Sink struct {
	root string
	mu   sync.Mutex
}

// NewSink creates a sink rooted at dir, creating it if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Sink{root: dir}, nil
}

// Append records one exchange for the user. Errors are logged, not returned.
func (s *Sink) Append(userID uint64, userText, aiText string) {
	if userID == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, fmt.Sprintf("chat_history_%d.txt", userID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Warnw("failed to open user history file", "path", path, "error", err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	stamp := time.Now().UTC().Format("2006-01-02 15:04:05")
	_, err = fmt.Fprintf(f, "[%s] USER: %s\n[%s] AI  : %s\n\n", stamp, userText, stamp, aiText)
	if err != nil {
		logger.Warnw("failed to append user history file", "path", path, "error", err.Error())
	}
}
