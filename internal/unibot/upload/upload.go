// Package upload stores user-submitted images (profile photos, student
// cards) under a root directory and serves them back by relative path.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kart-io/logger"
)

// Subdirectories under the upload root.
const (
	ProfileDir = "profiles"
	CardDir    = "student_cards"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store saves and deletes uploaded files under a single root directory.
type Store struct {
	root string
}

// NewStore creates an upload store rooted at dir, creating the known
// subdirectories if needed.
func NewStore(dir string) (*Store, error) {
	for _, sub := range []string{ProfileDir, CardDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Store{root: dir}, nil
}

// Root returns the root directory files are served from.
func (s *Store) Root() string {
	return s.root
}

// Save stores the uploaded file under subDir with a unique name of the form
// prefix_<unix-timestamp><ext> and returns the path relative to the root.
// A nil header or an unusable filename yields an empty path without error.
func (s *Store) Save(file *multipart.FileHeader, subDir, prefix string) (string, error) {
	if file == nil {
		return "", nil
	}

	name := sanitizeFilename(file.Filename)
	if name == "" {
		return "", nil
	}
	ext := filepath.Ext(name)

	uniqueName := fmt.Sprintf("%s_%d%s", prefix, time.Now().Unix(), ext)
	relPath := filepath.ToSlash(filepath.Join(subDir, uniqueName))
	absPath := filepath.Join(s.root, subDir, uniqueName)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return relPath, nil
}

// Delete removes a previously saved file. Missing files and traversal
// attempts are ignored; failures are logged only.
func (s *Store) Delete(relPath string) {
	if relPath == "" {
		return
	}
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return
	}
	if err := os.Remove(filepath.Join(s.root, clean)); err != nil && !os.IsNotExist(err) {
		logger.Warnw("failed to delete upload", "path", relPath, "error", err.Error())
	}
}

// sanitizeFilename strips path components and unsafe characters, mirroring
// the usual secure-filename treatment.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._-")
	if name == "" || name == "." {
		return ""
	}
	return name
}
