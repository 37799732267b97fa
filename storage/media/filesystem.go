package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indieinfra/quill/config"
	storageutil "github.com/indieinfra/quill/storage/util"
)

// FilesystemStore stores uploaded media files in a local directory.
type FilesystemStore struct {
	basePath  string
	publicURL string
	pattern   *storageutil.PathPattern
	mu        sync.Mutex
}

func NewFilesystemStore(cfg *config.FilesystemMediaStrategy) (*FilesystemStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem media config is nil")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	pattern := storageutil.DefaultMediaPattern()
	if cfg.PathPattern != "" {
		pattern = storageutil.NewPathPattern(cfg.PathPattern)
	}

	return &FilesystemStore{
		basePath:  cfg.Path,
		publicURL: storageutil.NormalizeBaseURL(cfg.PublicUrl),
		pattern:   pattern,
	}, nil
}

// Upload saves the provided file to disk and returns its public URL. Name
// collisions get a short UUID suffix.
func (fs *FilesystemStore) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	filename := header.Filename
	contentType := header.Header.Get("Content-Type")

	ext := filepath.Ext(filename)
	if ext == "" && contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	base := strings.TrimSuffix(filename, ext)
	if base == "" {
		base = uuid.New().String()
	}

	now := time.Now()
	relPath, err := fs.pattern.Generate(base, now, ext)
	if err != nil {
		return "", fmt.Errorf("failed to generate path: %w", err)
	}

	absPath := filepath.Join(fs.basePath, relPath)

	if _, err := os.Stat(absPath); err == nil {
		base = fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
		relPath, err = fs.pattern.Generate(base, now, ext)
		if err != nil {
			return "", fmt.Errorf("failed to generate unique path: %w", err)
		}
		absPath = filepath.Join(fs.basePath, relPath)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	outFile, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, file); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fs.publicURL + filepath.ToSlash(relPath), nil
}

// Delete removes a media file. A missing file counts as success.
func (fs *FilesystemStore) Delete(ctx context.Context, url string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !strings.HasPrefix(url, fs.publicURL) {
		return fmt.Errorf("url %q does not match public URL prefix %q", url, fs.publicURL)
	}

	relPath := filepath.FromSlash(strings.TrimPrefix(url, fs.publicURL))
	absPath := filepath.Join(fs.basePath, relPath)

	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}
