package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/micropub"
	storageutil "github.com/indieinfra/quill/storage/util"
)

// FilesystemStore keeps documents as JSON files under a base directory,
// with an in-memory slug index built at startup.
type FilesystemStore struct {
	basePath   string
	publicURL  string
	pattern    *storageutil.PathPattern
	slugToPath map[string]string
	mu         sync.RWMutex
}

func NewFilesystemStore(cfg *config.FilesystemContentStrategy) (*FilesystemStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem content config is nil")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	pattern := storageutil.DefaultContentPattern()
	if cfg.PathPattern != "" {
		pattern = storageutil.NewPathPattern(cfg.PathPattern)
	}

	store := &FilesystemStore{
		basePath:   cfg.Path,
		publicURL:  storageutil.NormalizeBaseURL(cfg.PublicUrl),
		pattern:    pattern,
		slugToPath: make(map[string]string),
	}

	if err := store.rebuildIndex(); err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	return store, nil
}

// rebuildIndex scans the base directory and maps slugs to relative paths.
// Unreadable or slug-less files are skipped with a warning rather than
// failing startup.
func (fs *FilesystemStore) rebuildIndex() error {
	fs.slugToPath = make(map[string]string)

	return filepath.WalkDir(fs.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		relPath, err := filepath.Rel(fs.basePath, path)
		if err != nil {
			return err
		}

		doc, err := readDocumentFile(path)
		if err != nil {
			log.Printf("warning: skipping %s during index rebuild: %v", relPath, err)
			return nil
		}

		slug, err := ExtractSlug(*doc)
		if err != nil {
			log.Printf("warning: no slug in %s during index rebuild: %v", relPath, err)
			return nil
		}

		fs.slugToPath[slug] = relPath
		return nil
	})
}

func readDocumentFile(path string) (*micropub.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc micropub.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (fs *FilesystemStore) Create(ctx context.Context, doc micropub.Document) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	slug, err := ExtractSlug(doc)
	if err != nil {
		return "", err
	}

	if _, taken := fs.slugToPath[slug]; taken {
		slug = fmt.Sprintf("%s-%s", slug, uuid.New().String()[:8])
		doc.Properties["slug"] = []any{slug}
	}

	relPath, err := fs.pattern.Generate(slug, time.Now(), "json")
	if err != nil {
		return "", err
	}

	if err := fs.writeDocument(relPath, doc); err != nil {
		return "", err
	}

	fs.slugToPath[slug] = relPath
	return fs.publicURL + slug, nil
}

func (fs *FilesystemStore) Update(ctx context.Context, url string, replacements map[string][]any, additions map[string][]any, deletions any) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	oldSlug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return url, err
	}

	relPath, ok := fs.slugToPath[oldSlug]
	if !ok {
		return url, ErrNotFound
	}

	doc, err := readDocumentFile(filepath.Join(fs.basePath, relPath))
	if err != nil {
		return url, err
	}

	applyMutations(doc, replacements, additions, deletions)

	newSlug := oldSlug
	if shouldRecomputeSlug(replacements, additions) {
		proposed, err := computeNewSlug(doc, replacements)
		if err != nil {
			return url, err
		}

		if _, taken := fs.slugToPath[proposed]; taken && proposed != oldSlug {
			proposed = fmt.Sprintf("%s-%s", proposed, uuid.New().String()[:8])
		}

		newSlug = proposed
		doc.Properties["slug"] = []any{newSlug}
	}

	if newSlug != oldSlug {
		newRelPath, err := fs.pattern.Generate(newSlug, time.Now(), "json")
		if err != nil {
			return url, err
		}

		if err := fs.writeDocument(newRelPath, *doc); err != nil {
			return url, err
		}

		if err := os.Remove(filepath.Join(fs.basePath, relPath)); err != nil {
			log.Printf("warning: failed to remove old document %s: %v", relPath, err)
		}

		delete(fs.slugToPath, oldSlug)
		fs.slugToPath[newSlug] = newRelPath
	} else {
		if err := fs.writeDocument(relPath, *doc); err != nil {
			return url, err
		}
	}

	return fs.publicURL + newSlug, nil
}

func (fs *FilesystemStore) Delete(ctx context.Context, url string) error {
	_, err := fs.setDeletedStatus(url, true)
	return err
}

func (fs *FilesystemStore) Undelete(ctx context.Context, url string) (string, bool, error) {
	newURL, err := fs.setDeletedStatus(url, false)
	return newURL, false, err
}

func (fs *FilesystemStore) Get(ctx context.Context, url string) (*micropub.Document, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return nil, err
	}

	relPath, ok := fs.slugToPath[slug]
	if !ok {
		return nil, ErrNotFound
	}

	return readDocumentFile(filepath.Join(fs.basePath, relPath))
}

func (fs *FilesystemStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, ok := fs.slugToPath[slug]
	return ok, nil
}

func (fs *FilesystemStore) setDeletedStatus(url string, deleted bool) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return url, err
	}

	relPath, ok := fs.slugToPath[slug]
	if !ok {
		return url, ErrNotFound
	}

	doc, err := readDocumentFile(filepath.Join(fs.basePath, relPath))
	if err != nil {
		return url, err
	}

	applyMutations(doc, map[string][]any{"deleted": {deleted}}, nil, nil)

	if err := fs.writeDocument(relPath, *doc); err != nil {
		return url, err
	}

	return fs.publicURL + slug, nil
}

func (fs *FilesystemStore) writeDocument(relPath string, doc micropub.Document) error {
	absPath := filepath.Join(fs.basePath, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(absPath, data, 0644)
}
