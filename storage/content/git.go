package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/transport"
	githttp "github.com/go-git/go-git/v6/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v6/plumbing/transport/ssh"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/micropub"
	storageutil "github.com/indieinfra/quill/storage/util"
)

// GitStore keeps documents as JSON files in a remote git repository. Every
// mutation is a commit pushed to the remote; the local clone lives in a
// temporary directory and is re-cloned when it diverges irrecoverably.
type GitStore struct {
	cfg       *config.GitContentStrategy
	auth      transport.AuthMethod
	repo      *git.Repository
	tmpDir    string
	branch    string
	publicURL string
	mu        sync.Mutex
}

func NewGitStore(cfg *config.GitContentStrategy) (*GitStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("git content config is nil")
	}

	auth, err := buildGitAuth(cfg)
	if err != nil {
		return nil, err
	}

	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	tmpDir, repo, err := freshClone(cfg, auth)
	if err != nil {
		return nil, err
	}

	return &GitStore{
		cfg:       cfg,
		auth:      auth,
		repo:      repo,
		tmpDir:    tmpDir,
		branch:    branch,
		publicURL: storageutil.NormalizeBaseURL(cfg.PublicUrl),
	}, nil
}

func buildGitAuth(cfg *config.GitContentStrategy) (transport.AuthMethod, error) {
	switch cfg.Auth.Method {
	case "plain":
		return &githttp.BasicAuth{
			Username: cfg.Auth.Plain.Username,
			Password: cfg.Auth.Plain.Password,
		}, nil
	case "ssh":
		keys, err := gitssh.NewPublicKeysFromFile(cfg.Auth.Ssh.Username, cfg.Auth.Ssh.PrivateKeyFilePath, cfg.Auth.Ssh.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare git ssh authentication: %w", err)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("invalid git authentication method %q", cfg.Auth.Method)
	}
}

func freshClone(cfg *config.GitContentStrategy, auth transport.AuthMethod) (string, *git.Repository, error) {
	tmpDir, err := os.MkdirTemp("", "quill-*")
	if err != nil {
		return "", nil, err
	}

	repo, err := git.PlainClone(tmpDir, &git.CloneOptions{
		URL:  cfg.Repository,
		Auth: auth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", nil, err
	}

	return tmpDir, repo, nil
}

// Cleanup removes the cloned repository directory. Call on shutdown.
func (cs *GitStore) Cleanup() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.tmpDir == "" {
		return nil
	}

	if err := os.RemoveAll(cs.tmpDir); err != nil {
		return fmt.Errorf("failed to cleanup git content store: %w", err)
	}

	cs.tmpDir = ""
	return nil
}

func (cs *GitStore) reinit() {
	os.RemoveAll(cs.tmpDir)

	tmpDir, repo, err := freshClone(cs.cfg, cs.auth)
	if err != nil {
		return
	}

	cs.tmpDir = tmpDir
	cs.repo = repo
}

// syncRemote fetches the remote branch and hard-resets the local clone onto
// it, re-cloning on persistent failure. Must be called with the lock held.
func (cs *GitStore) syncRemote(ctx context.Context) error {
	var lastErr error

	for range 3 {
		if err := cs.repo.FetchContext(ctx, &git.FetchOptions{Auth: cs.auth}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			lastErr = err
			cs.reinit()
			continue
		}

		remoteRef, err := cs.repo.Reference(plumbing.NewRemoteReferenceName("origin", cs.branch), true)
		if err != nil {
			lastErr = err
			cs.reinit()
			continue
		}

		localRef, err := cs.repo.Reference(plumbing.NewBranchReferenceName(cs.branch), true)
		if err != nil {
			lastErr = err
			cs.reinit()
			continue
		}

		if localRef.Hash() == remoteRef.Hash() {
			return nil
		}

		if err := cs.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(cs.branch), remoteRef.Hash())); err != nil {
			lastErr = err
			cs.reinit()
			continue
		}

		wt, err := cs.repo.Worktree()
		if err != nil {
			lastErr = err
			cs.reinit()
			continue
		}

		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: remoteRef.Hash()}); err != nil {
			lastErr = err
			cs.reinit()
			continue
		}

		return nil
	}

	return fmt.Errorf("could not sync with remote after 3 attempts: %w", lastErr)
}

func (cs *GitStore) relPath(slug string) string {
	return filepath.Join(cs.cfg.Path, slug+".json")
}

func (cs *GitStore) readDocumentBySlug(slug string) (*micropub.Document, error) {
	data, err := os.ReadFile(filepath.Join(cs.tmpDir, cs.relPath(slug)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var doc micropub.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (cs *GitStore) writeDocumentBySlug(slug string, doc micropub.Document) error {
	fullPath := filepath.Join(cs.tmpDir, cs.relPath(slug))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fullPath, data, 0644)
}

// commitAndPush stages the given paths (adds first, then removals), commits
// with the given message and pushes to the remote.
func (cs *GitStore) commitAndPush(ctx context.Context, message string, adds []string, removes []string) error {
	wt, err := cs.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, path := range adds {
		if _, err := wt.Add(path); err != nil {
			return fmt.Errorf("failed to stage %s: %w", path, err)
		}
	}

	for _, path := range removes {
		if _, err := wt.Remove(path); err != nil {
			return fmt.Errorf("failed to stage removal of %s: %w", path, err)
		}
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "quill",
			Email: "quill@local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create commit: %w", err)
	}

	if err := cs.repo.PushContext(ctx, &git.PushOptions{Auth: cs.auth}); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}

func (cs *GitStore) Create(ctx context.Context, doc micropub.Document) (string, error) {
	slug, err := ExtractSlug(doc)
	if err != nil {
		return "", err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.syncRemote(ctx); err != nil {
		return "", err
	}

	if err := cs.writeDocumentBySlug(slug, doc); err != nil {
		return "", err
	}

	message := fmt.Sprintf("quill(add): create content entry: %v", slug)
	if err := cs.commitAndPush(ctx, message, []string{cs.relPath(slug)}, nil); err != nil {
		return "", err
	}

	return cs.publicURL + slug, nil
}

func (cs *GitStore) Update(ctx context.Context, url string, replacements map[string][]any, additions map[string][]any, deletions any) (string, error) {
	oldSlug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return url, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.syncRemote(ctx); err != nil {
		return url, err
	}

	doc, err := cs.readDocumentBySlug(oldSlug)
	if err != nil {
		return url, err
	}

	applyMutations(doc, replacements, additions, deletions)

	newSlug := oldSlug
	if shouldRecomputeSlug(replacements, additions) {
		newSlug, err = computeNewSlug(doc, replacements)
		if err != nil {
			return url, err
		}
		doc.Properties["slug"] = []any{newSlug}
	}

	if err := cs.writeDocumentBySlug(newSlug, *doc); err != nil {
		return url, err
	}

	if newSlug != oldSlug {
		if err := os.Remove(filepath.Join(cs.tmpDir, cs.relPath(oldSlug))); err != nil {
			return url, fmt.Errorf("failed to remove old file: %w", err)
		}

		message := fmt.Sprintf("quill(update): rename %v to %v", oldSlug, newSlug)
		if err := cs.commitAndPush(ctx, message, []string{cs.relPath(newSlug)}, []string{cs.relPath(oldSlug)}); err != nil {
			return url, err
		}
	} else {
		message := fmt.Sprintf("quill(update): update content entry: %v", oldSlug)
		if err := cs.commitAndPush(ctx, message, []string{cs.relPath(oldSlug)}, nil); err != nil {
			return url, err
		}
	}

	return cs.publicURL + newSlug, nil
}

func (cs *GitStore) Delete(ctx context.Context, url string) error {
	_, err := cs.setDeletedStatus(ctx, url, true)
	return err
}

func (cs *GitStore) Undelete(ctx context.Context, url string) (string, bool, error) {
	newURL, err := cs.setDeletedStatus(ctx, url, false)
	return newURL, false, err
}

func (cs *GitStore) setDeletedStatus(ctx context.Context, url string, deleted bool) (string, error) {
	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return url, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.syncRemote(ctx); err != nil {
		return url, err
	}

	doc, err := cs.readDocumentBySlug(slug)
	if err != nil {
		return url, err
	}

	applyMutations(doc, map[string][]any{"deleted": {deleted}}, nil, nil)

	if err := cs.writeDocumentBySlug(slug, *doc); err != nil {
		return url, err
	}

	verb := "delete"
	if !deleted {
		verb = "undelete"
	}

	message := fmt.Sprintf("quill(%s): %s content entry: %v", verb, verb, slug)
	if err := cs.commitAndPush(ctx, message, []string{cs.relPath(slug)}, nil); err != nil {
		return url, err
	}

	return cs.publicURL + slug, nil
}

func (cs *GitStore) Get(ctx context.Context, url string) (*micropub.Document, error) {
	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.syncRemote(ctx); err != nil {
		return nil, err
	}

	return cs.readDocumentBySlug(slug)
}

func (cs *GitStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, err := os.Stat(filepath.Join(cs.tmpDir, cs.relPath(slug))); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
