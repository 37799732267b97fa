// Package content defines the post storage contract and its strategies.
package content

import (
	"context"
	"errors"

	"github.com/indieinfra/quill/micropub"
)

// ErrNotFound indicates that a content document was not found.
var ErrNotFound = errors.New("content not found")

// Store persists canonical micropub documents. Implementations are selected
// by the configured content strategy.
type Store interface {
	// Create stores a new document and returns the URL where it can be
	// located. The document is expected to carry a slug property.
	Create(ctx context.Context, doc micropub.Document) (string, error)

	// Update applies change sets to an existing document and returns the
	// URL it lives at afterwards, which may differ from the input when the
	// slug was recomputed.
	Update(ctx context.Context, url string, replacements map[string][]any, additions map[string][]any, deletions any) (string, error)

	// Delete marks an existing document deleted. It is up to the consumer
	// to stop displaying deleted documents.
	Delete(ctx context.Context, url string) error

	// Undelete clears a document's deleted mark. The boolean reports
	// whether the document came back under a new URL.
	Undelete(ctx context.Context, url string) (string, bool, error)

	// Get returns the document published at the given URL.
	Get(ctx context.Context, url string) (*micropub.Document, error)

	// ExistsBySlug reports whether a document exists under the given slug.
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}
