package content

import (
	"context"
	"log"

	"github.com/indieinfra/quill/micropub"
)

// NoopStore logs every operation and fabricates answers. It exists so the
// server can run end to end without a real backend.
type NoopStore struct{}

func (cs *NoopStore) Create(ctx context.Context, doc micropub.Document) (string, error) {
	log.Printf("noop content store: create type=%v properties=%v", doc.Type, doc.Properties)
	return "https://noop.example.org/noop", nil
}

func (cs *NoopStore) Update(ctx context.Context, url string, replacements map[string][]any, additions map[string][]any, deletions any) (string, error) {
	log.Printf("noop content store: update url=%v replace=%v add=%v delete=%v", url, replacements, additions, deletions)
	return url, nil
}

func (cs *NoopStore) Delete(ctx context.Context, url string) error {
	log.Printf("noop content store: delete url=%v", url)
	return nil
}

func (cs *NoopStore) Undelete(ctx context.Context, url string) (string, bool, error) {
	log.Printf("noop content store: undelete url=%v", url)
	return url, false, nil
}

func (cs *NoopStore) Get(ctx context.Context, url string) (*micropub.Document, error) {
	log.Printf("noop content store: get url=%v", url)
	return &micropub.Document{
		Type: []string{"h-entry"},
		Properties: map[string][]any{
			"name":    {"This is a bogus title"},
			"content": {"This is bogus content"},
			"url":     {url},
		},
	}, nil
}

func (cs *NoopStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	log.Printf("noop content store: exists-by-slug slug=%v", slug)
	return false, nil
}
