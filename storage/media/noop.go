package media

import (
	"context"
	"log"
	"mime/multipart"
)

// NoopStore logs uploads and fabricates URLs so the server can run without a
// real backend.
type NoopStore struct{}

func (ms *NoopStore) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	log.Printf("noop media store: upload filename=%v size=%v", header.Filename, header.Size)
	return "https://noop.example.org/noop", nil
}

func (ms *NoopStore) Delete(ctx context.Context, url string) error {
	log.Printf("noop media store: delete url=%v", url)
	return nil
}
