// Package media defines the uploaded-file storage contract and its strategies.
package media

import (
	"context"
	"mime/multipart"
)

// Store persists uploaded media files and serves them under public URLs.
type Store interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, url string) error
}
