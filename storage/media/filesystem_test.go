package media

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/indieinfra/quill/config"
)

// uploadedFile builds a multipart.File and header the way a request parser
// would hand them over.
func uploadedFile(t *testing.T, filename, content string) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("failed to parse multipart form: %v", err)
	}

	header := req.MultipartForm.File["file"][0]
	file, err := header.Open()
	if err != nil {
		t.Fatalf("failed to open file: %v", err)
	}
	t.Cleanup(func() { file.Close() })

	return file, header
}

func newTestFilesystemStore(t *testing.T) (*FilesystemStore, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewFilesystemStore(&config.FilesystemMediaStrategy{
		Path:      dir,
		PublicUrl: "https://media.example.org",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	return store, dir
}

func TestFilesystemStoreUpload(t *testing.T) {
	store, dir := newTestFilesystemStore(t)

	file, header := uploadedFile(t, "photo.jpg", "fake image bytes")

	url, err := store.Upload(context.Background(), file, header)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if !strings.HasPrefix(url, "https://media.example.org/") || !strings.HasSuffix(url, "photo.jpg") {
		t.Fatalf("unexpected url: %q", url)
	}

	relPath := strings.TrimPrefix(url, "https://media.example.org/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(relPath)))
	if err != nil {
		t.Fatalf("uploaded file not on disk: %v", err)
	}

	if string(data) != "fake image bytes" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func TestFilesystemStoreUploadCollision(t *testing.T) {
	store, _ := newTestFilesystemStore(t)

	file1, header1 := uploadedFile(t, "photo.jpg", "first")
	url1, err := store.Upload(context.Background(), file1, header1)
	if err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	file2, header2 := uploadedFile(t, "photo.jpg", "second")
	url2, err := store.Upload(context.Background(), file2, header2)
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	if url1 == url2 {
		t.Fatalf("expected distinct urls for colliding filenames, got %q twice", url1)
	}
}

func TestFilesystemStoreDelete(t *testing.T) {
	store, dir := newTestFilesystemStore(t)

	file, header := uploadedFile(t, "photo.jpg", "bytes")
	url, err := store.Upload(context.Background(), file, header)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if err := store.Delete(context.Background(), url); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	relPath := strings.TrimPrefix(url, "https://media.example.org/")
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(relPath))); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, stat err=%v", err)
	}

	// Deleting again is not an error.
	if err := store.Delete(context.Background(), url); err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
}

func TestFilesystemStoreDeleteForeignURL(t *testing.T) {
	store, _ := newTestFilesystemStore(t)

	if err := store.Delete(context.Background(), "https://other.example.org/file.jpg"); err == nil {
		t.Fatalf("expected error for url outside the public prefix")
	}
}
