package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
)

// localBackend writes attachments to the local filesystem. Intended for
// development and tests; the destination path is used as a filesystem path.
type localBackend struct{}

func NewLocalBackend() interfaces.StorageBackend {
	return &localBackend{}
}

func (l *localBackend) Kind() string {
	return enum.StorageBackendLocal.String()
}

func (l *localBackend) UploadStream(ctx context.Context, path string, body io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Kind: ErrorKindBadInput, Backend: l.Kind(), Err: err}
	}

	// Write to a temp file first so a mid-stream failure never leaves a
	// half-written file at the destination.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return &Error{Kind: ErrorKindInternal, Backend: l.Kind(), Err: err}
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &Error{Kind: ErrorKindInternal, Backend: l.Kind(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &Error{Kind: ErrorKindInternal, Backend: l.Kind(), Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &Error{Kind: ErrorKindPathConflict, Backend: l.Kind(), Err: err}
	}
	return nil
}
