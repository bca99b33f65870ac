package interfaces

import (
	"context"
	"io"
)

// StorageBackend durably writes a named byte stream to a backend-specific
// path. Instances are cheap, bound to one address's credential and root path
// at construction, and never shared across unrelated requests.
type StorageBackend interface {
	// UploadStream writes body to path without materializing the whole
	// payload in memory. A mid-stream write failure is returned as an
	// error; partial remote state is never reported as success.
	UploadStream(ctx context.Context, path string, body io.Reader) error
	Kind() string
}
