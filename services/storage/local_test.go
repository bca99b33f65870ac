package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/models"
)

func TestLocal_UploadStream(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "inbox", "report.pdf")

	backend := NewLocalBackend()
	err := backend.UploadStream(context.Background(), dest, strings.NewReader("payload"))

	require.NoError(t, err)
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocal_FailedReadLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "report.pdf")

	backend := NewLocalBackend()
	err := backend.UploadStream(context.Background(), dest, failingReader{})

	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial file may exist at the destination")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, assert.AnError
}

func TestNewBackend_Selection(t *testing.T) {
	tests := []struct {
		name    string
		backend enum.StorageBackendKind
		kind    string
		wantErr bool
	}{
		{"dropbox", enum.StorageBackendDropbox, "dropbox", false},
		{"local", enum.StorageBackendLocal, "local", false},
		{"unknown", enum.StorageBackendKind("ftp"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address := &models.Address{
				StorageBackend: tt.backend,
				StorageToken:   "token",
			}

			backend, err := NewBackend(address)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, backend.Kind())
		})
	}
}
