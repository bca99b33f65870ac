// Package storage provides the pluggable backends attachments are offloaded
// to. A backend instance is bound to one address's credential token at
// construction and is short-lived; selection happens per request from the
// address's persisted storage_backend field.
package storage

import (
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/models"
)

// BackendFactory builds a StorageBackend for one address. The dispatcher
// takes this as a dependency so tests can substitute a fake.
type BackendFactory func(address *models.Address) (interfaces.StorageBackend, error)

// NewBackend selects and constructs the backend configured on the address.
func NewBackend(address *models.Address) (interfaces.StorageBackend, error) {
	switch address.StorageBackend {
	case enum.StorageBackendDropbox:
		return NewDropboxBackend(address.StorageToken), nil
	case enum.StorageBackendS3:
		return NewS3Backend(address.StorageToken)
	case enum.StorageBackendR2:
		return NewR2Backend(address.StorageToken)
	case enum.StorageBackendLocal:
		return NewLocalBackend(), nil
	default:
		return nil, &Error{
			Kind:    ErrorKindBadInput,
			Backend: address.StorageBackend.String(),
			Err:     errors.Errorf("unknown storage backend %q", address.StorageBackend),
		}
	}
}
