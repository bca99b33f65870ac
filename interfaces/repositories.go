package interfaces

import (
	"context"

	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/models"
)

// AddressRepository is the single source of truth for admission decisions.
type AddressRepository interface {
	// GetFirstMatch resolves the first candidate that exists as an active
	// address. Returns nil when none resolve.
	GetFirstMatch(ctx context.Context, candidates []string) (*models.Address, error)
	// IncrementReceived bumps the received counter by one. Called at most
	// once per accepted email.
	IncrementReceived(ctx context.Context, address *models.Address) error
	// AddStorageUsed adds size bytes to the address's storage accounting.
	AddStorageUsed(ctx context.Context, address *models.Address, size int64) error
	// RenewExpiredQuotas resets counters for addresses whose renewal period
	// has elapsed and returns the number of rows renewed.
	RenewExpiredQuotas(ctx context.Context) (int64, error)
}

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	// UpdateStatus is best-effort: failures are logged, never propagated.
	UpdateStatus(ctx context.Context, emailID string, success bool, message string)
}

// MailLogRepository is the append-only audit log. Record is fire-and-forget.
type MailLogRepository interface {
	Record(ctx context.Context, message string, emailID *string, level enum.LogLevel)
}
