package handlers

import (
	"context"
	"io"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/services/admission"
	"github.com/vaulty/mailvault/services/dispatch"
	"github.com/vaulty/mailvault/services/session"
)

// Shared in-memory fakes for handler tests.

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeAddressRepo struct {
	address *models.Address
}

func (f *fakeAddressRepo) GetFirstMatch(ctx context.Context, candidates []string) (*models.Address, error) {
	if f.address == nil {
		return nil, nil
	}
	for _, c := range candidates {
		if c == f.address.Address {
			return f.address, nil
		}
	}
	return nil, nil
}

func (f *fakeAddressRepo) IncrementReceived(ctx context.Context, address *models.Address) error {
	address.Received++
	return nil
}

func (f *fakeAddressRepo) AddStorageUsed(ctx context.Context, address *models.Address, size int64) error {
	return nil
}

func (f *fakeAddressRepo) RenewExpiredQuotas(ctx context.Context) (int64, error) { return 0, nil }

type fakeEmailRepo struct {
	created       []*models.Email
	statusUpdates []string
}

func (f *fakeEmailRepo) Create(ctx context.Context, email *models.Email) error {
	f.created = append(f.created, email)
	return nil
}

func (f *fakeEmailRepo) GetByID(ctx context.Context, id string) (*models.Email, error) {
	return nil, nil
}

func (f *fakeEmailRepo) UpdateStatus(ctx context.Context, emailID string, success bool, message string) {
	f.statusUpdates = append(f.statusUpdates, message)
}

type fakeMailLog struct{}

func (fakeMailLog) Record(ctx context.Context, message string, emailID *string, level enum.LogLevel) {
}

type fakeBackend struct {
	paths  []string
	bodies []string
	err    error
}

func (f *fakeBackend) Kind() string { return "fake" }

func (f *fakeBackend) UploadStream(ctx context.Context, path string, body io.Reader) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	f.bodies = append(f.bodies, string(content))
	return f.err
}

type testEnv struct {
	addresses *fakeAddressRepo
	emails    *fakeEmailRepo
	backend   *fakeBackend
	sessions  *session.Cache
	admission *admission.Service
	dispatch  *dispatch.Service
}

func newTestEnv(address *models.Address) *testEnv {
	env := &testEnv{
		addresses: &fakeAddressRepo{address: address},
		emails:    &fakeEmailRepo{},
		backend:   &fakeBackend{},
		sessions:  session.NewCache(),
	}

	log := getLogger()
	env.admission = admission.NewService(env.addresses, env.emails, fakeMailLog{}, env.sessions, nil, log)
	env.dispatch = dispatch.NewService(env.addresses, env.emails, fakeMailLog{},
		func(address *models.Address) (interfaces.StorageBackend, error) {
			return env.backend, nil
		}, nil, log)

	return env
}

func provisionedAddress() *models.Address {
	return &models.Address{
		ID:           "addr_test",
		Address:      "user@vaulty.test",
		IsActive:     true,
		MaxEmailSize: 10_000_000,
		Quota:        100,
		StoragePath:  "/vaulty/user",
	}
}
