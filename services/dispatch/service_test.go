package dispatch

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/services/session"
	"github.com/vaulty/mailvault/services/storage"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
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

type fakeAddressRepo struct {
	storageAdds []int64
}

func (f *fakeAddressRepo) GetFirstMatch(ctx context.Context, candidates []string) (*models.Address, error) {
	return nil, nil
}

func (f *fakeAddressRepo) IncrementReceived(ctx context.Context, address *models.Address) error {
	return nil
}

func (f *fakeAddressRepo) AddStorageUsed(ctx context.Context, address *models.Address, size int64) error {
	f.storageAdds = append(f.storageAdds, size)
	return nil
}

func (f *fakeAddressRepo) RenewExpiredQuotas(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeEmailRepo struct {
	statusUpdates []string
	lastSuccess   bool
}

func (f *fakeEmailRepo) Create(ctx context.Context, email *models.Email) error { return nil }

func (f *fakeEmailRepo) GetByID(ctx context.Context, id string) (*models.Email, error) {
	return nil, nil
}

func (f *fakeEmailRepo) UpdateStatus(ctx context.Context, emailID string, success bool, message string) {
	f.statusUpdates = append(f.statusUpdates, message)
	f.lastSuccess = success
}

type fakeMailLog struct {
	messages []string
}

func (f *fakeMailLog) Record(ctx context.Context, message string, emailID *string, level enum.LogLevel) {
	f.messages = append(f.messages, message)
}

func testView() session.View {
	return session.View{
		Email: models.Email{
			ID:         "8a7b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d",
			Sender:     "sender@example.com",
			Recipients: pq.StringArray{"user@vaulty.test"},
		},
		Address: models.Address{
			ID:          "addr_test",
			Address:     "user@vaulty.test",
			StoragePath: "/vaulty/user",
		},
	}
}

type fixture struct {
	backend   *fakeBackend
	factory   storage.BackendFactory
	addresses *fakeAddressRepo
	emails    *fakeEmailRepo
	auditLog  *fakeMailLog
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{
		backend:   &fakeBackend{},
		addresses: &fakeAddressRepo{},
		emails:    &fakeEmailRepo{},
		auditLog:  &fakeMailLog{},
	}
	f.factory = func(address *models.Address) (interfaces.StorageBackend, error) {
		return f.backend, nil
	}
	f.service = NewService(f.addresses, f.emails, f.auditLog, f.factory, nil, getLogger())
	return f
}

func TestHandle_UploadsToStoragePath(t *testing.T) {
	f := newFixture()

	err := f.service.Handle(context.Background(), testView(), strings.NewReader("payload"), "report.pdf", 7)

	require.NoError(t, err)
	require.Len(t, f.backend.paths, 1)
	assert.Equal(t, "/vaulty/user/report.pdf", f.backend.paths[0])
	assert.Equal(t, "payload", f.backend.bodies[0])

	// Storage accounting and audit trail
	assert.Equal(t, []int64{7}, f.addresses.storageAdds)
	require.Len(t, f.auditLog.messages, 1)
	assert.Contains(t, f.auditLog.messages[0], "user@vaulty.test")
	assert.Empty(t, f.emails.statusUpdates)
}

func TestHandle_EmptyStoragePath(t *testing.T) {
	f := newFixture()
	view := testView()
	view.Address.StoragePath = ""

	err := f.service.Handle(context.Background(), view, strings.NewReader("x"), "a.txt", 1)

	require.NoError(t, err)
	assert.Equal(t, "a.txt", f.backend.paths[0])
}

func TestHandle_UploadFailureMarksEmailFailed(t *testing.T) {
	f := newFixture()
	f.backend.err = &storage.Error{Kind: storage.ErrorKindRateLimited, Backend: "fake"}

	err := f.service.Handle(context.Background(), testView(), strings.NewReader("x"), "a.txt", 1)

	require.Error(t, err)
	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "upload", dispatchErr.Op)
	assert.Equal(t, "a.txt", dispatchErr.Name)

	require.Len(t, f.emails.statusUpdates, 1)
	assert.False(t, f.emails.lastSuccess)
	assert.Empty(t, f.addresses.storageAdds, "failed upload must not count against storage")
}

func TestHandle_BackendConstructionFailure(t *testing.T) {
	f := newFixture()
	f.factory = func(address *models.Address) (interfaces.StorageBackend, error) {
		return nil, errors.New("unknown backend")
	}
	f.service = NewService(f.addresses, f.emails, f.auditLog, f.factory, nil, getLogger())

	err := f.service.Handle(context.Background(), testView(), strings.NewReader("x"), "a.txt", 1)

	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "backend", dispatchErr.Op)
	require.Len(t, f.emails.statusUpdates, 1)
	assert.False(t, f.emails.lastSuccess)
}
