package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulty/mailvault/dto"
	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/services/dispatch"
	"github.com/vaulty/mailvault/services/session"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeBackend struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeBackend) Kind() string { return "fake" }

func (f *fakeBackend) UploadStream(ctx context.Context, path string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return nil
}

type noopAddressRepo struct{}

func (noopAddressRepo) GetFirstMatch(ctx context.Context, candidates []string) (*models.Address, error) {
	return nil, nil
}

func (noopAddressRepo) IncrementReceived(ctx context.Context, address *models.Address) error {
	return nil
}

func (noopAddressRepo) AddStorageUsed(ctx context.Context, address *models.Address, size int64) error {
	return nil
}

func (noopAddressRepo) RenewExpiredQuotas(ctx context.Context) (int64, error) { return 0, nil }

type noopEmailRepo struct{}

func (noopEmailRepo) Create(ctx context.Context, email *models.Email) error { return nil }

func (noopEmailRepo) GetByID(ctx context.Context, id string) (*models.Email, error) {
	return nil, nil
}

func (noopEmailRepo) UpdateStatus(ctx context.Context, emailID string, success bool, message string) {
}

type noopMailLog struct{}

func (noopMailLog) Record(ctx context.Context, message string, emailID *string, level enum.LogLevel) {
}

func newTestFetcher(apiKey string, timeout time.Duration) (*Fetcher, *fakeBackend) {
	backend := &fakeBackend{}
	factory := func(address *models.Address) (interfaces.StorageBackend, error) {
		return backend, nil
	}
	dispatcher := dispatch.NewService(noopAddressRepo{}, noopEmailRepo{}, noopMailLog{}, factory, nil, getLogger())
	return NewFetcher(apiKey, 2, timeout, dispatcher, getLogger()), backend
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

func TestFetchAndDispatch_AllAttachments(t *testing.T) {
	var mu sync.Mutex
	authHeaders := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		mu.Lock()
		authHeaders[r.URL.Path] = user
		mu.Unlock()
		w.Write([]byte("content-" + r.URL.Path))
	}))
	defer srv.Close()

	fetcher, backend := newTestFetcher("secret-key", time.Second)

	descriptors := []dto.AttachmentDescriptor{
		{Name: "a.txt", URL: srv.URL + "/a", Size: 10},
		{Name: "b.txt", URL: srv.URL + "/b", Size: 20},
		{Name: "c.txt", URL: srv.URL + "/c", Size: 30},
	}

	err := fetcher.FetchAndDispatch(context.Background(), testView(), descriptors)

	require.NoError(t, err)
	sort.Strings(backend.paths)
	assert.Equal(t, []string{
		"/vaulty/user/a.txt",
		"/vaulty/user/b.txt",
		"/vaulty/user/c.txt",
	}, backend.paths)
	// Provider auth is basic auth with user "api"
	assert.Equal(t, "api", authHeaders["/a"])
}

func TestFetchAndDispatch_NoAuthWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	fetcher, _ := newTestFetcher("", time.Second)

	err := fetcher.FetchAndDispatch(context.Background(), testView(),
		[]dto.AttachmentDescriptor{{Name: "a.txt", URL: srv.URL + "/a", Size: 1}})

	require.NoError(t, err)
}

func TestFetchAndDispatch_OneFailureFailsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	fetcher, _ := newTestFetcher("", time.Second)

	descriptors := []dto.AttachmentDescriptor{
		{Name: "good.txt", URL: srv.URL + "/good", Size: 1},
		{Name: "bad.txt", URL: srv.URL + "/bad", Size: 1},
	}

	err := fetcher.FetchAndDispatch(context.Background(), testView(), descriptors)

	require.Error(t, err)
	var dispatchErr *dispatch.Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "fetch", dispatchErr.Op)
	assert.Equal(t, "bad.txt", dispatchErr.Name)
}

func TestFetchAndDispatch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	fetcher, _ := newTestFetcher("", 50*time.Millisecond)

	err := fetcher.FetchAndDispatch(context.Background(), testView(),
		[]dto.AttachmentDescriptor{{Name: "slow.txt", URL: srv.URL + "/slow", Size: 1}})

	require.Error(t, err)
}

func TestNewFetcher_Defaults(t *testing.T) {
	fetcher, _ := newTestFetcher("", time.Second)
	assert.NotNil(t, fetcher)

	defaulted := NewFetcher("", 0, 0, nil, getLogger())
	assert.Equal(t, DefaultConcurrency, defaulted.concurrency)
	assert.Equal(t, DefaultFetchTimeout, defaulted.fetchTimeout)
}
