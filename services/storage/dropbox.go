package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
)

const (
	dropboxArgHeader   = "Dropbox-API-Arg"
	dropboxContentBase = "https://content.dropboxapi.com/2/"
)

type dropboxBackend struct {
	token      string
	contentURL string
	httpClient *http.Client
}

// NewDropboxBackend returns a backend bound to one address's OAuth token.
func NewDropboxBackend(token string) interfaces.StorageBackend {
	return &dropboxBackend{
		token:      token,
		contentURL: dropboxContentBase,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (d *dropboxBackend) Kind() string {
	return enum.StorageBackendDropbox.String()
}

type dropboxUploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

func (d *dropboxBackend) UploadStream(ctx context.Context, path string, body io.Reader) error {
	arg, err := json.Marshal(dropboxUploadArg{
		Path:       path,
		Mode:       "add",
		Autorename: true,
		Mute:       true,
	})
	if err != nil {
		return &Error{Kind: ErrorKindBadInput, Backend: d.Kind(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.contentURL+"files/upload", body)
	if err != nil {
		return &Error{Kind: ErrorKindBadInput, Backend: d.Kind(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(dropboxArgHeader, string(arg))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: ErrorKindInternal, Backend: d.Kind(), Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return d.mapStatus(resp.StatusCode)
}

// mapStatus maps provider status codes onto the common taxonomy.
func (d *dropboxBackend) mapStatus(status int) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return &Error{Kind: ErrorKindBadInput, Backend: d.Kind(), Status: status}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: ErrorKindCredentialExpired, Backend: d.Kind(), Status: status}
	case http.StatusConflict:
		return &Error{Kind: ErrorKindPathConflict, Backend: d.Kind(), Status: status}
	case http.StatusTooManyRequests:
		return &Error{Kind: ErrorKindRateLimited, Backend: d.Kind(), Status: status}
	default:
		return &Error{Kind: ErrorKindInternal, Backend: d.Kind(), Status: status}
	}
}
