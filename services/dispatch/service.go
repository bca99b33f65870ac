// Package dispatch streams one attachment's bytes to the storage backend
// configured on the owning address. The service is stateless; every call is
// independent and side-effecting only via storage and the relational store.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/events"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/tracing"
	"github.com/vaulty/mailvault/internal/utils"
	"github.com/vaulty/mailvault/services/session"
	"github.com/vaulty/mailvault/services/storage"
)

// Error is a dispatch failure for a single attachment. It does not abort
// sibling attachments of the same email.
type Error struct {
	Op   string // "backend", "upload" or "fetch"
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("attachment %s: %s failed: %v", e.Name, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Service struct {
	addresses  interfaces.AddressRepository
	emails     interfaces.EmailRepository
	auditLog   interfaces.MailLogRepository
	newBackend storage.BackendFactory
	publisher  *events.Publisher
	log        logger.Logger
}

func NewService(
	addresses interfaces.AddressRepository,
	emails interfaces.EmailRepository,
	auditLog interfaces.MailLogRepository,
	newBackend storage.BackendFactory,
	publisher *events.Publisher,
	log logger.Logger,
) *Service {
	return &Service{
		addresses:  addresses,
		emails:     emails,
		auditLog:   auditLog,
		newBackend: newBackend,
		publisher:  publisher,
		log:        log,
	}
}

// Handle streams body to the backend configured on the session's address.
// On failure the owning email's persisted status is marked failed with the
// error detail (best-effort) and a typed Error is returned; the session
// countdown is managed by the caller and proceeds regardless.
func (s *Service) Handle(ctx context.Context, view session.View, body io.Reader, name string, size int64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DispatchService.Handle")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEmailID(span, view.Email.ID)

	recipient := view.Email.Recipient()
	tracing.TagRecipient(span, recipient)

	s.auditLog.Record(ctx, fmt.Sprintf("Got attachment for recipient %s", recipient),
		&view.Email.ID, enum.LogLevelInfo)
	s.log.Infof("Attachment name: %s, Recipient: %s, Size: %d, UUID: %s",
		name, recipient, size, view.Email.ID)

	backend, err := s.newBackend(&view.Address)
	if err != nil {
		tracing.TraceErr(span, err)
		dispatchErr := &Error{Op: "backend", Name: name, Err: err}
		s.MarkFailed(ctx, view, dispatchErr)
		return dispatchErr
	}

	dest := joinStoragePath(view.Address.StoragePath, name)

	if err := backend.UploadStream(ctx, dest, body); err != nil {
		tracing.TraceErr(span, err)
		dispatchErr := &Error{Op: "upload", Name: name, Err: err}
		s.MarkFailed(ctx, view, dispatchErr)
		return dispatchErr
	}

	// Best-effort storage accounting for the renewal period
	if err := s.addresses.AddStorageUsed(ctx, &view.Address, size); err != nil {
		s.log.Errorf("failed to update storage accounting for %s: %v", view.Address.Address, err)
	}

	return nil
}

// MarkFailed records the failure against the email's persisted status and
// publishes a failure event, both best-effort. Also used by the fetcher when
// a download fails before any upload starts.
func (s *Service) MarkFailed(ctx context.Context, view session.View, cause error) {
	s.emails.UpdateStatus(ctx, view.Email.ID, false, cause.Error())

	s.publisher.Publish(ctx, events.RoutingKeyMailFailed, events.MailEvent{
		EmailID:        view.Email.ID,
		Recipient:      view.Email.Recipient(),
		Sender:         view.Email.Sender,
		NumAttachments: view.Email.DeclaredAttachments(),
		TotalSize:      view.Email.TotalSize,
		Detail:         cause.Error(),
		OccurredAt:     utils.Now(),
	})
}

func joinStoragePath(root, name string) string {
	if root == "" {
		return name
	}
	return strings.TrimSuffix(root, "/") + "/" + name
}
