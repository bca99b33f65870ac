// Package admission decides whether an inbound email is accepted for
// processing: recipient resolution, sender whitelisting, size and quota
// limits, and the persistence side effects each decision carries.
package admission

import (
	"context"
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/events"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/internal/tracing"
	"github.com/vaulty/mailvault/internal/utils"
	"github.com/vaulty/mailvault/services/session"
)

// Decision is the outcome of admitting one email. Every rejection already
// carries its own logging and persistence side effects; callers only
// translate the decision into a protocol-level response.
type Decision struct {
	Accepted       bool
	SessionCreated bool
	Reason         enum.RejectReason
	Detail         string

	// Address is the resolved recipient record, set only on acceptance.
	// The pull-model path needs it to dispatch without a session.
	Address *models.Address
}

func accepted(sessionCreated bool, address *models.Address) Decision {
	return Decision{Accepted: true, SessionCreated: sessionCreated, Address: address}
}

func rejected(reason enum.RejectReason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

type Service struct {
	addresses interfaces.AddressRepository
	emails    interfaces.EmailRepository
	auditLog  interfaces.MailLogRepository
	sessions  *session.Cache
	publisher *events.Publisher
	log       logger.Logger
}

func NewService(
	addresses interfaces.AddressRepository,
	emails interfaces.EmailRepository,
	auditLog interfaces.MailLogRepository,
	sessions *session.Cache,
	publisher *events.Publisher,
	log logger.Logger,
) *Service {
	return &Service{
		addresses: addresses,
		emails:    emails,
		auditLog:  auditLog,
		sessions:  sessions,
		publisher: publisher,
		log:       log,
	}
}

// Admit validates email against the address directory and persists the
// outcome. On acceptance the email's recipient list is narrowed to the one
// resolved address and the received counter is incremented exactly once.
// withSession controls whether a session is registered for pending
// attachments; the pull-model source resolves all parts locally and passes
// false.
func (s *Service) Admit(ctx context.Context, email *models.Email, withSession bool) Decision {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AdmissionService.Admit")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEmailID(span, email.ID)

	// Resolve the first recipient that exists in the address directory
	address, err := s.addresses.GetFirstMatch(ctx, email.Recipients)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to resolve recipients for %s: %v", email.MessageIDOrFallback(), err)
		return rejected(enum.RejectReasonPersistenceFailure, err.Error())
	}

	if address == nil {
		// No email row exists yet, so the audit entry is keyed by the
		// upstream message id to at least help with user queries.
		msg := fmt.Sprintf("Rejecting email message_id: %s, from: %s, to: %s",
			email.MessageIDOrFallback(), email.Sender, strings.Join(email.Recipients, ", "))
		s.log.Warn(msg)
		s.auditLog.Record(ctx, msg, nil, enum.LogLevelWarning)
		return rejected(enum.RejectReasonInvalidRecipient, msg)
	}

	// Narrow the recipient list to the single resolved address
	email.Recipients = pq.StringArray{address.Address}
	tracing.TagRecipient(span, address.Address)

	if !s.isSenderAllowed(email.Sender, address) {
		s.log.Warnf("Rejecting email %s due to non-whitelisted sender", email.MessageIDOrFallback())
		return rejected(enum.RejectReasonSenderNotWhitelisted,
			fmt.Sprintf("sender %s is not whitelisted for %s", email.Sender, address.Address))
	}

	// Persist the email row; unlike audit logging this failure is surfaced
	if err := s.emails.Create(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to persist email %s: %v", email.MessageIDOrFallback(), err)
		return rejected(enum.RejectReasonPersistenceFailure, err.Error())
	}

	// Size and quota are independent limits; size takes precedence when
	// both are exceeded.
	sizeExceeded := email.TotalSize > address.MaxEmailSize
	quotaExceeded := address.Received+1 > address.Quota

	if sizeExceeded || quotaExceeded {
		var msg string
		var reason enum.RejectReason
		if sizeExceeded {
			msg = fmt.Sprintf("This email is larger than allowed for %s: maximum email size is %.2f MB.",
				address.Address, float64(address.MaxEmailSize)/1e6)
			reason = enum.RejectReasonSizeExceeded
		} else {
			msg = fmt.Sprintf("Address %s has hit its quota of %d emails for this period.",
				address.Address, address.Quota)
			reason = enum.RejectReasonQuotaExceeded
		}

		s.log.Warn(msg)
		s.auditLog.Record(ctx, msg, &email.ID, enum.LogLevelWarning)
		s.emails.UpdateStatus(ctx, email.ID, false, msg)
		return rejected(reason, msg)
	}

	// Increment the received counter; never report success without a
	// durable increment. Insert and increment are not transactional: a
	// crash between them under-counts quota, an accepted gap.
	if err := s.addresses.IncrementReceived(ctx, address); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to increment received count for %s: %v", address.Address, err)
		s.emails.UpdateStatus(ctx, email.ID, false, err.Error())
		return rejected(enum.RejectReasonPersistenceFailure, err.Error())
	}

	msg := fmt.Sprintf("Got email for recipient %s", address.Address)
	s.log.Info(msg)
	s.auditLog.Record(ctx, msg, &email.ID, enum.LogLevelInfo)

	s.publisher.Publish(ctx, events.RoutingKeyMailAccepted, events.MailEvent{
		EmailID:        email.ID,
		Recipient:      address.Address,
		Sender:         email.Sender,
		NumAttachments: email.DeclaredAttachments(),
		TotalSize:      email.TotalSize,
		OccurredAt:     utils.Now(),
	})

	sessionCreated := false
	if withSession && email.DeclaredAttachments() > 0 {
		s.log.Infof("Creating cache entry for %s", email.ID)
		s.sessions.Register(email.ID, *email, *address)
		sessionCreated = true
	}

	return accepted(sessionCreated, address)
}

// isSenderAllowed folds sender syntax validation into the whitelist check:
// a sender that does not parse as an email address can never be whitelisted.
func (s *Service) isSenderAllowed(sender string, address *models.Address) bool {
	validation := mailvalidate.ValidateEmailSyntax(sender)
	if !validation.IsValid {
		return false
	}
	return address.IsSenderAllowed(sender)
}
