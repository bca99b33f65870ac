package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/dto"
	"github.com/vaulty/mailvault/internal/tracing"
	"github.com/vaulty/mailvault/services/admission"
	"github.com/vaulty/mailvault/services/dispatch"
	"github.com/vaulty/mailvault/services/session"
)

// Headers the relay filter sets on attachment requests so the body can stay
// a raw byte stream.
const (
	HeaderEmailID        = "X-Vaulty-Email-Id"
	HeaderAttachmentName = "X-Vaulty-Attachment-Name"
	HeaderAttachmentSize = "X-Vaulty-Attachment-Size"
)

// PostfixHandler serves the push-model source: the relay filter parses the
// raw message itself and posts the email first, then each attachment.
type PostfixHandler struct {
	admission  *admission.Service
	sessions   *session.Cache
	dispatcher *dispatch.Service
}

func NewPostfixHandler(admissionService *admission.Service, sessions *session.Cache, dispatcher *dispatch.Service) *PostfixHandler {
	return &PostfixHandler{
		admission:  admissionService,
		sessions:   sessions,
		dispatcher: dispatcher,
	}
}

func (h *PostfixHandler) Email() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "PostfixHandler.Email")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request dto.PostfixEmail
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		email, err := request.ToModel()
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		decision := h.admission.Admit(ctx, email, true)
		if !decision.Accepted {
			respondRejected(c, decision)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":      email.ID,
			"sender":  email.Sender,
			"session": decision.SessionCreated,
		})
	}
}

// Attachment streams one attachment body to storage via the email's session.
// The session countdown advances even when the upload fails; the relay must
// not resend a failed attachment.
func (h *PostfixHandler) Attachment() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "PostfixHandler.Attachment")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		emailID := c.GetHeader(HeaderEmailID)
		name := c.GetHeader(HeaderAttachmentName)
		if emailID == "" || name == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "missing " + HeaderEmailID + " or " + HeaderAttachmentName + " header",
			})
			return
		}
		tracing.TagEmailID(span, emailID)

		// Size is declarative; storage accounting uses it, the upload streams
		// whatever the body holds.
		size, err := strconv.ParseInt(c.GetHeader(HeaderAttachmentSize), 10, 64)
		if err != nil || size < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "missing or invalid " + HeaderAttachmentSize + " header",
			})
			return
		}

		last, err := h.sessions.Dispatch(emailID, func(view session.View) error {
			return h.dispatcher.Handle(ctx, view, c.Request.Body, name, size)
		})

		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "no session for email " + emailID,
			})
			return
		}

		var dispatchErr *dispatch.Error
		if errors.As(err, &dispatchErr) {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": dispatchErr.Error(),
				"final": last,
			})
			return
		}
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"processed": name,
			"final":     last,
		})
	}
}
