package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/dto"
	"github.com/vaulty/mailvault/internal/tracing"
	"github.com/vaulty/mailvault/services/admission"
	"github.com/vaulty/mailvault/services/dispatch"
	"github.com/vaulty/mailvault/services/fetch"
	"github.com/vaulty/mailvault/services/session"
)

const maxFormMemory = 10 << 20

// MailgunHandler serves the pull-model source: the provider posts a parsed
// notification, the service fetches attachment bytes back from the provider.
type MailgunHandler struct {
	admission  *admission.Service
	dispatcher *dispatch.Service
	fetcher    *fetch.Fetcher
}

func NewMailgunHandler(admissionService *admission.Service, dispatcher *dispatch.Service, fetcher *fetch.Fetcher) *MailgunHandler {
	return &MailgunHandler{
		admission:  admissionService,
		dispatcher: dispatcher,
		fetcher:    fetcher,
	}
}

// Receive ingests a stored-notification webhook, form or JSON encoded. The
// response status tells the provider whether to retry: admission rejections
// are final, fetch or storage failures are not.
func (h *MailgunHandler) Receive() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "MailgunHandler.Receive")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		notification, err := h.parseNotification(c)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		email := notification.ToModel()
		decision := h.admission.Admit(ctx, email, false)
		if !decision.Accepted {
			respondRejected(c, decision)
			return
		}
		tracing.TagEmailID(span, email.ID)

		if len(notification.Attachments) > 0 {
			view := session.View{Email: *email, Address: *decision.Address}
			if err := h.fetcher.FetchAndDispatch(ctx, view, notification.Attachments); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"id":      email.ID,
			"message": "Accepted",
		})
	}
}

// ReceiveMIME ingests a raw MIME message posted as the request body; the
// attachments are decoded locally instead of fetched back.
func (h *MailgunHandler) ReceiveMIME() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "MailgunHandler.ReceiveMIME")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		email, attachments, err := dto.ParseMIME(raw)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		decision := h.admission.Admit(ctx, email, false)
		if !decision.Accepted {
			respondRejected(c, decision)
			return
		}
		tracing.TagEmailID(span, email.ID)

		view := session.View{Email: *email, Address: *decision.Address}
		for _, attachment := range attachments {
			err := h.dispatcher.Handle(ctx, view,
				bytes.NewReader(attachment.Content), attachment.Name, int64(len(attachment.Content)))
			if err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"id":      email.ID,
			"message": "Accepted",
		})
	}
}

func (h *MailgunHandler) parseNotification(c *gin.Context) (*dto.MailgunEmail, error) {
	if c.ContentType() == "application/json" {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read mailgun payload")
		}
		return dto.ParseMailgunJSON(body)
	}

	// Form posts arrive urlencoded or multipart depending on route settings;
	// ParseMultipartForm folds both into PostForm.
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, errors.Wrap(err, "failed to parse mailgun form")
	}
	return dto.ParseMailgunForm(c.Request.PostForm)
}
