package dto

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/internal/models"
)

// AttachmentDescriptor points at attachment bytes the service must fetch
// itself (pull-model source).
type AttachmentDescriptor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// MailgunEmail is the provider's inbound notification, delivered either as
// a form post or as structured JSON depending on route configuration.
type MailgunEmail struct {
	Sender      string                 `json:"sender"`
	Recipient   string                 `json:"recipient"`
	Subject     string                 `json:"subject"`
	MessageID   string                 `json:"Message-Id"`
	Attachments []AttachmentDescriptor `json:"attachments"`
}

func ParseMailgunJSON(body []byte) (*MailgunEmail, error) {
	var m MailgunEmail
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, errors.Wrap(err, "failed to decode mailgun JSON payload")
	}
	if m.Sender == "" || m.Recipient == "" {
		return nil, errors.New("mailgun payload missing sender or recipient")
	}
	return &m, nil
}

func ParseMailgunForm(values url.Values) (*MailgunEmail, error) {
	m := MailgunEmail{
		Sender:    values.Get("sender"),
		Recipient: values.Get("recipient"),
		Subject:   values.Get("subject"),
		MessageID: values.Get("Message-Id"),
	}
	if m.Sender == "" || m.Recipient == "" {
		return nil, errors.New("mailgun payload missing sender or recipient")
	}

	// The attachment list is itself a JSON document inside the form field
	if raw := values.Get("attachments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Attachments); err != nil {
			return nil, errors.Wrap(err, "failed to decode mailgun attachments field")
		}
	}

	return &m, nil
}

func (m *MailgunEmail) ToModel() *models.Email {
	recipients := strings.Split(m.Recipient, ",")
	for i := range recipients {
		recipients[i] = strings.TrimSpace(recipients[i])
	}

	var totalSize int64
	for _, a := range m.Attachments {
		totalSize += a.Size
	}

	email := &models.Email{
		Sender:     m.Sender,
		Recipients: pq.StringArray(recipients),
		MessageID:  m.MessageID,
		Subject:    m.Subject,
		TotalSize:  totalSize,
		Status:     true,
	}
	if n := len(m.Attachments); n > 0 {
		email.NumAttachments = &n
	}
	return email
}
