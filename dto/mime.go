package dto

import (
	"bytes"

	"github.com/jhillyerd/enmime"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/internal/utils"
)

// InlineAttachment is an attachment whose bytes arrived inside the request
// itself (raw-MIME ingestion); it lives only until its dispatch completes.
type InlineAttachment struct {
	Name    string
	Content []byte
}

// ParseMIME normalizes a raw MIME message into an Email plus its decoded
// attachments.
func ParseMIME(raw []byte) (*models.Email, []InlineAttachment, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse MIME message")
	}

	from, err := env.AddressList("From")
	if err != nil || len(from) == 0 {
		return nil, nil, errors.New("MIME message has no parseable From address")
	}

	to, err := env.AddressList("To")
	if err != nil || len(to) == 0 {
		return nil, nil, errors.New("MIME message has no parseable To addresses")
	}

	recipients := make(pq.StringArray, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, addr.Address)
	}

	email := &models.Email{
		Sender:     from[0].Address,
		Recipients: recipients,
		MessageID:  utils.NormalizeMessageID(env.GetHeader("Message-Id")),
		Subject:    env.GetHeader("Subject"),
		TotalSize:  int64(len(raw)),
		Status:     true,
	}

	attachments := make([]InlineAttachment, 0, len(env.Attachments))
	for _, part := range env.Attachments {
		name := part.FileName
		if name == "" {
			name = "attachment.bin"
		}
		attachments = append(attachments, InlineAttachment{
			Name:    name,
			Content: part.Content,
		})
	}

	if n := len(attachments); n > 0 {
		email.NumAttachments = &n
	}

	return email, attachments, nil
}
