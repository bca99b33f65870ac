package dto

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/internal/models"
)

// PostfixEmail is the normalized email the mail relay's filter posts after
// parsing the raw message. The filter generates the uuid so it can tag the
// attachment requests that follow.
type PostfixEmail struct {
	UUID           string   `json:"uuid" binding:"required"`
	Sender         string   `json:"sender" binding:"required"`
	Recipients     []string `json:"recipients" binding:"required"`
	MessageID      string   `json:"message_id"`
	Subject        string   `json:"subject"`
	Size           int64    `json:"size"`
	NumAttachments *int     `json:"num_attachments"`
}

func (p *PostfixEmail) ToModel() (*models.Email, error) {
	if _, err := uuid.Parse(p.UUID); err != nil {
		return nil, errors.Wrapf(err, "invalid email uuid %q", p.UUID)
	}
	if len(p.Recipients) == 0 {
		return nil, errors.New("email has no recipients")
	}

	return &models.Email{
		ID:             p.UUID,
		Sender:         p.Sender,
		Recipients:     pq.StringArray(p.Recipients),
		MessageID:      p.MessageID,
		Subject:        p.Subject,
		TotalSize:      p.Size,
		NumAttachments: p.NumAttachments,
		Status:         true,
	}, nil
}
