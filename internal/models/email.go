package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vaulty/mailvault/internal/utils"
)

// Email represents one inbound email notification. The recipient list is
// narrowed to exactly one valid address during admission; Status/ErrorMessage
// are finalized after the last attachment or an early rejection.
type Email struct {
	ID         string         `gorm:"column:id;type:varchar(50);primaryKey"`
	Sender     string         `gorm:"column:sender;type:varchar(255);index;not null"`
	Recipients pq.StringArray `gorm:"column:recipients;type:text[]"`
	MessageID  string         `gorm:"column:message_id;type:varchar(255);index"`
	Subject    string         `gorm:"column:subject;type:varchar(1000)"`

	// TotalSize is the declared size of the whole message in bytes.
	TotalSize int64 `gorm:"column:total_size;default:0"`

	// NumAttachments is nil when the upstream declared no attachments.
	NumAttachments *int `gorm:"column:num_attachments"`

	// Status is true unless processing failed; ErrorMessage carries the
	// most recent failure detail.
	Status       bool   `gorm:"column:status;default:true"`
	ErrorMessage string `gorm:"column:error_message;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = utils.Now()
	return nil
}

// Recipient returns the single narrowed recipient, or "" before narrowing.
func (e *Email) Recipient() string {
	if len(e.Recipients) == 0 {
		return ""
	}
	return e.Recipients[0]
}

// MessageIDOrFallback is used in log lines for emails rejected before any
// row exists for them.
func (e *Email) MessageIDOrFallback() string {
	if e.MessageID == "" {
		return "N/A"
	}
	return e.MessageID
}

// DeclaredAttachments returns the declared attachment count, zero when the
// upstream declared none.
func (e *Email) DeclaredAttachments() int {
	if e.NumAttachments == nil {
		return 0
	}
	return *e.NumAttachments
}
