package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/utils"
)

// MailLog is an append-only audit record. EmailID is nil for events logged
// before any email row exists (e.g. rejected recipients).
type MailLog struct {
	ID      string        `gorm:"column:id;type:varchar(50);primaryKey"`
	EmailID *string       `gorm:"column:email_id;type:varchar(50);index"`
	Message string        `gorm:"column:message;type:text;not null"`
	Level   enum.LogLevel `gorm:"column:level;not null"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (MailLog) TableName() string {
	return "mail_logs"
}

func (l *MailLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = utils.GenerateNanoIDWithPrefix("log", 12)
	}
	l.CreatedAt = utils.Now()
	return nil
}
