package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/utils"
)

// Address is a recipient's provisioning record: quota, size limit, sender
// whitelist and storage configuration. Received is the authoritative counter
// for quota admission and only moves forward within a renewal period.
type Address struct {
	ID       string `gorm:"column:id;type:varchar(50);primaryKey"`
	Address  string `gorm:"column:address;type:varchar(255);uniqueIndex;not null"`
	UserID   int    `gorm:"column:user_id;index;not null"`
	IsActive bool   `gorm:"column:is_active;default:true"`

	// Admission limits
	MaxEmailSize int64 `gorm:"column:max_email_size;not null"`
	Quota        int   `gorm:"column:quota;not null"`
	Received     int   `gorm:"column:received;default:0"`

	// Storage accounting for the current renewal period, in bytes
	StorageQuota int64 `gorm:"column:storage_quota;default:0"`
	StorageUsed  int64 `gorm:"column:storage_used;default:0"`

	// Storage configuration, bound to a backend instance per request
	StorageToken   string                  `gorm:"column:storage_token;type:text"`
	StorageBackend enum.StorageBackendKind `gorm:"column:storage_backend;type:varchar(30)"`
	StoragePath    string                  `gorm:"column:storage_path;type:text"`

	// Sender whitelisting
	IsWhitelistEnabled bool           `gorm:"column:is_whitelist_enabled;default:false"`
	Whitelist          pq.StringArray `gorm:"column:whitelist;type:text[]"`

	LastRenewalTime time.Time `gorm:"column:last_renewal_time;type:timestamp"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt       time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Address) TableName() string {
	return "addresses"
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("addr", 12)
	}
	a.CreatedAt = utils.Now()
	if a.LastRenewalTime.IsZero() {
		a.LastRenewalTime = a.CreatedAt
	}
	return nil
}

// IsSenderAllowed checks the sender against this address's whitelist.
// A disabled whitelist admits every sender.
func (a *Address) IsSenderAllowed(sender string) bool {
	if !a.IsWhitelistEnabled {
		return true
	}
	for _, w := range a.Whitelist {
		if w == sender {
			return true
		}
	}
	return false
}
