package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
)

type Repositories struct {
	AddressRepository interfaces.AddressRepository
	EmailRepository   interfaces.EmailRepository
	MailLogRepository interfaces.MailLogRepository
}

func InitRepositories(db *gorm.DB, log logger.Logger, quotaRenewalPeriod time.Duration) *Repositories {
	return &Repositories{
		AddressRepository: NewAddressRepository(db, quotaRenewalPeriod),
		EmailRepository:   NewEmailRepository(db, log),
		MailLogRepository: NewMailLogRepository(db, log),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Address{},
		&models.Email{},
		&models.MailLog{},
	)
}
