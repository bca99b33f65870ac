package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/internal/tracing"
)

type mailLogRepository struct {
	db  *gorm.DB
	log logger.Logger
}

func NewMailLogRepository(db *gorm.DB, log logger.Logger) interfaces.MailLogRepository {
	return &mailLogRepository{
		db:  db,
		log: log,
	}
}

// Record appends one audit row. Fire-and-forget: an insert failure is logged
// locally and otherwise swallowed.
func (r *mailLogRepository) Record(ctx context.Context, message string, emailID *string, level enum.LogLevel) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailLogRepository.Record")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	entry := models.MailLog{
		EmailID: emailID,
		Message: message,
		Level:   level,
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		tracing.TraceErr(span, err)
		r.log.Errorf("failed to write audit log: %v", err)
	}
}
