package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/internal/tracing"
)

type emailRepository struct {
	db  *gorm.DB
	log logger.Logger
}

func NewEmailRepository(db *gorm.DB, log logger.Logger) interfaces.EmailRepository {
	return &emailRepository{
		db:  db,
		log: log,
	}
}

func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEmailID(span, email.ID)

	if err := r.db.WithContext(ctx).Create(email).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEmailID(span, id)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// UpdateStatus finalizes an email's persisted outcome. Best-effort: a write
// failure here must never fail the surrounding operation.
func (r *emailRepository) UpdateStatus(ctx context.Context, emailID string, success bool, message string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEmailID(span, emailID)

	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", emailID).
		Updates(map[string]interface{}{
			"status":        success,
			"error_message": message,
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		r.log.Errorf("failed to update email %s status: %v", emailID, err)
	}
}
