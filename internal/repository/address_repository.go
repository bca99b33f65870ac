package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/models"
	"github.com/vaulty/mailvault/internal/tracing"
)

type addressRepository struct {
	db            *gorm.DB
	renewalPeriod time.Duration
}

func NewAddressRepository(db *gorm.DB, renewalPeriod time.Duration) interfaces.AddressRepository {
	return &addressRepository{
		db:            db,
		renewalPeriod: renewalPeriod,
	}
}

// GetFirstMatch resolves the first candidate recipient that exists as an
// active address. Candidate order is the order of the email's recipient list.
func (r *addressRepository) GetFirstMatch(ctx context.Context, candidates []string) (*models.Address, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "addressRepository.GetFirstMatch")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if len(candidates) == 0 {
		return nil, nil
	}

	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("address IN ? AND is_active = ?", candidates, true).
		Find(&addresses).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// The IN clause does not preserve candidate order
	byAddress := make(map[string]*models.Address, len(addresses))
	for i := range addresses {
		byAddress[addresses[i].Address] = &addresses[i]
	}
	for _, c := range candidates {
		if a, ok := byAddress[c]; ok {
			return a, nil
		}
	}

	return nil, nil
}

func (r *addressRepository) IncrementReceived(ctx context.Context, address *models.Address) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "addressRepository.IncrementReceived")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("address = ?", address.Address).
		UpdateColumn("received", gorm.Expr("received + 1"))
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		err := errors.Errorf("address %s no longer exists", address.Address)
		tracing.TraceErr(span, err)
		return err
	}

	address.Received++
	return nil
}

func (r *addressRepository) AddStorageUsed(ctx context.Context, address *models.Address, size int64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "addressRepository.AddStorageUsed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("address = ?", address.Address).
		UpdateColumn("storage_used", gorm.Expr("storage_used + ?", size)).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	address.StorageUsed += size
	return nil
}

// RenewExpiredQuotas resets received and storage_used for every address whose
// renewal period has elapsed and bumps last_renewal_time.
func (r *addressRepository) RenewExpiredQuotas(ctx context.Context) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "addressRepository.RenewExpiredQuotas")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	now := time.Now().UTC()
	cutoff := now.Add(-r.renewalPeriod)

	result := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("last_renewal_time <= ?", cutoff).
		Updates(map[string]interface{}{
			"received":          0,
			"storage_used":      0,
			"last_renewal_time": now,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
