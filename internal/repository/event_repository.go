package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/trainhub/training-platform/internal/model"
)

type EventRepository interface {
	// Записать событие аудита.
	Append(ctx context.Context, event *model.Event) error
	// События по бронированию, новые первыми.
	ListByBooking(ctx context.Context, bookingID string, limit int) ([]model.Event, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Append(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) ListByBooking(ctx context.Context, bookingID string, limit int) ([]model.Event, error) {
	var events []model.Event
	q := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
